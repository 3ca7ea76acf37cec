// Package dataset holds the validated availability records consumed by the
// engine, and loads them from fixed long-format files.
package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// Store provides thread-safe, chronological storage of Records partitioned by
// entity. Records are copied on the way in and on the way out.
type Store struct {
	mu      sync.RWMutex
	bound   Bound
	records map[string][]Record
}

// NewStore creates an empty store enforcing the given bound.
func NewStore(b Bound) *Store {
	return &Store{
		bound:   b,
		records: make(map[string][]Record),
	}
}

// Bound returns the availability bound the store validates against.
func (s *Store) Bound() Bound {
	return s.bound
}

// Append validates and adds records. The whole batch is rejected on the first
// invalid record. A record for an already known (entity, year, month) replaces
// the previous one. It returns the number of records added or replaced.
func (s *Store) Append(records []Record) (int, error) {
	for _, r := range records {
		if err := r.Validate(s.bound); err != nil {
			return 0, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	touched := make(map[string]bool)
	changed := 0
	for _, r := range records {
		r = cloneRecord(r)
		partition := s.records[r.EntityID]

		replaced := false
		for i := range partition {
			if partition[i].identity() == r.identity() {
				partition[i] = r
				replaced = true
				break
			}
		}
		if !replaced {
			partition = append(partition, r)
		}
		s.records[r.EntityID] = partition
		touched[r.EntityID] = true
		changed++
	}

	for entity := range touched {
		partition := s.records[entity]
		sort.SliceStable(partition, func(i, j int) bool {
			return partition[i].period() < partition[j].period()
		})
	}

	return changed, nil
}

// Records returns a copy of an entity's records in chronological order.
func (s *Store) Records(entityID string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	partition := s.records[entityID]
	out := make([]Record, len(partition))
	for i, r := range partition {
		out[i] = cloneRecord(r)
	}
	return out
}

// Entities returns the known entity ids, sorted.
func (s *Store) Entities() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of records held for an entity.
func (s *Store) Count(entityID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[entityID])
}

// LoadJSONL reads records, one JSON object per line, and appends them.
func (s *Store) LoadJSONL(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			return 0, fmt.Errorf("invalid JSON on line %d of %s: %w", line, path, err)
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("error reading dataset: %w", err)
	}

	n, err := s.Append(records)
	if err != nil {
		return 0, err
	}
	log.Info().Str("path", path).Int("count", n).Msg("Loaded availability records")
	return n, nil
}

// SaveJSONL writes every record to path, replacing it atomically.
func (s *Store) SaveJSONL(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create dataset directory: %w", err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp dataset file: %w", err)
	}

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)

	count := 0
	for _, id := range s.Entities() {
		for _, r := range s.Records(id) {
			if err := encoder.Encode(r); err != nil {
				file.Close()
				os.Remove(tmpPath)
				return fmt.Errorf("failed to encode record: %w", err)
			}
			count++
		}
	}

	if err := writer.Flush(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename dataset file: %w", err)
	}

	log.Info().Str("path", path).Int("count", count).Msg("Availability records saved")
	return nil
}

func cloneRecord(r Record) Record {
	if r.Availability != nil {
		v := *r.Availability
		r.Availability = &v
	}
	return r
}
