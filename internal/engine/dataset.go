package engine

import (
	"time"

	"github.com/rs/zerolog/log"

	"avail-risk/internal/dataset"
)

// LoadSummary describes a loaded dataset.
type LoadSummary struct {
	Path     string `json:"path"`
	Records  int    `json:"records"`
	Entities int    `json:"entities"`
}

// EntitySummary describes the records held for one entity.
type EntitySummary struct {
	EntityID     string `json:"entity_id"`
	Records      int    `json:"records"`
	Missing      int    `json:"missing"`
	FirstYear    int    `json:"first_year"`
	LastYear     int    `json:"last_year"`
	TurbineCount int    `json:"turbine_count"` // Latest reported
}

// LoadDataset replaces the current records with the contents of path. On
// failure the previous records stay in place. Cached fits are dropped.
func (e *Engine) LoadDataset(path string) (summary LoadSummary, err error) {
	defer e.observe("load_dataset", time.Now(), &err)

	store := dataset.NewStore(e.bound)
	n, err := store.Load(path)
	if err != nil {
		return LoadSummary{}, err
	}

	e.mu.Lock()
	e.store = store
	e.dataset = path
	e.mu.Unlock()
	e.cache.Purge()

	summary = LoadSummary{Path: path, Records: n, Entities: len(store.Entities())}
	e.metrics.UpdateDataset(summary.Records, summary.Entities)
	log.Info().
		Str("path", path).
		Int("records", summary.Records).
		Int("entities", summary.Entities).
		Msg("Dataset loaded")
	return summary, nil
}

// AddRecords validates and merges records into the current dataset.
func (e *Engine) AddRecords(records []dataset.Record) (n int, err error) {
	defer e.observe("add_records", time.Now(), &err)

	store := e.currentStore()
	n, err = store.Append(records)
	if err != nil {
		return 0, err
	}
	e.updateDatasetMetrics(store)
	return n, nil
}

// DatasetPath is the path of the last loaded dataset, if any.
func (e *Engine) DatasetPath() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dataset
}

// Entities summarises every known entity, sorted by id.
func (e *Engine) Entities() []EntitySummary {
	store := e.currentStore()
	ids := store.Entities()
	out := make([]EntitySummary, 0, len(ids))
	for _, id := range ids {
		recs := store.Records(id)
		s := EntitySummary{EntityID: id, Records: len(recs)}
		for i, r := range recs {
			if i == 0 {
				s.FirstYear = r.Year
			}
			s.LastYear = r.Year
			s.TurbineCount = r.TurbineCount
			if _, ok := r.Value(); !ok {
				s.Missing++
			}
		}
		out = append(out, s)
	}
	return out
}

func (e *Engine) updateDatasetMetrics(store *dataset.Store) {
	total := 0
	ids := store.Entities()
	for _, id := range ids {
		total += store.Count(id)
	}
	e.metrics.UpdateDataset(total, len(ids))
}
