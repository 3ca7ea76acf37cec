// Package fitcache memoises fitted distributions by the content of the sample
// and the fitter configuration that produced them.
//
// Entries never go stale: a changed sample or configuration hashes to a new
// key. Purge drops everything and is called when a dataset is reloaded so the
// cache does not keep fits of records that no longer exist.
package fitcache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"avail-risk/internal/fitting"
)

// DefaultSize is the number of fits kept when no size is configured.
const DefaultSize = 256

// Key identifies a sample and fitter configuration.
type Key [sha256.Size]byte

func (k Key) String() string { return hex.EncodeToString(k[:8]) }

// KeyFor hashes the sample values in order together with the fitter's bound,
// acceptance level and candidate families.
func KeyFor(f *fitting.Fitter, sample []float64) Key {
	h := sha256.New()
	var buf [8]byte
	writeFloat := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}

	writeFloat(f.Bound.Min)
	writeFloat(f.Bound.Max)
	writeFloat(f.Acceptance)
	for _, fam := range f.Families {
		binary.LittleEndian.PutUint64(buf[:], uint64(fam))
		h.Write(buf[:])
	}
	binary.LittleEndian.PutUint64(buf[:], uint64(len(sample)))
	h.Write(buf[:])
	for _, v := range sample {
		writeFloat(v)
	}

	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

// Stats are cumulative lookup counters.
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Size   int    `json:"size"`
}

// Cache is a bounded LRU of fitted distributions. Cached values are shared
// and must be treated as read-only.
type Cache struct {
	entries *lru.Cache[Key, *fitting.FittedDistribution]
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// New returns a cache holding at most size fits (DefaultSize if size <= 0).
func New(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[Key, *fitting.FittedDistribution](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

// Fit returns the cached fit of sample or runs f and stores the result. The
// second return value reports a cache hit.
func (c *Cache) Fit(f *fitting.Fitter, sample []float64) (*fitting.FittedDistribution, bool, error) {
	key := KeyFor(f, sample)
	if fd, ok := c.entries.Get(key); ok {
		c.hits.Add(1)
		return fd, true, nil
	}
	c.misses.Add(1)

	fd, err := f.Fit(sample)
	if err != nil {
		return nil, false, err
	}
	c.entries.Add(key, fd)
	return fd, false, nil
}

// Purge removes every entry.
func (c *Cache) Purge() { c.entries.Purge() }

// Len is the number of cached fits.
func (c *Cache) Len() int { return c.entries.Len() }

func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Size: c.entries.Len()}
}
