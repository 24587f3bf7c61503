package storage

import (
	"log/slog"
	"math"
	"sort"
	"sync"
	"sync/atomic"
)

// Histogram tracks a latency distribution with percentile support.
// Samples beyond maxSize evict the oldest (FIFO).
type Histogram struct {
	samples []float64 // latencies in microseconds
	mu      sync.Mutex
	maxSize int
}

// NewHistogram creates a histogram retaining up to maxSize samples
func NewHistogram(maxSize int) *Histogram {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &Histogram{
		samples: make([]float64, 0, maxSize),
		maxSize: maxSize,
	}
}

// Record adds a latency sample (in microseconds)
func (h *Histogram) Record(latencyUs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) >= h.maxSize {
		copy(h.samples, h.samples[1:])
		h.samples = h.samples[:len(h.samples)-1]
	}
	h.samples = append(h.samples, latencyUs)
}

// Percentile calculates the given percentile (0-100) with linear
// interpolation between samples
func (h *Histogram) Percentile(p float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) == 0 {
		return 0
	}
	// Sort a copy so the retained samples keep their arrival order
	sorted := make([]float64, len(h.samples))
	copy(sorted, h.samples)
	sort.Float64s(sorted)

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	weight := rank - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Count returns the number of retained samples
func (h *Histogram) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.samples)
}

// Metrics collects buffer pool performance counters
type Metrics struct {
	cacheHits       atomic.Uint64
	cacheMisses     atomic.Uint64
	pageEvictions   atomic.Uint64
	dirtyWriteBacks atomic.Uint64
	diskReads       atomic.Uint64
	diskWrites      atomic.Uint64
	pagesPrefetched atomic.Uint64

	// Disk request latency, recorded by the scheduler worker
	DiskLatency *Histogram
}

// NewMetrics creates a metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		DiskLatency: NewHistogram(10000),
	}
}

func (m *Metrics) RecordCacheHit()       { m.cacheHits.Add(1) }
func (m *Metrics) RecordCacheMiss()      { m.cacheMisses.Add(1) }
func (m *Metrics) RecordPageEviction()   { m.pageEvictions.Add(1) }
func (m *Metrics) RecordDirtyWriteBack() { m.dirtyWriteBacks.Add(1) }
func (m *Metrics) RecordDiskRead()       { m.diskReads.Add(1) }
func (m *Metrics) RecordDiskWrite()      { m.diskWrites.Add(1) }
func (m *Metrics) RecordPrefetch()       { m.pagesPrefetched.Add(1) }

func (m *Metrics) CacheHits() uint64       { return m.cacheHits.Load() }
func (m *Metrics) CacheMisses() uint64     { return m.cacheMisses.Load() }
func (m *Metrics) PageEvictions() uint64   { return m.pageEvictions.Load() }
func (m *Metrics) DirtyWriteBacks() uint64 { return m.dirtyWriteBacks.Load() }
func (m *Metrics) DiskReads() uint64       { return m.diskReads.Load() }
func (m *Metrics) DiskWrites() uint64      { return m.diskWrites.Load() }
func (m *Metrics) PagesPrefetched() uint64 { return m.pagesPrefetched.Load() }

// CacheHitRate returns the fraction of accesses served from memory
func (m *Metrics) CacheHitRate() float64 {
	hits := m.cacheHits.Load()
	total := hits + m.cacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// LogMetrics emits a grouped summary of the collected counters
func (m *Metrics) LogMetrics(logger *slog.Logger) {
	logger.Info("buffer pool metrics",
		slog.Group("cache",
			slog.Uint64("hits", m.CacheHits()),
			slog.Uint64("misses", m.CacheMisses()),
			slog.Float64("hit_rate", m.CacheHitRate()),
		),
		slog.Group("eviction",
			slog.Uint64("evictions", m.PageEvictions()),
			slog.Uint64("dirty_write_backs", m.DirtyWriteBacks()),
		),
		slog.Group("disk",
			slog.Uint64("reads", m.DiskReads()),
			slog.Uint64("writes", m.DiskWrites()),
			slog.Float64("p50_us", m.DiskLatency.Percentile(50)),
			slog.Float64("p99_us", m.DiskLatency.Percentile(99)),
		),
		slog.Uint64("pages_prefetched", m.PagesPrefetched()),
	)
}
