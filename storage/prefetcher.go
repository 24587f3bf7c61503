package storage

import (
	"sync"
	"sync/atomic"
)

// Prefetcher watches the fetch stream for a stable stride and pulls
// pages ahead of it in the background. Prefetched pages are fetched and
// immediately unpinned, so they sit in the pool as warm, evictable
// frames; a foreground fetch then hits them without touching disk.
type Prefetcher struct {
	bpm *BufferPoolManager

	mu         sync.Mutex
	lastPageID PageID
	stride     int32
	runLength  int
	seeded     bool

	// detectionThreshold is the run length that triggers prefetching;
	// prefetchDistance is how many pages ahead to pull
	detectionThreshold int
	prefetchDistance   int

	inflight atomic.Bool
}

// NewPrefetcher creates a prefetcher for the pool
func NewPrefetcher(bpm *BufferPoolManager) *Prefetcher {
	return &Prefetcher{
		bpm:                bpm,
		detectionThreshold: 3,
		prefetchDistance:   8,
	}
}

// Configure sets the detection threshold and prefetch distance
func (p *Prefetcher) Configure(detectionThreshold, prefetchDistance int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detectionThreshold = detectionThreshold
	p.prefetchDistance = prefetchDistance
}

// RecordAccess feeds one foreground access into stride detection.
// Accesses tagged AccessScan are ignored so the prefetcher's own
// fetches do not train it.
func (p *Prefetcher) RecordAccess(pageID PageID, accessType AccessType) {
	if accessType == AccessScan {
		return
	}

	p.mu.Lock()
	if !p.seeded {
		p.seeded = true
		p.lastPageID = pageID
		p.mu.Unlock()
		return
	}

	stride := int32(pageID) - int32(p.lastPageID)
	if stride != 0 && stride == p.stride {
		p.runLength++
	} else {
		p.stride = stride
		p.runLength = 1
	}
	p.lastPageID = pageID

	trigger := p.runLength >= p.detectionThreshold
	base, strideNow, distance := pageID, p.stride, p.prefetchDistance
	p.mu.Unlock()

	if trigger && p.inflight.CompareAndSwap(false, true) {
		go p.prefetch(base, strideNow, distance)
	}
}

// prefetch pulls pages ahead of base along the detected stride
func (p *Prefetcher) prefetch(base PageID, stride int32, distance int) {
	defer p.inflight.Store(false)

	for i := 1; i <= distance; i++ {
		pid := PageID(int32(base) + stride*int32(i))
		if pid < 0 {
			return
		}
		if _, err := p.bpm.FetchPage(pid, AccessScan); err != nil {
			return
		}
		p.bpm.UnpinPage(pid, false)
		p.bpm.metrics.RecordPrefetch()
	}
}
