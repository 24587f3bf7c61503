package storage

import (
	"sync/atomic"
)

const (
	// PageSize is the fixed size of every page in bytes
	PageSize = 4096
)

// PageID identifies a page on disk. InvalidPageID marks an unused frame.
type PageID int32

// FrameID indexes a slot in the buffer pool's page array.
type FrameID int32

// InvalidPageID is the sentinel for "no page"
const InvalidPageID PageID = -1

// Page is a fixed-size in-memory copy of a disk page plus bookkeeping.
// The id and dirty flag are guarded by the buffer pool latch; the pin
// count is atomic so guards and tests can read it without the pool latch.
// Page contents are protected by the per-page latch, which is independent
// of the pool latch and acquired only through page guards.
type Page struct {
	id       PageID
	pinCount atomic.Int32
	isDirty  bool
	latch    *RWLatch
	data     [PageSize]byte
}

// newPage creates an empty frame-resident page
func newPage() *Page {
	return &Page{
		id:    InvalidPageID,
		latch: NewRWLatch(),
	}
}

// ID returns the page ID, or InvalidPageID for an unused frame
func (p *Page) ID() PageID {
	return p.id
}

// PinCount returns the current pin count
func (p *Page) PinCount() int32 {
	return p.pinCount.Load()
}

// IsDirty returns whether the page has unflushed modifications.
// Callers outside the buffer pool must hold the pool latch for a
// stable answer.
func (p *Page) IsDirty() bool {
	return p.isDirty
}

// Data returns the full page buffer
func (p *Page) Data() []byte {
	return p.data[:]
}

// ResetMemory zeroes the page buffer
func (p *Page) ResetMemory() {
	for i := range p.data {
		p.data[i] = 0
	}
}

// RLatch acquires the page latch in shared mode
func (p *Page) RLatch() {
	p.latch.RLock()
}

// RUnlatch releases a shared hold on the page latch
func (p *Page) RUnlatch() {
	p.latch.RUnlock()
}

// WLatch acquires the page latch in exclusive mode
func (p *Page) WLatch() {
	p.latch.Lock()
}

// WUnlatch releases an exclusive hold on the page latch
func (p *Page) WUnlatch() {
	p.latch.Unlock()
}
