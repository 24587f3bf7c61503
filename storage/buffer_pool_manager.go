package storage

import (
	"fmt"
	"sync"
)

// BufferPoolManager caches disk pages in a fixed set of frames.
//
// One mutex guards the page metadata, page table, free list and
// replacer, and is deliberately held across disk completion waits: the
// pool serializes on I/O, trading throughput for a design where the
// replacer and page table always observe disk state atomically. The
// per-page latches acquired by guards are independent of this mutex.
type BufferPoolManager struct {
	poolSize   int
	pages      []*Page
	pageTable  map[PageID]FrameID
	freeList   []FrameID
	replacer   Replacer
	scheduler  *DiskScheduler
	nextPageID PageID
	metrics    *Metrics
	prefetcher *Prefetcher
	latch      sync.Mutex
}

// NewBufferPoolManager creates a pool of poolSize frames over dm with
// an LRU-K replacer of depth k
func NewBufferPoolManager(poolSize, k int, dm DiskManager) (*BufferPoolManager, error) {
	cfg := DefaultConfig()
	cfg.PoolSize = poolSize
	cfg.ReplacerK = k
	return NewBufferPoolManagerWithConfig(cfg, dm)
}

// NewBufferPoolManagerWithConfig creates a pool configured by cfg
func NewBufferPoolManagerWithConfig(cfg *Config, dm DiskManager) (*BufferPoolManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid buffer pool config: %w", err)
	}

	bpm := &BufferPoolManager{
		poolSize:  cfg.PoolSize,
		pages:     make([]*Page, cfg.PoolSize),
		pageTable: make(map[PageID]FrameID),
		freeList:  make([]FrameID, 0, cfg.PoolSize),
		replacer:  NewReplacer(cfg.ReplacerPolicy, cfg.PoolSize, cfg.ReplacerK),
		metrics:   NewMetrics(),
	}
	bpm.scheduler = NewDiskScheduler(dm, bpm.metrics)

	for i := 0; i < cfg.PoolSize; i++ {
		bpm.pages[i] = newPage()
		bpm.freeList = append(bpm.freeList, FrameID(i))
	}

	if cfg.PrefetchEnabled {
		bpm.prefetcher = NewPrefetcher(bpm)
	}

	return bpm, nil
}

// PoolSize returns the number of frames
func (bpm *BufferPoolManager) PoolSize() int {
	return bpm.poolSize
}

// Metrics returns the pool's metrics collector
func (bpm *BufferPoolManager) Metrics() *Metrics {
	return bpm.metrics
}

// allocatePage hands out the next page id. Caller holds the latch.
func (bpm *BufferPoolManager) allocatePage() PageID {
	id := bpm.nextPageID
	bpm.nextPageID++
	return id
}

// deallocatePage returns a page id to the allocator. The id counter is
// monotonic, so this is bookkeeping-free; ids are never reused.
func (bpm *BufferPoolManager) deallocatePage(pageID PageID) {
}

// acquireFrame obtains a usable frame: free list first, then eviction.
// A dirty victim is written back through the scheduler and the wait
// happens with the latch held. Caller holds the latch.
func (bpm *BufferPoolManager) acquireFrame(op string) (FrameID, error) {
	if n := len(bpm.freeList); n > 0 {
		frameID := bpm.freeList[n-1]
		bpm.freeList = bpm.freeList[:n-1]
		return frameID, nil
	}

	frameID, ok := bpm.replacer.Evict()
	if !ok {
		return 0, ErrNoFreeFrames(op)
	}
	victim := bpm.pages[frameID]
	if victim.isDirty {
		bpm.metrics.RecordDirtyWriteBack()
		done := NewCompletion()
		bpm.scheduler.Schedule(&DiskRequest{
			IsWrite: true,
			Data:    victim.Data(),
			PageID:  victim.id,
			Done:    done,
		})
		if err := <-done; err != nil {
			// Write-back failed: keep the victim resident and dirty,
			// re-enter it into the replacer as evictable
			bpm.replacer.RecordAccess(frameID, AccessUnknown)
			return 0, ErrDiskWrite(op, victim.id, err)
		}
	}
	delete(bpm.pageTable, victim.id)
	bpm.metrics.RecordPageEviction()
	return frameID, nil
}

// NewPage allocates a fresh page in a frame, pinned once.
// Fails with ErrCodeNoFreeFrames when every frame is pinned.
func (bpm *BufferPoolManager) NewPage() (*Page, error) {
	bpm.latch.Lock()
	defer bpm.latch.Unlock()

	frameID, err := bpm.acquireFrame("NewPage")
	if err != nil {
		return nil, err
	}

	pageID := bpm.allocatePage()
	page := bpm.pages[frameID]
	page.ResetMemory()
	page.id = pageID
	page.pinCount.Store(1)
	page.isDirty = false

	bpm.replacer.RecordAccess(frameID, AccessUnknown)
	bpm.replacer.SetEvictable(frameID, false)
	bpm.pageTable[pageID] = frameID
	return page, nil
}

// FetchPage returns the resident page, reading it from disk on a miss.
// The returned page is pinned; callers must UnpinPage it.
func (bpm *BufferPoolManager) FetchPage(pageID PageID, accessType AccessType) (*Page, error) {
	if pageID < 0 {
		return nil, ErrInvalidPageID("FetchPage", pageID)
	}
	if bpm.prefetcher != nil {
		bpm.prefetcher.RecordAccess(pageID, accessType)
	}

	bpm.latch.Lock()
	defer bpm.latch.Unlock()

	if frameID, ok := bpm.pageTable[pageID]; ok {
		bpm.metrics.RecordCacheHit()
		page := bpm.pages[frameID]
		page.pinCount.Add(1)
		bpm.replacer.RecordAccess(frameID, accessType)
		bpm.replacer.SetEvictable(frameID, false)
		return page, nil
	}

	bpm.metrics.RecordCacheMiss()
	frameID, err := bpm.acquireFrame("FetchPage")
	if err != nil {
		return nil, err
	}

	page := bpm.pages[frameID]
	page.ResetMemory()
	page.id = pageID
	page.pinCount.Store(1)
	page.isDirty = false

	done := NewCompletion()
	bpm.scheduler.Schedule(&DiskRequest{
		IsWrite: false,
		Data:    page.Data(),
		PageID:  pageID,
		Done:    done,
	})
	if err := <-done; err != nil {
		// Undo the residency attempt and free the frame
		page.id = InvalidPageID
		page.pinCount.Store(0)
		bpm.freeList = append(bpm.freeList, frameID)
		return nil, ErrDiskRead("FetchPage", pageID, err)
	}

	bpm.replacer.RecordAccess(frameID, accessType)
	bpm.replacer.SetEvictable(frameID, false)
	bpm.pageTable[pageID] = frameID
	return page, nil
}

// UnpinPage drops one pin and ORs in the dirty flag. When the pin count
// reaches zero the frame becomes eviction-eligible.
func (bpm *BufferPoolManager) UnpinPage(pageID PageID, isDirty bool) error {
	bpm.latch.Lock()
	defer bpm.latch.Unlock()

	frameID, ok := bpm.pageTable[pageID]
	if !ok {
		return ErrPageNotResident("UnpinPage", pageID)
	}
	page := bpm.pages[frameID]
	if page.pinCount.Load() <= 0 {
		return ErrPageNotPinned("UnpinPage", pageID)
	}

	if isDirty {
		page.isDirty = true
	}
	if page.pinCount.Add(-1) <= 0 {
		bpm.replacer.SetEvictable(frameID, true)
	}
	return nil
}

// FlushPage writes the page to disk regardless of its dirty state and
// clears the dirty flag. Pin count and residency are untouched.
func (bpm *BufferPoolManager) FlushPage(pageID PageID) error {
	if pageID == InvalidPageID {
		return ErrInvalidPageID("FlushPage", pageID)
	}

	bpm.latch.Lock()
	defer bpm.latch.Unlock()
	return bpm.flushPageLocked(pageID)
}

// flushPageLocked submits the write and waits. Caller holds the latch.
func (bpm *BufferPoolManager) flushPageLocked(pageID PageID) error {
	frameID, ok := bpm.pageTable[pageID]
	if !ok {
		return ErrPageNotResident("FlushPage", pageID)
	}
	page := bpm.pages[frameID]

	done := NewCompletion()
	bpm.scheduler.Schedule(&DiskRequest{
		IsWrite: true,
		Data:    page.Data(),
		PageID:  pageID,
		Done:    done,
	})
	if err := <-done; err != nil {
		return ErrDiskWrite("FlushPage", pageID, err)
	}
	page.isDirty = false
	return nil
}

// FlushAllPages flushes every resident page
func (bpm *BufferPoolManager) FlushAllPages() error {
	bpm.latch.Lock()
	defer bpm.latch.Unlock()

	for _, page := range bpm.pages {
		if page.id == InvalidPageID {
			continue
		}
		if err := bpm.flushPageLocked(page.id); err != nil {
			return err
		}
	}
	return nil
}

// DeletePage evicts the page from the pool and frees its frame.
// A non-resident page deletes trivially; a pinned page cannot be
// deleted. Nothing is written back — callers needing durability flush
// first.
func (bpm *BufferPoolManager) DeletePage(pageID PageID) error {
	bpm.latch.Lock()
	defer bpm.latch.Unlock()

	frameID, ok := bpm.pageTable[pageID]
	if !ok {
		return nil
	}
	page := bpm.pages[frameID]
	if pins := page.pinCount.Load(); pins > 0 {
		return ErrPagePinned("DeletePage", pageID, pins)
	}

	bpm.replacer.Remove(frameID)
	delete(bpm.pageTable, pageID)
	bpm.freeList = append(bpm.freeList, frameID)
	page.ResetMemory()
	page.id = InvalidPageID
	page.pinCount.Store(0)
	page.isDirty = false
	bpm.deallocatePage(pageID)
	return nil
}

// FetchPageBasic fetches the page wrapped in an unlatched guard.
// On failure the returned guard is inert and the error explains why.
func (bpm *BufferPoolManager) FetchPageBasic(pageID PageID) (*PageGuard, error) {
	page, err := bpm.FetchPage(pageID, AccessUnknown)
	return newPageGuard(bpm, page), err
}

// FetchPageRead fetches the page and latches it shared
func (bpm *BufferPoolManager) FetchPageRead(pageID PageID) (*ReadPageGuard, error) {
	page, err := bpm.FetchPage(pageID, AccessUnknown)
	if page != nil {
		page.RLatch()
	}
	return newReadPageGuard(bpm, page), err
}

// FetchPageWrite fetches the page and latches it exclusive
func (bpm *BufferPoolManager) FetchPageWrite(pageID PageID) (*WritePageGuard, error) {
	page, err := bpm.FetchPage(pageID, AccessUnknown)
	if page != nil {
		page.WLatch()
	}
	return newWritePageGuard(bpm, page), err
}

// NewPageGuarded allocates a fresh page wrapped in an unlatched guard
func (bpm *BufferPoolManager) NewPageGuarded() (*PageGuard, error) {
	page, err := bpm.NewPage()
	return newPageGuard(bpm, page), err
}

// Close flushes all resident pages and shuts the scheduler down.
// The pool must not be used afterwards.
func (bpm *BufferPoolManager) Close() error {
	err := bpm.FlushAllPages()
	bpm.scheduler.Shutdown()
	return err
}
