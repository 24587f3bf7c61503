package storage

// PageGuard scopes a pin on a page: Drop unpins exactly once, passing
// along whether the holder dirtied the page. Guards over a nil page
// (a failed fetch) are inert, and Drop is idempotent, so callers can
// defer it unconditionally.
type PageGuard struct {
	bpm     *BufferPoolManager
	page    *Page
	isDirty bool
}

func newPageGuard(bpm *BufferPoolManager, page *Page) *PageGuard {
	if page == nil {
		return &PageGuard{}
	}
	return &PageGuard{bpm: bpm, page: page}
}

// PageID returns the guarded page's id, or InvalidPageID for an inert
// guard
func (g *PageGuard) PageID() PageID {
	if g.page == nil {
		return InvalidPageID
	}
	return g.page.ID()
}

// Data returns the page buffer for reading
func (g *PageGuard) Data() []byte {
	if g.page == nil {
		return nil
	}
	return g.page.Data()
}

// DataMut returns the page buffer for writing and marks the guard dirty
func (g *PageGuard) DataMut() []byte {
	if g.page == nil {
		return nil
	}
	g.isDirty = true
	return g.page.Data()
}

// Drop unpins the page. Safe to call on an inert or already-dropped
// guard.
func (g *PageGuard) Drop() {
	if g.bpm != nil && g.page != nil {
		g.bpm.UnpinPage(g.page.ID(), g.isDirty)
	}
	g.bpm = nil
	g.page = nil
}

// ReadPageGuard additionally holds the page latch in shared mode
type ReadPageGuard struct {
	guard PageGuard
}

func newReadPageGuard(bpm *BufferPoolManager, page *Page) *ReadPageGuard {
	return &ReadPageGuard{guard: *newPageGuard(bpm, page)}
}

// PageID returns the guarded page's id
func (g *ReadPageGuard) PageID() PageID {
	return g.guard.PageID()
}

// Data returns the page buffer for reading
func (g *ReadPageGuard) Data() []byte {
	return g.guard.Data()
}

// Drop releases the shared latch, then unpins
func (g *ReadPageGuard) Drop() {
	if g.guard.page != nil {
		g.guard.page.RUnlatch()
	}
	g.guard.Drop()
}

// WritePageGuard additionally holds the page latch in exclusive mode
// and marks the page dirty when dropped
type WritePageGuard struct {
	guard PageGuard
}

func newWritePageGuard(bpm *BufferPoolManager, page *Page) *WritePageGuard {
	return &WritePageGuard{guard: *newPageGuard(bpm, page)}
}

// PageID returns the guarded page's id
func (g *WritePageGuard) PageID() PageID {
	return g.guard.PageID()
}

// Data returns the page buffer for reading
func (g *WritePageGuard) Data() []byte {
	return g.guard.Data()
}

// DataMut returns the page buffer for writing
func (g *WritePageGuard) DataMut() []byte {
	return g.guard.DataMut()
}

// Drop marks the page dirty, releases the exclusive latch, then unpins
func (g *WritePageGuard) Drop() {
	if g.guard.page != nil {
		g.guard.isDirty = true
		g.guard.page.WUnlatch()
	}
	g.guard.Drop()
}
