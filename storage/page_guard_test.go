package storage

import (
	"sync"
	"testing"
)

// TestBasicPageGuard tests pin release on drop
func TestBasicPageGuard(t *testing.T) {
	bpm := newTestPool(t, 3, 2)
	defer bpm.Close()

	p, err := bpm.NewPage()
	if err != nil {
		t.Fatalf("NewPage failed: %v", err)
	}
	id := p.ID()
	bpm.UnpinPage(id, false)

	guard, err := bpm.FetchPageBasic(id)
	if err != nil {
		t.Fatalf("FetchPageBasic failed: %v", err)
	}
	if guard.PageID() != id {
		t.Errorf("Expected guard over page %d, got %d", id, guard.PageID())
	}
	if p.PinCount() != 1 {
		t.Errorf("Expected pin count 1, got %d", p.PinCount())
	}

	guard.Drop()
	if p.PinCount() != 0 {
		t.Errorf("Expected pin count 0 after drop, got %d", p.PinCount())
	}

	// Double drop is safe
	guard.Drop()
	if p.PinCount() != 0 {
		t.Errorf("Expected pin count to stay 0, got %d", p.PinCount())
	}
}

// TestGuardDirtyPropagation tests that DataMut marks the page dirty
func TestGuardDirtyPropagation(t *testing.T) {
	bpm := newTestPool(t, 3, 2)
	defer bpm.Close()

	p, err := bpm.NewPage()
	if err != nil {
		t.Fatalf("NewPage failed: %v", err)
	}
	id := p.ID()
	bpm.UnpinPage(id, false)
	bpm.FlushPage(id) // start clean

	guard, err := bpm.FetchPageBasic(id)
	if err != nil {
		t.Fatalf("FetchPageBasic failed: %v", err)
	}
	copy(guard.DataMut(), "dirtied")
	guard.Drop()

	if !p.IsDirty() {
		t.Error("DataMut should dirty the page through the guard")
	}
}

// TestReadPageGuard tests shared latching
func TestReadPageGuard(t *testing.T) {
	bpm := newTestPool(t, 3, 2)
	defer bpm.Close()

	p, err := bpm.NewPage()
	if err != nil {
		t.Fatalf("NewPage failed: %v", err)
	}
	id := p.ID()
	bpm.UnpinPage(id, false)

	g1, err := bpm.FetchPageRead(id)
	if err != nil {
		t.Fatalf("FetchPageRead failed: %v", err)
	}
	// A second reader coexists
	g2, err := bpm.FetchPageRead(id)
	if err != nil {
		t.Fatalf("Second FetchPageRead failed: %v", err)
	}

	if p.latch.ReaderCount() != 2 {
		t.Errorf("Expected 2 latch readers, got %d", p.latch.ReaderCount())
	}
	if p.latch.TryLock() {
		t.Error("Writer should be blocked while readers hold the latch")
		p.latch.Unlock()
	}

	g1.Drop()
	g2.Drop()
	if p.PinCount() != 0 {
		t.Errorf("Expected pin count 0, got %d", p.PinCount())
	}
	if p.latch.ReaderCount() != 0 {
		t.Errorf("Expected 0 latch readers, got %d", p.latch.ReaderCount())
	}
}

// TestWritePageGuard tests exclusive latching and dirty-on-drop
func TestWritePageGuard(t *testing.T) {
	bpm := newTestPool(t, 3, 2)
	defer bpm.Close()

	p, err := bpm.NewPage()
	if err != nil {
		t.Fatalf("NewPage failed: %v", err)
	}
	id := p.ID()
	bpm.UnpinPage(id, false)
	bpm.FlushPage(id)

	guard, err := bpm.FetchPageWrite(id)
	if err != nil {
		t.Fatalf("FetchPageWrite failed: %v", err)
	}
	if !p.latch.WriterActive() {
		t.Error("Write guard should hold the exclusive latch")
	}
	copy(guard.DataMut(), "written")
	guard.Drop()

	if p.latch.WriterActive() {
		t.Error("Drop should release the exclusive latch")
	}
	if !p.IsDirty() {
		t.Error("Write guard should dirty the page on drop")
	}
	if p.PinCount() != 0 {
		t.Errorf("Expected pin count 0 after drop, got %d", p.PinCount())
	}
}

// TestInertGuard tests guards over failed fetches
func TestInertGuard(t *testing.T) {
	bpm := newTestPool(t, 1, 2)
	defer bpm.Close()

	p, err := bpm.NewPage()
	if err != nil {
		t.Fatalf("NewPage failed: %v", err)
	}

	// Pool is fully pinned: the guarded fetch fails
	guard, err := bpm.FetchPageBasic(p.ID() + 1000)
	if err == nil {
		t.Error("Fetch with a full pool should fail")
	}
	if guard.PageID() != InvalidPageID {
		t.Errorf("Inert guard should report InvalidPageID, got %d", guard.PageID())
	}
	if guard.Data() != nil {
		t.Error("Inert guard should have no data")
	}
	guard.Drop() // must not panic or unpin anything

	if p.PinCount() != 1 {
		t.Errorf("Inert drop changed an unrelated pin count to %d", p.PinCount())
	}
}

// TestGuardedWritersSerialize tests write guards under contention
func TestGuardedWritersSerialize(t *testing.T) {
	bpm := newTestPool(t, 3, 2)
	defer bpm.Close()

	p, err := bpm.NewPage()
	if err != nil {
		t.Fatalf("NewPage failed: %v", err)
	}
	id := p.ID()
	bpm.UnpinPage(id, false)

	const writers = 4
	const rounds = 200

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				guard, err := bpm.FetchPageWrite(id)
				if err != nil {
					t.Errorf("FetchPageWrite failed: %v", err)
					return
				}
				// Read-modify-write of a counter in the page
				data := guard.DataMut()
				v := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
				v++
				data[0], data[1], data[2], data[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
				guard.Drop()
			}
		}()
	}
	wg.Wait()

	guard, err := bpm.FetchPageRead(id)
	if err != nil {
		t.Fatalf("FetchPageRead failed: %v", err)
	}
	defer guard.Drop()
	data := guard.Data()
	v := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
	if v != writers*rounds {
		t.Errorf("Expected counter %d, got %d", writers*rounds, v)
	}
}
