package storage

import (
	"container/list"
	"fmt"
	"sync"
)

// LRUKReplacer implements the LRU-K eviction policy.
//
// Frames with fewer than k recorded accesses sit in an infinite-history
// list ordered by first access (FIFO); their backward k-distance is
// unbounded, so they are always preferred as victims. Once a frame
// accumulates k accesses it is promoted to the history list, which is
// maintained in LRU order by subsequent accesses. Eviction scans the
// infinite-history list first and falls back to the history list only
// when every cold frame is pinned.
type LRUKReplacer struct {
	numFrames int
	k         int

	infList   *list.List // count < k, oldest first
	infElems  map[FrameID]*list.Element
	histList  *list.List // count >= k, least recently used first
	histElems map[FrameID]*list.Element

	counts       map[FrameID]int
	nonEvictable map[FrameID]struct{}
	currSize     int

	latch sync.Mutex
}

// NewLRUKReplacer creates a replacer tracking up to numFrames frames
// with a history depth of k
func NewLRUKReplacer(numFrames, k int) *LRUKReplacer {
	return &LRUKReplacer{
		numFrames:    numFrames,
		k:            k,
		infList:      list.New(),
		infElems:     make(map[FrameID]*list.Element),
		histList:     list.New(),
		histElems:    make(map[FrameID]*list.Element),
		counts:       make(map[FrameID]int),
		nonEvictable: make(map[FrameID]struct{}),
	}
}

// checkFrame panics on a frame ID outside the configured range
func (r *LRUKReplacer) checkFrame(frameID FrameID) {
	if frameID < 0 || int(frameID) >= r.numFrames {
		panic(fmt.Sprintf("LRUKReplacer: frame id %d out of range [0, %d)", frameID, r.numFrames))
	}
}

// RecordAccess notes an access to the frame. The first access enters
// the frame into the infinite-history list as evictable; the k-th
// access promotes it to the history list (with k=1 the first access
// places it there directly); later accesses refresh its position there.
func (r *LRUKReplacer) RecordAccess(frameID FrameID, accessType AccessType) {
	r.checkFrame(frameID)
	r.latch.Lock()
	defer r.latch.Unlock()

	count, tracked := r.counts[frameID]
	if !tracked {
		if r.k <= 1 {
			r.histElems[frameID] = r.histList.PushBack(frameID)
		} else {
			r.infElems[frameID] = r.infList.PushBack(frameID)
		}
		r.counts[frameID] = 1
		r.currSize++
		return
	}

	if count >= r.k {
		// Already promoted: refresh LRU position
		r.histList.Remove(r.histElems[frameID])
		r.histElems[frameID] = r.histList.PushBack(frameID)
		r.counts[frameID] = count + 1
		return
	}

	count++
	r.counts[frameID] = count
	if count >= r.k {
		r.infList.Remove(r.infElems[frameID])
		delete(r.infElems, frameID)
		r.histElems[frameID] = r.histList.PushBack(frameID)
	}
}

// Evict selects the victim frame and removes it from the replacer.
// Cold frames (fewer than k accesses) are scanned first in FIFO order,
// then promoted frames in LRU order.
func (r *LRUKReplacer) Evict() (FrameID, bool) {
	r.latch.Lock()
	defer r.latch.Unlock()

	if r.currSize == 0 {
		return 0, false
	}

	for e := r.infList.Front(); e != nil; e = e.Next() {
		frameID := e.Value.(FrameID)
		if _, pinned := r.nonEvictable[frameID]; pinned {
			continue
		}
		r.infList.Remove(e)
		delete(r.infElems, frameID)
		delete(r.counts, frameID)
		r.currSize--
		return frameID, true
	}

	for e := r.histList.Front(); e != nil; e = e.Next() {
		frameID := e.Value.(FrameID)
		if _, pinned := r.nonEvictable[frameID]; pinned {
			continue
		}
		r.histList.Remove(e)
		delete(r.histElems, frameID)
		delete(r.counts, frameID)
		r.currSize--
		return frameID, true
	}

	return 0, false
}

// SetEvictable toggles the frame's evictability, adjusting the count of
// evictable frames. Unknown frames and redundant toggles are no-ops.
func (r *LRUKReplacer) SetEvictable(frameID FrameID, evictable bool) {
	r.checkFrame(frameID)
	r.latch.Lock()
	defer r.latch.Unlock()

	if _, tracked := r.counts[frameID]; !tracked {
		return
	}
	_, pinned := r.nonEvictable[frameID]
	if !pinned && !evictable {
		r.nonEvictable[frameID] = struct{}{}
		r.currSize--
	}
	if pinned && evictable {
		delete(r.nonEvictable, frameID)
		r.currSize++
	}
}

// Remove drops the frame and its history from the replacer.
// No-op for unknown frames; removing a non-evictable frame is
// forbidden and silently ignored.
func (r *LRUKReplacer) Remove(frameID FrameID) {
	r.checkFrame(frameID)
	r.latch.Lock()
	defer r.latch.Unlock()

	count, tracked := r.counts[frameID]
	if !tracked {
		return
	}
	if _, pinned := r.nonEvictable[frameID]; pinned {
		return
	}
	if count >= r.k {
		r.histList.Remove(r.histElems[frameID])
		delete(r.histElems, frameID)
	} else {
		r.infList.Remove(r.infElems[frameID])
		delete(r.infElems, frameID)
	}
	delete(r.counts, frameID)
	r.currSize--
}

// Size returns the number of evictable frames
func (r *LRUKReplacer) Size() int {
	r.latch.Lock()
	defer r.latch.Unlock()
	return r.currSize
}
