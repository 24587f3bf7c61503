package storage

// AccessType classifies a page access. The policies here do not treat
// access types differently, but the hint is carried so callers (scans,
// index probes) can record it.
type AccessType int

const (
	AccessUnknown AccessType = iota
	AccessLookup
	AccessScan
	AccessIndex
)

// Replacer decides which frame to evict when the buffer pool is full.
// Frames become known to the replacer on their first recorded access
// and are evictable by default; the buffer pool pins resident pages by
// flipping evictability off.
//
// All implementations must treat an out-of-range frame ID as a
// programmer error and panic.
type Replacer interface {
	// RecordAccess notes an access to the frame, creating its history
	// on first contact
	RecordAccess(frameID FrameID, accessType AccessType)

	// Evict selects and removes a victim frame.
	// Returns false if every tracked frame is non-evictable or the
	// replacer is empty.
	Evict() (FrameID, bool)

	// SetEvictable toggles whether the frame may be chosen as a victim.
	// A no-op for unknown frames and redundant toggles.
	SetEvictable(frameID FrameID, evictable bool)

	// Remove drops a frame from the replacer entirely.
	// A no-op for unknown or non-evictable frames.
	Remove(frameID FrameID)

	// Size returns the number of evictable frames
	Size() int
}

// NewReplacer creates a replacer for the given eviction policy.
// k is the LRU-K history depth and is ignored by policies without one.
func NewReplacer(policy string, numFrames, k int) Replacer {
	switch policy {
	case "lru":
		return NewLRUReplacer(numFrames)
	case "lruk":
		return NewLRUKReplacer(numFrames, k)
	default:
		return NewLRUKReplacer(numFrames, k)
	}
}
