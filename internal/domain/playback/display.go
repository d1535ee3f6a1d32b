package playback

import "sync"

// Synchronizer maps continuous playback time onto the finer display
// segmentation used for visual tracking. Each synthesis segment is
// assumed to cover an equal share of the display segments; the
// fractional progress through the active synthesis segment
// interpolates within that share.
type Synchronizer struct {
	mu             sync.Mutex
	totalDisplay   int
	totalSynthesis int
	lastIndex      int
}

// NewSynchronizer sizes the mapping. Either count may be zero while a
// chapter has no audio; Update then reports no index.
func NewSynchronizer(totalDisplay, totalSynthesis int) *Synchronizer {
	return &Synchronizer{
		totalDisplay:   totalDisplay,
		totalSynthesis: totalSynthesis,
		lastIndex:      -1,
	}
}

// Update recomputes the display index for the given playback position
// and reports whether it changed since the previous call, so the view
// only re-renders on an actual move.
func (s *Synchronizer) Update(segmentIndex int, position, duration float64) (int, bool) {
	idx := s.Index(segmentIndex, position, duration)

	s.mu.Lock()
	defer s.mu.Unlock()
	if idx == s.lastIndex {
		return idx, false
	}
	s.lastIndex = idx
	return idx, true
}

// Index computes the display segment for a playback position without
// touching the change tracking.
func (s *Synchronizer) Index(segmentIndex int, position, duration float64) int {
	if s.totalDisplay <= 0 || s.totalSynthesis <= 0 {
		return -1
	}

	perSegment := float64(s.totalDisplay) / float64(s.totalSynthesis)
	fraction := 0.0
	if duration > 0 {
		fraction = position / duration
		if fraction > 1 {
			fraction = 1
		}
		if fraction < 0 {
			fraction = 0
		}
	}

	idx := int(float64(segmentIndex)*perSegment + fraction*perSegment)
	if idx >= s.totalDisplay {
		idx = s.totalDisplay - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// Current returns the last reported index, -1 before the first tick.
func (s *Synchronizer) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastIndex
}

// Reset clears the change tracking when playback stops or the chapter
// changes.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	s.lastIndex = -1
	s.mu.Unlock()
}
