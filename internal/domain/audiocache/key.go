// Package audiocache is the tiered audio store: a session-lifetime
// memory map in front of a persisted backend, keyed by entity plus
// voice and model, with a fallback to any previously generated voice
// before a caller decides to regenerate.
package audiocache

import "fmt"

// Entity kinds addressable by the cache.
const (
	KindChapter   = "chapter"
	KindNote      = "note"
	KindHighlight = "highlight"
)

// Key identifies one cached audio value. Entries for the same entity
// may exist under several voice/model combinations at once; generating
// a new combination never evicts the others.
type Key struct {
	Kind  string
	ID    string
	Voice string
	Model string
}

// String renders the canonical cache key form.
func (k Key) String() string {
	return fmt.Sprintf("%s-%s-%s-%s", k.Kind, k.ID, k.Voice, k.Model)
}

// SameEntity reports whether other addresses the same entity,
// ignoring voice and model.
func (k Key) SameEntity(other Key) bool {
	return k.Kind == other.Kind && k.ID == other.ID
}
