// Package eventbus carries in-process notifications between the
// playback controller, the generation pipeline and the transports.
package eventbus

import (
	"sync"

	evbus "github.com/asaskevich/EventBus"
)

// Topics published by the reader domain. Subscribers receive the
// publisher's payload arguments as-is.
const (
	TopicPlaybackSegment  = "playback:segment"  // (segmentIndex int)
	TopicPlaybackProgress = "playback:progress" // (snapshot playback.Progress)
	TopicPlaybackComplete = "playback:complete" // ()
	TopicAudioGenerated   = "audio:generated"   // (chapterID string, segments int)
	TopicAudioError       = "audio:error"       // (chapterID string, err error)
)

var (
	instance evbus.Bus
	once     sync.Once
)

// Get returns the process-wide synchronous bus.
func Get() evbus.Bus {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New creates an independent bus, used by tests that must not observe
// each other's events.
func New() evbus.Bus {
	return evbus.New()
}

// Publish delivers an event on the shared bus.
func Publish(topic string, args ...interface{}) {
	Get().Publish(topic, args...)
}

// Subscribe registers fn for topic on the shared bus.
func Subscribe(topic string, fn interface{}) error {
	return Get().Subscribe(topic, fn)
}

// Unsubscribe removes a handler registered with Subscribe.
func Unsubscribe(topic string, fn interface{}) error {
	return Get().Unsubscribe(topic, fn)
}
