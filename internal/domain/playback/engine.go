// Package playback sequences a chapter's segment assets as one
// continuous track: play, pause, stop, skip across segment boundaries,
// auto-advance on segment end and chapter-complete signalling.
package playback

import (
	"sync"
	"time"

	"aristo-server-go/internal/domain/audio"
	platformerrors "aristo-server-go/internal/platform/errors"
)

// Playback is one segment's active rendering. Handlers registered with
// OnEnded and OnError fire at most once each; Close detaches them and
// halts the rendering.
type Playback interface {
	Play(at float64) error
	Pause()
	Seek(pos float64)
	Position() float64
	Duration() float64
	SetVolume(v float64)
	SetRate(r float64)
	OnEnded(fn func())
	OnError(fn func(err error))
	Close()
}

// Engine creates renderings from assets. The server-side default keeps
// time with a wall clock; the actual audio output happens on the
// client, which follows the controller's progress feed.
type Engine interface {
	NewPlayback(asset *audio.Asset) (Playback, error)
}

// TimerEngine tracks playback position against the wall clock, scaled
// by the playback rate, and fires the ended handler when the segment's
// duration elapses.
type TimerEngine struct{}

func (TimerEngine) NewPlayback(asset *audio.Asset) (Playback, error) {
	if asset == nil {
		return nil, platformerrors.New(platformerrors.KindPlayback, "playback.NewPlayback",
			"nil audio asset")
	}
	if asset.Released() {
		return nil, platformerrors.New(platformerrors.KindPlayback, "playback.NewPlayback",
			"audio asset was released")
	}
	if asset.DurationSeconds <= 0 {
		return nil, platformerrors.New(platformerrors.KindPlayback, "playback.NewPlayback",
			"audio asset has no duration")
	}
	return &timerPlayback{
		duration: asset.DurationSeconds,
		rate:     1.0,
		volume:   1.0,
	}, nil
}

type timerPlayback struct {
	mu       sync.Mutex
	duration float64
	volume   float64
	rate     float64

	position  float64
	playing   bool
	startedAt time.Time
	timer     *time.Timer

	onEnded func()
	onError func(error)
	closed  bool
	ended   bool
}

func (p *timerPlayback) Play(at float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return platformerrors.New(platformerrors.KindPlayback, "playback.Play",
			"playback already closed")
	}
	if at < 0 {
		at = 0
	}
	if at > p.duration {
		at = p.duration
	}
	p.position = at
	p.playing = true
	p.startedAt = time.Now()
	p.rearmLocked()
	return nil
}

// rearmLocked schedules the ended handler for the remaining scaled
// play time. Callers hold p.mu.
func (p *timerPlayback) rearmLocked() {
	if p.timer != nil {
		p.timer.Stop()
	}
	remaining := (p.duration - p.position) / p.rate
	if remaining < 0 {
		remaining = 0
	}
	p.timer = time.AfterFunc(time.Duration(remaining*float64(time.Second)), p.fireEnded)
}

func (p *timerPlayback) fireEnded() {
	p.mu.Lock()
	if p.closed || p.ended || !p.playing {
		p.mu.Unlock()
		return
	}
	p.ended = true
	p.playing = false
	p.position = p.duration
	fn := p.onEnded
	p.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (p *timerPlayback) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return
	}
	p.position = p.positionLocked()
	p.playing = false
	if p.timer != nil {
		p.timer.Stop()
	}
}

func (p *timerPlayback) Seek(pos float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pos < 0 {
		pos = 0
	}
	if pos > p.duration {
		pos = p.duration
	}
	p.position = pos
	if p.playing {
		p.startedAt = time.Now()
		p.rearmLocked()
	}
}

func (p *timerPlayback) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

func (p *timerPlayback) positionLocked() float64 {
	if !p.playing {
		return p.position
	}
	pos := p.position + time.Since(p.startedAt).Seconds()*p.rate
	if pos > p.duration {
		pos = p.duration
	}
	return pos
}

func (p *timerPlayback) Duration() float64 { return p.duration }

func (p *timerPlayback) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	p.volume = v
}

func (p *timerPlayback) SetRate(r float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r <= 0 {
		return
	}
	if p.playing {
		p.position = p.positionLocked()
		p.startedAt = time.Now()
		p.rate = r
		p.rearmLocked()
		return
	}
	p.rate = r
}

func (p *timerPlayback) OnEnded(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onEnded = fn
}

func (p *timerPlayback) OnError(fn func(err error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onError = fn
}

func (p *timerPlayback) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.playing = false
	if p.timer != nil {
		p.timer.Stop()
	}
	p.onEnded = nil
	p.onError = nil
}
