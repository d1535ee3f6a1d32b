package playback

import (
	"sync"
	"time"

	evbus "github.com/asaskevich/EventBus"

	"aristo-server-go/internal/domain/audio"
	"aristo-server-go/internal/domain/eventbus"
	platformerrors "aristo-server-go/internal/platform/errors"
	"aristo-server-go/internal/platform/logging"
)

// State of the controller's track-level machine.
type State int

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "stopped"
	}
}

// Progress is one snapshot of track position, published on every tick
// and served to the progress endpoints.
type Progress struct {
	SegmentIndex int     `json:"segment_index"`
	DisplayIndex int     `json:"display_index"`
	Elapsed      float64 `json:"elapsed_seconds"`
	Total        float64 `json:"total_seconds"`
	Percentage   float64 `json:"percentage"`
	State        string  `json:"state"`
}

// Controller sequences a chapter's ordered segment assets as one
// continuous track. Exactly one segment renders at a time; segment-end
// and segment-error both advance to the next index, nil slots are
// skipped, and running past the last index emits chapter-complete
// rather than auto-advancing to another chapter.
//
// All operations serialize on one mutex, so a play or skip arriving
// while a segment switch is resolving is sequenced after it. Loading
// new segments bumps the session counter, which orphans callbacks
// still in flight from the previous chapter.
type Controller struct {
	mu       sync.Mutex
	engine   Engine
	bus      evbus.Bus
	logger   *logging.Logger
	interval time.Duration

	session  uint64
	segments []*audio.Asset
	current  int
	state    State
	active   Playback
	sync     *Synchronizer

	volume float64
	rate   float64

	tickerStop chan struct{}
}

// NewController builds a stopped controller with nothing loaded.
func NewController(engine Engine, bus evbus.Bus, logger *logging.Logger) *Controller {
	return &Controller{
		engine:   engine,
		bus:      bus,
		logger:   logger,
		interval: 250 * time.Millisecond,
		volume:   1.0,
		rate:     1.0,
	}
}

// Load replaces the track with a new chapter's segments and resets to
// Stopped at index zero. displaySegments sizes the display mapping.
func (c *Controller) Load(segments []*audio.Asset, displaySegments int) {
	c.mu.Lock()
	c.session++
	c.teardownActiveLocked()
	c.stopTickerLocked()
	c.segments = segments
	c.current = 0
	c.state = StateStopped
	c.sync = NewSynchronizer(displaySegments, len(segments))
	c.mu.Unlock()
}

// Play starts the track, or resumes in place when paused.
func (c *Controller) Play() error {
	c.mu.Lock()
	if len(c.segments) == 0 {
		c.mu.Unlock()
		return platformerrors.New(platformerrors.KindPlayback, "playback.Play",
			"no segments loaded")
	}
	if c.state == StatePlaying {
		c.mu.Unlock()
		return nil
	}
	if c.state == StatePaused && c.active != nil {
		if err := c.active.Play(c.active.Position()); err != nil {
			c.mu.Unlock()
			return err
		}
		c.state = StatePlaying
		c.startTickerLocked()
		c.mu.Unlock()
		return nil
	}

	completed := c.playSegmentLocked(c.current, 0)
	if !completed {
		c.startTickerLocked()
	}
	c.mu.Unlock()

	if completed {
		c.publishComplete()
	}
	return nil
}

// Pause halts the active segment in place.
func (c *Controller) Pause() {
	c.mu.Lock()
	if c.state == StatePlaying && c.active != nil {
		c.active.Pause()
		c.state = StatePaused
	}
	c.stopTickerLocked()
	c.mu.Unlock()
}

// Stop halts and rewinds the track to segment zero.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.completeLocked()
	c.mu.Unlock()

	c.publishProgress()
}

// Skip moves the track position by delta seconds, crossing segment
// boundaries in either direction. The target clamps to the track
// bounds; skipping past the end completes the chapter.
func (c *Controller) Skip(delta float64) error {
	c.mu.Lock()
	if len(c.segments) == 0 {
		c.mu.Unlock()
		return platformerrors.New(platformerrors.KindPlayback, "playback.Skip",
			"no segments loaded")
	}

	total := c.totalLocked()
	target := c.elapsedLocked() + delta
	if target < 0 {
		target = 0
	}
	if total > 0 && target >= total {
		c.completeLocked()
		c.mu.Unlock()
		c.publishComplete()
		return nil
	}

	idx, remainder := c.locateLocked(target)
	if idx == c.current && c.active != nil {
		c.active.Seek(remainder)
		c.mu.Unlock()
		return nil
	}

	wasPlaying := c.state == StatePlaying
	c.teardownActiveLocked()
	if !wasPlaying {
		// Remember the landing point; the next Play starts there.
		c.current = idx
		c.bindPausedLocked(idx, remainder)
		c.mu.Unlock()
		return nil
	}

	completed := c.playSegmentLocked(idx, remainder)
	c.mu.Unlock()
	if completed {
		c.publishComplete()
	}
	return nil
}

// SetVolume clamps v to [0,1] and applies it to the active segment.
func (c *Controller) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	c.mu.Lock()
	c.volume = v
	if c.active != nil {
		c.active.SetVolume(v)
	}
	c.mu.Unlock()
}

// SetRate applies a positive playback rate to the active segment.
func (c *Controller) SetRate(r float64) {
	if r <= 0 {
		return
	}
	c.mu.Lock()
	c.rate = r
	if c.active != nil {
		c.active.SetRate(r)
	}
	c.mu.Unlock()
}

// State reports the current machine state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Progress computes the track-level snapshot on demand.
func (c *Controller) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progressLocked()
}

// playSegmentLocked starts rendering at index i, position at, skipping
// nil slots and segments the engine rejects. Returns true when the
// walk ran past the last index, which completes the chapter.
func (c *Controller) playSegmentLocked(i int, at float64) bool {
	for ; i < len(c.segments); i++ {
		asset := c.segments[i]
		if asset == nil {
			c.warn("segment %d has no audio, skipping", i)
			at = 0
			continue
		}

		pb, err := c.engine.NewPlayback(asset)
		if err != nil {
			c.warn("segment %d not playable: %v", i, err)
			at = 0
			continue
		}

		session := c.session
		idx := i
		pb.OnEnded(func() {
			c.advance(session, idx)
		})
		pb.OnError(func(err error) {
			c.warn("segment %d playback failed: %v", idx, err)
			c.advance(session, idx)
		})
		pb.SetVolume(c.volume)
		pb.SetRate(c.rate)

		if err := pb.Play(at); err != nil {
			c.warn("segment %d failed to start: %v", i, err)
			pb.Close()
			at = 0
			continue
		}

		c.active = pb
		c.current = i
		c.state = StatePlaying
		return false
	}

	c.completeLocked()
	return true
}

// bindPausedLocked prepares index i paused at the given position so a
// later Play resumes there. Failures leave the index set with no
// active rendering, which a later Play recovers from.
func (c *Controller) bindPausedLocked(i int, at float64) {
	asset := c.segments[i]
	if asset == nil {
		return
	}
	pb, err := c.engine.NewPlayback(asset)
	if err != nil {
		c.warn("segment %d not playable: %v", i, err)
		return
	}

	session := c.session
	idx := i
	pb.OnEnded(func() {
		c.advance(session, idx)
	})
	pb.OnError(func(err error) {
		c.warn("segment %d playback failed: %v", idx, err)
		c.advance(session, idx)
	})
	pb.SetVolume(c.volume)
	pb.SetRate(c.rate)
	pb.Seek(at)

	c.active = pb
	c.state = StatePaused
}

// advance is the shared ended/error path: tear down the finished
// segment and start the next one. Callbacks from a superseded session
// or a non-playing state are ignored.
func (c *Controller) advance(session uint64, from int) {
	c.mu.Lock()
	if session != c.session || c.state != StatePlaying {
		c.mu.Unlock()
		return
	}
	c.teardownActiveLocked()
	completed := c.playSegmentLocked(from+1, 0)
	c.mu.Unlock()

	if completed {
		c.publishComplete()
	}
}

func (c *Controller) completeLocked() {
	c.teardownActiveLocked()
	c.stopTickerLocked()
	c.current = 0
	c.state = StateStopped
	if c.sync != nil {
		c.sync.Reset()
	}
}

func (c *Controller) teardownActiveLocked() {
	if c.active != nil {
		c.active.Close()
		c.active = nil
	}
}

func (c *Controller) startTickerLocked() {
	if c.tickerStop != nil {
		return
	}
	stop := make(chan struct{})
	c.tickerStop = stop
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.tick()
			}
		}
	}()
}

func (c *Controller) stopTickerLocked() {
	if c.tickerStop != nil {
		close(c.tickerStop)
		c.tickerStop = nil
	}
}

func (c *Controller) tick() {
	c.mu.Lock()
	if c.state != StatePlaying {
		c.mu.Unlock()
		return
	}
	snapshot := c.progressLocked()
	var displayChanged bool
	if c.sync != nil && c.active != nil {
		var idx int
		idx, displayChanged = c.sync.Update(c.current, c.active.Position(), c.active.Duration())
		snapshot.DisplayIndex = idx
	}
	c.mu.Unlock()

	if c.bus != nil {
		c.bus.Publish(eventbus.TopicPlaybackProgress, snapshot)
		if displayChanged {
			c.bus.Publish(eventbus.TopicPlaybackSegment, snapshot.DisplayIndex)
		}
	}
}

func (c *Controller) progressLocked() Progress {
	elapsed := c.elapsedLocked()
	total := c.totalLocked()
	percentage := 0.0
	if total > 0 {
		percentage = elapsed / total
	}
	displayIdx := -1
	if c.sync != nil {
		displayIdx = c.sync.Current()
	}
	return Progress{
		SegmentIndex: c.current,
		DisplayIndex: displayIdx,
		Elapsed:      elapsed,
		Total:        total,
		Percentage:   percentage,
		State:        c.state.String(),
	}
}

// elapsedLocked sums completed segment durations plus the position
// inside the active segment.
func (c *Controller) elapsedLocked() float64 {
	elapsed := 0.0
	for i := 0; i < c.current && i < len(c.segments); i++ {
		elapsed += segmentDuration(c.segments[i])
	}
	if c.active != nil {
		elapsed += c.active.Position()
	}
	return elapsed
}

func (c *Controller) totalLocked() float64 {
	total := 0.0
	for _, asset := range c.segments {
		total += segmentDuration(asset)
	}
	return total
}

// locateLocked maps an absolute track position to a segment index and
// the remainder within it.
func (c *Controller) locateLocked(target float64) (int, float64) {
	remainder := target
	for i, asset := range c.segments {
		d := segmentDuration(asset)
		if remainder < d {
			return i, remainder
		}
		remainder -= d
	}
	last := len(c.segments) - 1
	return last, segmentDuration(c.segments[last])
}

func segmentDuration(asset *audio.Asset) float64 {
	if asset == nil {
		return 0
	}
	return asset.DurationSeconds
}

func (c *Controller) publishProgress() {
	if c.bus != nil {
		c.bus.Publish(eventbus.TopicPlaybackProgress, c.Progress())
	}
}

func (c *Controller) publishComplete() {
	c.publishProgress()
	if c.bus != nil {
		c.bus.Publish(eventbus.TopicPlaybackComplete)
	}
}

func (c *Controller) warn(format string, args ...any) {
	if c.logger != nil {
		c.logger.WarnTag("Playback", format, args...)
	}
}
