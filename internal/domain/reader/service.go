// Package reader orchestrates one reading session: chapter audio
// preparation through the cache and synthesis pipeline, note and
// highlight audio, and the persisted reading preferences.
package reader

import (
	"context"
	"fmt"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"golang.org/x/sync/singleflight"

	"aristo-server-go/internal/domain/audio"
	"aristo-server-go/internal/domain/audiocache"
	"aristo-server-go/internal/domain/eventbus"
	"aristo-server-go/internal/domain/library"
	"aristo-server-go/internal/domain/segment"
	"aristo-server-go/internal/domain/tts"
	"aristo-server-go/internal/platform/config"
	platformerrors "aristo-server-go/internal/platform/errors"
	"aristo-server-go/internal/platform/logging"
)

// PreparedChapter is everything the playback layer needs for one
// chapter: the ordered assets (nil slots for failed segments) plus the
// segmentations that produced them.
type PreparedChapter struct {
	ChapterID string
	Voice     string
	Model     string
	Assets    []*audio.Asset
	Synthesis []segment.SynthesisSegment
	Display   []segment.DisplaySegment
	FromCache bool
	Failed    int
}

// Service ties the library, the audio cache and the synthesis
// provider together.
type Service struct {
	library  *library.Service
	cache    *audiocache.Cache
	provider tts.Provider
	settings *SettingsStore
	bus      evbus.Bus
	logger   *logging.Logger

	maxChars         int
	wordsPerDisplay  int
	decodeTimeout    time.Duration
	synthesisTimeout time.Duration

	// flight collapses concurrent preparations of the same cache key
	// into one synthesis pass.
	flight singleflight.Group
}

func NewService(
	lib *library.Service,
	cache *audiocache.Cache,
	provider tts.Provider,
	settings *SettingsStore,
	bus evbus.Bus,
	cfg config.AudioConfig,
	logger *logging.Logger,
) *Service {
	maxChars := cfg.SegmentMaxChars
	if maxChars <= 0 || maxChars > tts.MaxInputChars {
		maxChars = segment.DefaultMaxChars
	}
	words := cfg.DisplayWordsPerSegment
	if words <= 0 {
		words = segment.DefaultWordsPerDisplaySegment
	}
	decodeTimeout := cfg.DecodeTimeout
	if decodeTimeout <= 0 {
		decodeTimeout = 5 * time.Second
	}
	synthesisTimeout := cfg.SynthesisTimeout
	if synthesisTimeout <= 0 {
		synthesisTimeout = 90 * time.Second
	}
	return &Service{
		library:          lib,
		cache:            cache,
		provider:         provider,
		settings:         settings,
		bus:              bus,
		logger:           logger,
		maxChars:         maxChars,
		wordsPerDisplay:  words,
		decodeTimeout:    decodeTimeout,
		synthesisTimeout: synthesisTimeout,
	}
}

// Settings returns the active reading preferences.
func (s *Service) Settings(ctx context.Context) Settings {
	return s.settings.Load(ctx)
}

// SaveSettings validates and persists new reading preferences.
func (s *Service) SaveSettings(ctx context.Context, settings Settings) error {
	return s.settings.Save(ctx, settings)
}

// PrepareChapterAudio resolves a chapter's per-segment audio for the
// active voice and model: cache tiers first, then one sequential
// synthesis pass on a full miss. A failed segment leaves a nil slot
// and the rest of the chapter still plays; only a chapter with no
// playable segment at all is an error.
func (s *Service) PrepareChapterAudio(ctx context.Context, chapterID string) (*PreparedChapter, error) {
	settings := s.settings.Load(ctx)

	chapter, err := s.library.GetChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}

	synthesis := segment.SplitForSynthesis(chapter.Content, s.maxChars)
	display := segment.SplitForDisplay(chapter.Content, s.wordsPerDisplay)
	if len(synthesis) == 0 {
		return nil, platformerrors.New(platformerrors.KindProvider, "reader.PrepareChapterAudio",
			"chapter has no text to synthesize: "+chapterID)
	}

	key := audiocache.Key{
		Kind:  audiocache.KindChapter,
		ID:    chapterID,
		Voice: settings.Voice,
		Model: settings.Model,
	}

	result, err, _ := s.flight.Do(key.String(), func() (any, error) {
		if assets, ok := s.cache.ChapterAudio(ctx, key, synthesisTexts(synthesis)); ok {
			return &PreparedChapter{
				ChapterID: chapterID,
				Voice:     settings.Voice,
				Model:     settings.Model,
				Assets:    assets,
				Synthesis: synthesis,
				Display:   display,
				FromCache: true,
				Failed:    countNil(assets),
			}, nil
		}
		return s.generateChapter(ctx, key, chapterID, settings, synthesis, display)
	})
	if err != nil {
		return nil, err
	}
	return result.(*PreparedChapter), nil
}

func (s *Service) generateChapter(
	ctx context.Context,
	key audiocache.Key,
	chapterID string,
	settings Settings,
	synthesis []segment.SynthesisSegment,
	display []segment.DisplaySegment,
) (*PreparedChapter, error) {
	s.info("generating chapter audio: chapter=%s voice=%s model=%s segments=%d",
		chapterID, settings.Voice, settings.Model, len(synthesis))

	assets := make([]*audio.Asset, len(synthesis))
	succeeded := 0
	for _, seg := range synthesis {
		asset, err := s.synthesizeAsset(ctx, seg.Text, settings.Voice, settings.Model)
		if err != nil {
			s.warn("segment %d failed for chapter %s (voice=%s model=%s): %v",
				seg.Index, chapterID, settings.Voice, settings.Model, err)
			continue
		}
		assets[seg.Index] = asset
		succeeded++
	}

	if succeeded == 0 {
		err := platformerrors.New(platformerrors.KindProvider, "reader.PrepareChapterAudio",
			fmt.Sprintf("all %d segments failed for chapter %s", len(synthesis), chapterID))
		if s.bus != nil {
			s.bus.Publish(eventbus.TopicAudioError, chapterID, err)
		}
		return nil, err
	}

	s.cache.PutChapter(ctx, key, assets)
	if s.bus != nil {
		s.bus.Publish(eventbus.TopicAudioGenerated, chapterID, succeeded)
	}

	return &PreparedChapter{
		ChapterID: chapterID,
		Voice:     settings.Voice,
		Model:     settings.Model,
		Assets:    assets,
		Synthesis: synthesis,
		Display:   display,
		Failed:    len(synthesis) - succeeded,
	}, nil
}

// CachedChapterAudio returns a chapter's audio for the active voice
// and model from the cache tiers only, never synthesizing. A full miss
// is a not-found error; the generate endpoint is the write path.
func (s *Service) CachedChapterAudio(ctx context.Context, chapterID string) ([]*audio.Asset, Settings, error) {
	settings := s.settings.Load(ctx)

	chapter, err := s.library.GetChapter(ctx, chapterID)
	if err != nil {
		return nil, settings, err
	}
	synthesis := segment.SplitForSynthesis(chapter.Content, s.maxChars)

	key := audiocache.Key{
		Kind:  audiocache.KindChapter,
		ID:    chapterID,
		Voice: settings.Voice,
		Model: settings.Model,
	}
	assets, ok := s.cache.ChapterAudio(ctx, key, synthesisTexts(synthesis))
	if !ok {
		return nil, settings, platformerrors.New(platformerrors.KindNotFound, "reader.CachedChapterAudio",
			"no cached audio for chapter "+chapterID)
	}
	return assets, settings, nil
}

// NoteAudio resolves audio for one note. Unlike chapters this is
// strict: there is a single unit of work, so any failure propagates.
// The note is loaded before the cache lookup; its text rides along so
// assets rebuilt from persistence keep their source attached.
func (s *Service) NoteAudio(ctx context.Context, noteID string) (*audio.Asset, error) {
	note, err := s.library.GetNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	text := note.Content
	if text == "" {
		text = note.SelectedText
	}

	settings := s.settings.Load(ctx)
	key := audiocache.Key{
		Kind:  audiocache.KindNote,
		ID:    noteID,
		Voice: settings.Voice,
		Model: settings.Model,
	}
	if asset, ok := s.cache.EntityAudio(ctx, key, text); ok {
		return asset, nil
	}
	return s.generateEntity(ctx, key, text)
}

// HighlightAudio resolves audio for one highlight, strict like
// NoteAudio.
func (s *Service) HighlightAudio(ctx context.Context, highlightID string) (*audio.Asset, error) {
	highlight, err := s.library.GetHighlight(ctx, highlightID)
	if err != nil {
		return nil, err
	}
	text := highlight.Content
	if text == "" {
		text = highlight.SelectedText
	}

	settings := s.settings.Load(ctx)
	key := audiocache.Key{
		Kind:  audiocache.KindHighlight,
		ID:    highlightID,
		Voice: settings.Voice,
		Model: settings.Model,
	}
	if asset, ok := s.cache.EntityAudio(ctx, key, text); ok {
		return asset, nil
	}
	return s.generateEntity(ctx, key, text)
}

func (s *Service) generateEntity(ctx context.Context, key audiocache.Key, text string) (*audio.Asset, error) {
	result, err, _ := s.flight.Do(key.String(), func() (any, error) {
		asset, err := s.synthesizeAsset(ctx, text, key.Voice, key.Model)
		if err != nil {
			return nil, err
		}
		s.cache.PutEntity(ctx, key, asset)
		return asset, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*audio.Asset), nil
}

// synthesizeAsset runs one bounded provider call and probes the
// result into a playable asset.
func (s *Service) synthesizeAsset(ctx context.Context, text, voice, model string) (*audio.Asset, error) {
	synthCtx, cancel := context.WithTimeout(ctx, s.synthesisTimeout)
	data, err := s.provider.Synthesize(synthCtx, text, voice, model)
	cancel()
	if err != nil {
		return nil, err
	}

	decodeCtx, cancel := context.WithTimeout(ctx, s.decodeTimeout)
	asset, err := audio.NewAsset(decodeCtx, data, text)
	cancel()
	return asset, err
}

// CacheStats exposes the cache counters for the debug endpoints.
func (s *Service) CacheStats(ctx context.Context) map[string]any {
	return s.cache.Stats(ctx)
}

// ClearCache drops the memory tier, and the persisted tier as well
// when includePersisted is set.
func (s *Service) ClearCache(ctx context.Context, includePersisted bool) error {
	return s.cache.Clear(ctx, includePersisted)
}

func synthesisTexts(synthesis []segment.SynthesisSegment) []string {
	texts := make([]string, len(synthesis))
	for _, seg := range synthesis {
		texts[seg.Index] = seg.Text
	}
	return texts
}

func countNil(assets []*audio.Asset) int {
	n := 0
	for _, a := range assets {
		if a == nil {
			n++
		}
	}
	return n
}

func (s *Service) info(format string, args ...any) {
	if s.logger != nil {
		s.logger.InfoTag("Audio", format, args...)
	}
}

func (s *Service) warn(format string, args ...any) {
	if s.logger != nil {
		s.logger.WarnTag("Audio", format, args...)
	}
}
