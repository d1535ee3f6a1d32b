package audiocache

import (
	"context"
	"sync"
	"time"

	"aristo-server-go/internal/domain/audio"
	platformerrors "aristo-server-go/internal/platform/errors"
	"aristo-server-go/internal/platform/logging"
)

// Cache fronts the persisted tier with a session-lifetime memory map.
// Lookup order, each tier short-circuiting on a hit:
//
//  1. memory, exact (kind,id,voice,model)
//  2. memory, any voice/model for the same entity
//  3. persisted, exact
//  4. persisted, any voice/model
//
// Every hit below tier 1 is written back into memory under the
// currently requested key, so repeat lookups for the active settings
// stay in memory. Persistence failures are logged and never propagate;
// the memory copy keeps the session working.
type Cache struct {
	mu       sync.RWMutex
	chapters map[Key][]*audio.Asset
	entities map[Key]*audio.Asset

	persisted     Persisted
	decodeTimeout time.Duration
	logger        *logging.Logger

	hits       uint64
	misses     uint64
	promotions uint64
}

// New builds the cache over a persisted tier. decodeTimeout bounds the
// duration probe applied to payloads loaded from persistence.
func New(persisted Persisted, decodeTimeout time.Duration, logger *logging.Logger) *Cache {
	if decodeTimeout <= 0 {
		decodeTimeout = 5 * time.Second
	}
	return &Cache{
		chapters:      make(map[Key][]*audio.Asset),
		entities:      make(map[Key]*audio.Asset),
		persisted:     persisted,
		decodeTimeout: decodeTimeout,
		logger:        logger,
	}
}

// ChapterAudio resolves the ordered per-segment assets for a chapter.
// Nil slots mark segments whose synthesis failed and are preserved
// through every tier. texts carries the per-segment source text, which
// the persisted tier does not store; assets rebuilt from persistence
// are re-attached to it by index. The second return is false only on a
// full miss.
func (c *Cache) ChapterAudio(ctx context.Context, key Key, texts []string) ([]*audio.Asset, bool) {
	c.mu.Lock()
	if assets, ok := c.chapters[key]; ok {
		c.hits++
		c.mu.Unlock()
		return assets, true
	}
	for stored, assets := range c.chapters {
		if stored.SameEntity(key) {
			c.chapters[key] = assets
			c.hits++
			c.promotions++
			c.mu.Unlock()
			return assets, true
		}
	}
	c.mu.Unlock()

	segments, err := c.persisted.LoadChapter(ctx, key)
	if err != nil && platformerrors.IsNotFound(err) {
		_, segments, err = c.persisted.LoadChapterAny(ctx, key.ID)
	}
	if err != nil {
		if !platformerrors.IsNotFound(err) {
			c.warn("persisted chapter lookup failed for %s: %v", key, err)
		}
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	assets := c.buildAssets(ctx, key, segments, texts)
	c.mu.Lock()
	c.chapters[key] = assets
	c.hits++
	c.promotions++
	c.mu.Unlock()
	return assets, true
}

// PutChapter stores a freshly generated chapter in memory and writes
// it through to the persisted tier.
func (c *Cache) PutChapter(ctx context.Context, key Key, assets []*audio.Asset) {
	c.mu.Lock()
	c.chapters[key] = assets
	c.mu.Unlock()

	segments := make([][]byte, len(assets))
	for i, asset := range assets {
		if asset != nil {
			segments[i] = asset.Bytes()
		}
	}
	if err := c.persisted.SaveChapter(ctx, key, segments); err != nil {
		c.warn("persisting chapter audio failed for %s: %v", key, err)
	}
}

// EntityAudio resolves the single asset for a note or highlight,
// walking the same tiers as ChapterAudio. sourceText is attached to
// assets rebuilt from the persisted tier.
func (c *Cache) EntityAudio(ctx context.Context, key Key, sourceText string) (*audio.Asset, bool) {
	c.mu.Lock()
	if asset, ok := c.entities[key]; ok {
		c.hits++
		c.mu.Unlock()
		return asset, true
	}
	for stored, asset := range c.entities {
		if stored.SameEntity(key) {
			c.entities[key] = asset
			c.hits++
			c.promotions++
			c.mu.Unlock()
			return asset, true
		}
	}
	c.mu.Unlock()

	data, err := c.persisted.LoadEntity(ctx, key)
	if err != nil && platformerrors.IsNotFound(err) {
		_, data, err = c.persisted.LoadEntityAny(ctx, key.Kind, key.ID)
	}
	if err != nil {
		if !platformerrors.IsNotFound(err) {
			c.warn("persisted entity lookup failed for %s: %v", key, err)
		}
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	decodeCtx, cancel := context.WithTimeout(ctx, c.decodeTimeout)
	asset, err := audio.NewAsset(decodeCtx, data, sourceText)
	cancel()
	if err != nil {
		c.warn("decoding persisted audio failed for %s: %v", key, err)
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.entities[key] = asset
	c.hits++
	c.promotions++
	c.mu.Unlock()
	return asset, true
}

// PutEntity stores a freshly generated note or highlight asset in
// memory and writes it through to the persisted tier.
func (c *Cache) PutEntity(ctx context.Context, key Key, asset *audio.Asset) {
	c.mu.Lock()
	c.entities[key] = asset
	c.mu.Unlock()

	if err := c.persisted.SaveEntity(ctx, key, asset.Bytes()); err != nil {
		c.warn("persisting entity audio failed for %s: %v", key, err)
	}
}

// buildAssets turns persisted payloads back into playable assets,
// re-attaching the per-segment source text by index. A slot that fails
// to decode becomes nil, same as a failed synthesis.
func (c *Cache) buildAssets(ctx context.Context, key Key, segments [][]byte, texts []string) []*audio.Asset {
	assets := make([]*audio.Asset, len(segments))
	for i, data := range segments {
		if data == nil {
			continue
		}
		sourceText := ""
		if i < len(texts) {
			sourceText = texts[i]
		}
		decodeCtx, cancel := context.WithTimeout(ctx, c.decodeTimeout)
		asset, err := audio.NewAsset(decodeCtx, data, sourceText)
		cancel()
		if err != nil {
			c.warn("decoding persisted segment %d failed for %s: %v", i, key, err)
			continue
		}
		assets[i] = asset
	}
	return assets
}

// Stats reports memory-tier counters merged with the persisted tier's
// own numbers.
func (c *Cache) Stats(ctx context.Context) map[string]any {
	c.mu.RLock()
	stats := map[string]any{
		"memory_chapters": len(c.chapters),
		"memory_entities": len(c.entities),
		"hits":            c.hits,
		"misses":          c.misses,
		"promotions":      c.promotions,
	}
	c.mu.RUnlock()

	persisted, err := c.persisted.Stats(ctx)
	if err != nil {
		c.warn("persisted stats failed: %v", err)
		return stats
	}
	stats["persisted"] = persisted
	return stats
}

// Clear releases every memory-held asset and drops the map entries.
// With includePersisted the persisted tier is wiped too.
func (c *Cache) Clear(ctx context.Context, includePersisted bool) error {
	c.mu.Lock()
	released := make(map[*audio.Asset]bool)
	for _, assets := range c.chapters {
		for _, asset := range assets {
			if asset != nil && !released[asset] {
				asset.Release()
				released[asset] = true
			}
		}
	}
	for _, asset := range c.entities {
		if asset != nil && !released[asset] {
			asset.Release()
			released[asset] = true
		}
	}
	c.chapters = make(map[Key][]*audio.Asset)
	c.entities = make(map[Key]*audio.Asset)
	c.mu.Unlock()

	if !includePersisted {
		return nil
	}
	return c.persisted.Clear(ctx)
}

// Close shuts down the persisted tier.
func (c *Cache) Close(ctx context.Context) error {
	return c.persisted.Close(ctx)
}

func (c *Cache) warn(format string, args ...any) {
	if c.logger != nil {
		c.logger.WarnTag("Audio", format, args...)
	}
}
