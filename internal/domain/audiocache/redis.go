package audiocache

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"aristo-server-go/internal/domain/codec"
	platformerrors "aristo-server-go/internal/platform/errors"
)

// redisStore persists audio as flat string values. Chapter values hold
// the JSON segment array, entity values a single base64 payload. The
// voice and model ride in the key so the any-voice scan can recover
// them without a second lookup.
type redisStore struct {
	client *redis.Client
	prefix string
}

func newRedisStore(cfg Config) (*redisStore, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis configuration missing")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "audio:"
	}
	return &redisStore{client: client, prefix: prefix}, nil
}

func (s *redisStore) key(k Key) string {
	return fmt.Sprintf("%s%s:%s:%s:%s", s.prefix, k.Kind, k.ID, k.Voice, k.Model)
}

// parseKey recovers voice and model from a stored key. Entity IDs are
// uuid-shaped and never contain colons, so the two rightmost fields
// are unambiguous.
func (s *redisStore) parseKey(kind, id, raw string) (Key, bool) {
	rest := strings.TrimPrefix(raw, fmt.Sprintf("%s%s:%s:", s.prefix, kind, id))
	parts := strings.Split(rest, ":")
	if len(parts) != 2 {
		return Key{}, false
	}
	return Key{Kind: kind, ID: id, Voice: parts[0], Model: parts[1]}, true
}

func (s *redisStore) SaveChapter(ctx context.Context, key Key, segments [][]byte) error {
	encoded, err := codec.EncodeSegments(segments)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindPersistence, "audiocache.SaveChapter",
			"encoding segment array failed", err)
	}
	if err := s.client.Set(ctx, s.key(key), encoded, 0).Err(); err != nil {
		return platformerrors.Wrap(platformerrors.KindPersistence, "audiocache.SaveChapter",
			"redis set failed", err)
	}
	return nil
}

func (s *redisStore) LoadChapter(ctx context.Context, key Key) ([][]byte, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Result()
	if err == redis.Nil {
		return nil, platformerrors.New(platformerrors.KindNotFound, "audiocache.LoadChapter",
			"no persisted audio for "+key.String())
	}
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindPersistence, "audiocache.LoadChapter",
			"redis get failed", err)
	}
	return codec.DecodeSegments(raw)
}

func (s *redisStore) LoadChapterAny(ctx context.Context, chapterID string) (Key, [][]byte, error) {
	found, raw, err := s.scanAny(ctx, KindChapter, chapterID)
	if err != nil {
		return Key{}, nil, err
	}
	segments, err := codec.DecodeSegments(raw)
	if err != nil {
		return Key{}, nil, err
	}
	return found, segments, nil
}

func (s *redisStore) SaveEntity(ctx context.Context, key Key, data []byte) error {
	if err := s.client.Set(ctx, s.key(key), codec.Encode(data), 0).Err(); err != nil {
		return platformerrors.Wrap(platformerrors.KindPersistence, "audiocache.SaveEntity",
			"redis set failed", err)
	}
	return nil
}

func (s *redisStore) LoadEntity(ctx context.Context, key Key) ([]byte, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Result()
	if err == redis.Nil {
		return nil, platformerrors.New(platformerrors.KindNotFound, "audiocache.LoadEntity",
			"no persisted audio for "+key.String())
	}
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindPersistence, "audiocache.LoadEntity",
			"redis get failed", err)
	}
	return codec.Decode(raw)
}

func (s *redisStore) LoadEntityAny(ctx context.Context, kind, id string) (Key, []byte, error) {
	found, raw, err := s.scanAny(ctx, kind, id)
	if err != nil {
		return Key{}, nil, err
	}
	data, err := codec.Decode(raw)
	if err != nil {
		return Key{}, nil, err
	}
	return found, data, nil
}

// scanAny finds any stored voice/model combination for an entity.
func (s *redisStore) scanAny(ctx context.Context, kind, id string) (Key, string, error) {
	pattern := fmt.Sprintf("%s%s:%s:*", s.prefix, kind, id)
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 64).Result()
		if err != nil {
			return Key{}, "", platformerrors.Wrap(platformerrors.KindPersistence, "audiocache.scanAny",
				"redis scan failed", err)
		}
		for _, rawKey := range keys {
			found, ok := s.parseKey(kind, id, rawKey)
			if !ok {
				continue
			}
			raw, err := s.client.Get(ctx, rawKey).Result()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return Key{}, "", platformerrors.Wrap(platformerrors.KindPersistence, "audiocache.scanAny",
					"redis get failed", err)
			}
			return found, raw, nil
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return Key{}, "", platformerrors.New(platformerrors.KindNotFound, "audiocache.scanAny",
		"no persisted audio for "+kind+" "+id)
}

func (s *redisStore) Stats(ctx context.Context) (map[string]any, error) {
	counts := map[string]int{KindChapter: 0, KindNote: 0, KindHighlight: 0}
	for kind := range counts {
		pattern := fmt.Sprintf("%s%s:*", s.prefix, kind)
		var cursor uint64
		for {
			keys, next, err := s.client.Scan(ctx, cursor, pattern, 256).Result()
			if err != nil {
				return nil, platformerrors.Wrap(platformerrors.KindPersistence, "audiocache.Stats",
					"redis scan failed", err)
			}
			counts[kind] += len(keys)
			cursor = next
			if cursor == 0 {
				break
			}
		}
	}
	return map[string]any{
		"type":     "redis",
		"chapters": counts[KindChapter],
		"entities": counts[KindNote] + counts[KindHighlight],
	}, nil
}

func (s *redisStore) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 256).Result()
		if err != nil {
			return platformerrors.Wrap(platformerrors.KindPersistence, "audiocache.Clear",
				"redis scan failed", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return platformerrors.Wrap(platformerrors.KindPersistence, "audiocache.Clear",
					"redis del failed", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (s *redisStore) Close(_ context.Context) error {
	return s.client.Close()
}
