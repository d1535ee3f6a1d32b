package audiocache

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Driver identifiers supported by the persisted tier.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Persisted is the cross-session tier behind the in-memory map. A
// lookup miss is reported as a not-found kind error, never as a plain
// failure, so callers can tell "absent" from "broken" apart.
//
// Chapter values are ordered per-segment payloads where a nil slot
// marks a segment whose synthesis failed; the slot layout must survive
// the round trip. Note and highlight values are a single payload.
// Payloads carry audio bytes only; source text is not persisted, the
// cache re-attaches it from the caller on lookup.
type Persisted interface {
	SaveChapter(ctx context.Context, key Key, segments [][]byte) error
	LoadChapter(ctx context.Context, key Key) ([][]byte, error)
	LoadChapterAny(ctx context.Context, chapterID string) (Key, [][]byte, error)

	SaveEntity(ctx context.Context, key Key, data []byte) error
	LoadEntity(ctx context.Context, key Key) ([]byte, error)
	LoadEntityAny(ctx context.Context, kind, id string) (Key, []byte, error)

	Stats(ctx context.Context) (map[string]any, error)
	Clear(ctx context.Context) error
	Close(ctx context.Context) error
}

// Config describes the persisted tier selection parameters.
type Config struct {
	Driver string
	Redis  *RedisConfig
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

// Dependencies captures external handles required by certain drivers.
type Dependencies struct {
	SQLiteDB *gorm.DB
}

// NewPersisted creates the persisted tier for the configured driver.
// The memory driver keeps nothing across sessions; lookups always
// miss.
func NewPersisted(cfg Config, deps Dependencies) (Persisted, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	switch driver {
	case DriverMemory:
		return noopStore{}, nil
	case DriverSQLite:
		if deps.SQLiteDB == nil {
			return nil, fmt.Errorf("sqlite driver requires database handle")
		}
		return newSQLiteStore(deps.SQLiteDB), nil
	case DriverRedis:
		return newRedisStore(cfg)
	default:
		return nil, fmt.Errorf("unsupported audio cache driver: %s", driver)
	}
}
