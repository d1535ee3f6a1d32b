package audiocache

import (
	"context"

	platformerrors "aristo-server-go/internal/platform/errors"
)

// noopStore backs the memory driver: nothing survives the session, so
// every lookup is a miss and every write succeeds silently.
type noopStore struct{}

func (noopStore) SaveChapter(context.Context, Key, [][]byte) error { return nil }

func (noopStore) LoadChapter(_ context.Context, key Key) ([][]byte, error) {
	return nil, platformerrors.New(platformerrors.KindNotFound, "audiocache.LoadChapter",
		"no persisted audio for "+key.String())
}

func (noopStore) LoadChapterAny(_ context.Context, chapterID string) (Key, [][]byte, error) {
	return Key{}, nil, platformerrors.New(platformerrors.KindNotFound, "audiocache.LoadChapterAny",
		"no persisted audio for chapter "+chapterID)
}

func (noopStore) SaveEntity(context.Context, Key, []byte) error { return nil }

func (noopStore) LoadEntity(_ context.Context, key Key) ([]byte, error) {
	return nil, platformerrors.New(platformerrors.KindNotFound, "audiocache.LoadEntity",
		"no persisted audio for "+key.String())
}

func (noopStore) LoadEntityAny(_ context.Context, kind, id string) (Key, []byte, error) {
	return Key{}, nil, platformerrors.New(platformerrors.KindNotFound, "audiocache.LoadEntityAny",
		"no persisted audio for "+kind+" "+id)
}

func (noopStore) Stats(context.Context) (map[string]any, error) {
	return map[string]any{"type": "memory"}, nil
}

func (noopStore) Clear(context.Context) error { return nil }

func (noopStore) Close(context.Context) error { return nil }
