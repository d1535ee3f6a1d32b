package audiocache

import (
	"bytes"
	"context"
	"testing"

	platformerrors "aristo-server-go/internal/platform/errors"
	"aristo-server-go/internal/platform/storage"
)

func newTestSQLiteStore(t *testing.T) Persisted {
	t.Helper()
	db, err := storage.OpenInMemory()
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	store, err := NewPersisted(Config{Driver: DriverSQLite}, Dependencies{SQLiteDB: db})
	if err != nil {
		t.Fatalf("NewPersisted error: %v", err)
	}
	return store
}

func TestSQLiteChapterRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	key := Key{Kind: KindChapter, ID: "ch-1", Voice: "alloy", Model: "tts-1"}
	segments := [][]byte{[]byte("segment zero"), nil, []byte("segment two")}
	if err := store.SaveChapter(ctx, key, segments); err != nil {
		t.Fatalf("SaveChapter error: %v", err)
	}

	got, err := store.LoadChapter(ctx, key)
	if err != nil {
		t.Fatalf("LoadChapter error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d segments, want 3", len(got))
	}
	if !bytes.Equal(got[0], segments[0]) || got[1] != nil || !bytes.Equal(got[2], segments[2]) {
		t.Errorf("round trip mangled segments: %v", got)
	}
}

func TestSQLiteChapterUpsert(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	key := Key{Kind: KindChapter, ID: "ch-1", Voice: "alloy", Model: "tts-1"}
	if err := store.SaveChapter(ctx, key, [][]byte{[]byte("old")}); err != nil {
		t.Fatalf("first SaveChapter error: %v", err)
	}
	if err := store.SaveChapter(ctx, key, [][]byte{[]byte("new")}); err != nil {
		t.Fatalf("second SaveChapter error: %v", err)
	}

	got, err := store.LoadChapter(ctx, key)
	if err != nil {
		t.Fatalf("LoadChapter error: %v", err)
	}
	if len(got) != 1 || !bytes.Equal(got[0], []byte("new")) {
		t.Errorf("upsert did not replace the row: %v", got)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats["chapters"].(int64) != 1 {
		t.Errorf("chapters = %v, want 1 after upsert", stats["chapters"])
	}
}

func TestSQLiteChapterAnyVoice(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	stored := Key{Kind: KindChapter, ID: "ch-1", Voice: "echo", Model: "tts-1-hd"}
	if err := store.SaveChapter(ctx, stored, [][]byte{[]byte("audio")}); err != nil {
		t.Fatalf("SaveChapter error: %v", err)
	}

	exact := Key{Kind: KindChapter, ID: "ch-1", Voice: "alloy", Model: "tts-1"}
	if _, err := store.LoadChapter(ctx, exact); !platformerrors.IsNotFound(err) {
		t.Fatalf("expected not-found for other voice, got %v", err)
	}

	found, got, err := store.LoadChapterAny(ctx, "ch-1")
	if err != nil {
		t.Fatalf("LoadChapterAny error: %v", err)
	}
	if found != stored {
		t.Errorf("found key = %v, want %v", found, stored)
	}
	if len(got) != 1 || !bytes.Equal(got[0], []byte("audio")) {
		t.Errorf("unexpected payload: %v", got)
	}
}

func TestSQLiteEntityRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	key := Key{Kind: KindNote, ID: "note-1", Voice: "alloy", Model: "tts-1"}
	if err := store.SaveEntity(ctx, key, []byte("note audio")); err != nil {
		t.Fatalf("SaveEntity error: %v", err)
	}

	got, err := store.LoadEntity(ctx, key)
	if err != nil {
		t.Fatalf("LoadEntity error: %v", err)
	}
	if !bytes.Equal(got, []byte("note audio")) {
		t.Errorf("unexpected payload: %q", got)
	}

	// Highlights and notes with the same id must not collide.
	if _, err := store.LoadEntity(ctx, Key{Kind: KindHighlight, ID: "note-1", Voice: "alloy", Model: "tts-1"}); !platformerrors.IsNotFound(err) {
		t.Errorf("expected not-found across kinds, got %v", err)
	}

	found, data, err := store.LoadEntityAny(ctx, KindNote, "note-1")
	if err != nil {
		t.Fatalf("LoadEntityAny error: %v", err)
	}
	if found != key || !bytes.Equal(data, []byte("note audio")) {
		t.Errorf("unexpected any-voice result: %v %q", found, data)
	}
}

func TestSQLiteClear(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	chapter := Key{Kind: KindChapter, ID: "ch-1", Voice: "alloy", Model: "tts-1"}
	note := Key{Kind: KindNote, ID: "note-1", Voice: "alloy", Model: "tts-1"}
	if err := store.SaveChapter(ctx, chapter, [][]byte{[]byte("a")}); err != nil {
		t.Fatalf("SaveChapter error: %v", err)
	}
	if err := store.SaveEntity(ctx, note, []byte("b")); err != nil {
		t.Fatalf("SaveEntity error: %v", err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if _, err := store.LoadChapter(ctx, chapter); !platformerrors.IsNotFound(err) {
		t.Errorf("chapter survived clear: %v", err)
	}
	if _, err := store.LoadEntity(ctx, note); !platformerrors.IsNotFound(err) {
		t.Errorf("entity survived clear: %v", err)
	}
}
