package webapi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"aristo-server-go/internal/domain/audiocache"
	"aristo-server-go/internal/domain/library"
	"aristo-server-go/internal/domain/overlay"
	"aristo-server-go/internal/domain/playback"
	"aristo-server-go/internal/domain/reader"
	"aristo-server-go/internal/domain/tts"
	"aristo-server-go/internal/platform/config"
	"aristo-server-go/internal/platform/storage"
)

// mp3Frames builds silent MPEG-1 Layer III frames so fake synthesis
// results survive the duration probe.
func mp3Frames(n int) []byte {
	const frameSize = 417
	frame := make([]byte, frameSize)
	frame[0], frame[1], frame[2], frame[3] = 0xFF, 0xFB, 0x90, 0x64

	data := make([]byte, 0, n*frameSize)
	for i := 0; i < n; i++ {
		data = append(data, frame...)
	}
	return data
}

type fakeProvider struct{}

func (fakeProvider) Name() string { return "fake" }

func (fakeProvider) Synthesize(_ context.Context, text, voice, model string) ([]byte, error) {
	if err := tts.CheckRequest(text, voice, model); err != nil {
		return nil, err
	}
	return mp3Frames(8), nil
}

type testServer struct {
	engine  *gin.Engine
	book    *storage.Book
	note    *storage.Note
	chapter string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := storage.OpenInMemory()
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}

	lib := library.NewService(db, nil)
	book := &storage.Book{
		Title: "The Harbor Year",
		Chapters: []storage.Chapter{
			{ChapterNumber: 1, Title: "Arrival", Content: "The ship sailed at dawn.\n\nThe town slept through it."},
		},
	}
	if err := lib.CreateBook(context.Background(), book); err != nil {
		t.Fatalf("CreateBook error: %v", err)
	}
	note := &storage.Note{
		BookID:       book.ID,
		ChapterID:    book.Chapters[0].ID,
		SelectedText: "town slept",
		Content:      "Remember this part",
	}
	if err := lib.CreateNote(context.Background(), note); err != nil {
		t.Fatalf("CreateNote error: %v", err)
	}

	persisted, err := audiocache.NewPersisted(
		audiocache.Config{Driver: audiocache.DriverSQLite},
		audiocache.Dependencies{SQLiteDB: db},
	)
	if err != nil {
		t.Fatalf("NewPersisted error: %v", err)
	}
	cache := audiocache.New(persisted, time.Second, nil)

	settings := reader.NewSettingsStore(db, reader.Settings{
		Voice: tts.VoiceAlloy, Model: tts.ModelStandard, Volume: 0.8, Rate: 1.0,
	}, nil)
	rdr := reader.NewService(lib, cache, fakeProvider{}, settings, nil, config.AudioConfig{
		SegmentMaxChars:        40,
		DisplayWordsPerSegment: 5,
	}, nil)

	controller := playback.NewController(playback.TimerEngine{}, nil, nil)
	t.Cleanup(controller.Stop)

	service := NewService(&config.Config{}, nil, lib, rdr, controller, overlay.NewMatcher(nil))
	engine := gin.New()
	service.Register(engine.Group("/api"))

	return &testServer{
		engine:  engine,
		book:    book,
		note:    note,
		chapter: book.Chapters[0].ID,
	}
}

func (ts *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)

	var resp APIResponse
	if err := sonic.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s %s returned unparseable body %q: %v", method, path, w.Body.String(), err)
	}
	return w, resp
}

func TestListAndGetBooks(t *testing.T) {
	ts := newTestServer(t)

	w, resp := ts.do(t, http.MethodGet, "/api/books", "")
	if w.Code != http.StatusOK || !resp.Success {
		t.Fatalf("list books: status=%d resp=%+v", w.Code, resp)
	}
	books, ok := resp.Data.([]any)
	if !ok || len(books) != 1 {
		t.Fatalf("unexpected book list: %+v", resp.Data)
	}

	w, _ = ts.do(t, http.MethodGet, "/api/books/"+ts.book.ID, "")
	if w.Code != http.StatusOK {
		t.Errorf("get book status = %d", w.Code)
	}

	w, resp = ts.do(t, http.MethodGet, "/api/books/absent", "")
	if w.Code != http.StatusNotFound || resp.Success {
		t.Errorf("missing book: status=%d resp=%+v", w.Code, resp)
	}
}

func TestGenerateAndFetchChapterAudio(t *testing.T) {
	ts := newTestServer(t)

	// Cache-only fetch before generation is a miss.
	w, _ := ts.do(t, http.MethodGet, "/api/chapters/"+ts.chapter+"/audio", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("pre-generation fetch status = %d, want 404", w.Code)
	}

	w, resp := ts.do(t, http.MethodPost, "/api/generate-audio",
		`{"chapter_id":"`+ts.chapter+`"}`)
	if w.Code != http.StatusOK || !resp.Success {
		t.Fatalf("generate-audio: status=%d resp=%+v", w.Code, resp)
	}
	data := resp.Data.(map[string]any)
	if data["segments"].(float64) != 2 {
		t.Errorf("segments = %v, want 2", data["segments"])
	}
	if data["failed"].(float64) != 0 {
		t.Errorf("failed = %v, want 0", data["failed"])
	}

	w, resp = ts.do(t, http.MethodGet, "/api/chapters/"+ts.chapter+"/audio", "")
	if w.Code != http.StatusOK {
		t.Fatalf("chapter audio status = %d", w.Code)
	}
	audio := resp.Data.(map[string]any)
	segments, ok := audio["segments"].([]any)
	if !ok || len(segments) != 2 {
		t.Fatalf("unexpected segments payload: %+v", audio["segments"])
	}
	for i, seg := range segments {
		if s, ok := seg.(string); !ok || s == "" {
			t.Errorf("segment %d is not base64 audio: %v", i, seg)
		}
	}
	if audio["mime_type"] != "audio/mp3" {
		t.Errorf("mime_type = %v", audio["mime_type"])
	}
}

func TestPlaybackControlFlow(t *testing.T) {
	ts := newTestServer(t)

	// Playing with nothing loaded is a client error.
	w, _ := ts.do(t, http.MethodPost, "/api/playback/play", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("play without track status = %d, want 400", w.Code)
	}

	if w, _ := ts.do(t, http.MethodPost, "/api/generate-audio",
		`{"chapter_id":"`+ts.chapter+`"}`); w.Code != http.StatusOK {
		t.Fatalf("generate-audio status = %d", w.Code)
	}

	w, resp := ts.do(t, http.MethodPost, "/api/playback/play", "")
	if w.Code != http.StatusOK {
		t.Fatalf("play status = %d", w.Code)
	}
	if state := resp.Data.(map[string]any)["state"]; state != "playing" {
		t.Errorf("state after play = %v", state)
	}

	w, resp = ts.do(t, http.MethodPost, "/api/playback/pause", "")
	if w.Code != http.StatusOK {
		t.Fatalf("pause status = %d", w.Code)
	}
	if state := resp.Data.(map[string]any)["state"]; state != "paused" {
		t.Errorf("state after pause = %v", state)
	}

	w, resp = ts.do(t, http.MethodGet, "/api/playback/progress", "")
	if w.Code != http.StatusOK {
		t.Fatalf("progress status = %d", w.Code)
	}
	if total := resp.Data.(map[string]any)["total_seconds"].(float64); total <= 0 {
		t.Errorf("total_seconds = %v, want > 0", total)
	}

	w, resp = ts.do(t, http.MethodPost, "/api/playback/stop", "")
	if w.Code != http.StatusOK {
		t.Fatalf("stop status = %d", w.Code)
	}
	if state := resp.Data.(map[string]any)["state"]; state != "stopped" {
		t.Errorf("state after stop = %v", state)
	}
}

func TestSettingsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w, resp := ts.do(t, http.MethodGet, "/api/settings", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get settings status = %d", w.Code)
	}
	if voice := resp.Data.(map[string]any)["voice"]; voice != tts.VoiceAlloy {
		t.Errorf("default voice = %v", voice)
	}

	w, _ = ts.do(t, http.MethodPost, "/api/settings",
		`{"voice":"nova","model":"tts-1-hd","volume":0.5,"rate":1.25}`)
	if w.Code != http.StatusOK {
		t.Fatalf("save settings status = %d", w.Code)
	}

	_, resp = ts.do(t, http.MethodGet, "/api/settings", "")
	got := resp.Data.(map[string]any)
	if got["voice"] != tts.VoiceNova || got["rate"].(float64) != 1.25 {
		t.Errorf("settings did not round-trip: %+v", got)
	}

	w, resp = ts.do(t, http.MethodPost, "/api/settings",
		`{"voice":"morgan-freeman","model":"tts-1","volume":0.5,"rate":1}`)
	if w.Code != http.StatusBadRequest || resp.Success {
		t.Errorf("invalid voice: status=%d resp=%+v", w.Code, resp)
	}
}

func TestChapterOverlayEndpoint(t *testing.T) {
	ts := newTestServer(t)

	highlight := `{"book_id":"` + ts.book.ID + `","chapter_id":"` + ts.chapter +
		`","selected_text":"sailed at dawn","highlight_type":"context","title":"Departure"}`
	if w, _ := ts.do(t, http.MethodPost, "/api/highlights", highlight); w.Code != http.StatusOK {
		t.Fatalf("create highlight status = %d", w.Code)
	}

	w, resp := ts.do(t, http.MethodGet, "/api/books/"+ts.book.ID+"/chapters/1/overlay", "")
	if w.Code != http.StatusOK {
		t.Fatalf("overlay status = %d", w.Code)
	}
	html := resp.Data.(map[string]any)["html"].(string)
	if !strings.Contains(html, `class="highlight highlight-context"`) {
		t.Errorf("highlight marker missing from overlay: %q", html)
	}
	if !strings.Contains(html, `class="highlight highlight-note"`) {
		t.Errorf("note marker missing from overlay: %q", html)
	}
	if !strings.Contains(html, "<p>") {
		t.Errorf("overlay is not paragraph markup: %q", html)
	}
}

func TestNoteAudioEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w, resp := ts.do(t, http.MethodGet, "/api/notes/"+ts.note.ID+"/audio", "")
	if w.Code != http.StatusOK {
		t.Fatalf("note audio status = %d", w.Code)
	}
	data := resp.Data.(map[string]any)
	if data["data"].(string) == "" {
		t.Error("note audio payload is empty")
	}
	if data["duration_seconds"].(float64) <= 0 {
		t.Errorf("duration = %v, want > 0", data["duration_seconds"])
	}
}

func TestCacheStatsAndClear(t *testing.T) {
	ts := newTestServer(t)

	if w, _ := ts.do(t, http.MethodPost, "/api/generate-audio",
		`{"chapter_id":"`+ts.chapter+`"}`); w.Code != http.StatusOK {
		t.Fatalf("generate-audio failed")
	}

	w, resp := ts.do(t, http.MethodGet, "/api/cache/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("cache stats status = %d", w.Code)
	}
	stats := resp.Data.(map[string]any)
	if stats["memory_chapters"].(float64) != 1 {
		t.Errorf("memory_chapters = %v, want 1", stats["memory_chapters"])
	}

	w, _ = ts.do(t, http.MethodPost, "/api/cache/clear", `{"persisted":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("cache clear status = %d", w.Code)
	}
	_, resp = ts.do(t, http.MethodGet, "/api/cache/stats", "")
	stats = resp.Data.(map[string]any)
	if stats["memory_chapters"].(float64) != 0 {
		t.Errorf("memory_chapters after clear = %v, want 0", stats["memory_chapters"])
	}
}
