package library

import (
	"context"
	"testing"

	platformerrors "aristo-server-go/internal/platform/errors"
	"aristo-server-go/internal/platform/storage"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := storage.OpenInMemory()
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	return NewService(db, nil)
}

func seedBook(t *testing.T, s *Service) *storage.Book {
	t.Helper()
	book := &storage.Book{
		Title:  "The Harbor Year",
		Author: "M. Calloway",
		Chapters: []storage.Chapter{
			{ChapterNumber: 1, Title: "Arrival", Content: "The ship sailed at dawn.\n\nThe town slept."},
			{ChapterNumber: 2, Title: "Winter", Content: "Winter came early that year."},
		},
	}
	if err := s.CreateBook(context.Background(), book); err != nil {
		t.Fatalf("CreateBook error: %v", err)
	}
	return book
}

func TestBookRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	book := seedBook(t, s)

	got, err := s.GetBook(ctx, book.ID)
	if err != nil {
		t.Fatalf("GetBook error: %v", err)
	}
	if got.Title != "The Harbor Year" {
		t.Errorf("title = %q", got.Title)
	}
	if len(got.Chapters) != 2 {
		t.Fatalf("got %d chapters, want 2", len(got.Chapters))
	}
	if got.Chapters[0].ChapterNumber != 1 || got.Chapters[1].ChapterNumber != 2 {
		t.Errorf("chapters out of order: %v", got.Chapters)
	}

	if _, err := s.GetBook(ctx, "absent"); !platformerrors.IsNotFound(err) {
		t.Errorf("expected not-found for missing book, got %v", err)
	}
}

func TestGetChapterByNumber(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	book := seedBook(t, s)

	chapter, err := s.GetChapterByNumber(ctx, book.ID, 2)
	if err != nil {
		t.Fatalf("GetChapterByNumber error: %v", err)
	}
	if chapter.Title != "Winter" {
		t.Errorf("title = %q, want Winter", chapter.Title)
	}

	if _, err := s.GetChapterByNumber(ctx, book.ID, 9); !platformerrors.IsNotFound(err) {
		t.Errorf("expected not-found for missing chapter, got %v", err)
	}
}

func TestHighlightsAndNotes(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	book := seedBook(t, s)
	chapterID := book.Chapters[0].ID

	highlight := &storage.Highlight{
		BookID:        book.ID,
		ChapterID:     chapterID,
		SelectedText:  "sailed at dawn",
		HighlightType: "context",
		Title:         "Departure",
	}
	if err := s.CreateHighlight(ctx, highlight); err != nil {
		t.Fatalf("CreateHighlight error: %v", err)
	}
	if highlight.ID == "" {
		t.Error("highlight id was not assigned")
	}

	note := &storage.Note{
		BookID:       book.ID,
		ChapterID:    chapterID,
		SelectedText: "The town slept",
		Content:      "Remember this part",
	}
	if err := s.CreateNote(ctx, note); err != nil {
		t.Fatalf("CreateNote error: %v", err)
	}

	highlights, err := s.GetHighlights(ctx, book.ID, chapterID)
	if err != nil {
		t.Fatalf("GetHighlights error: %v", err)
	}
	if len(highlights) != 1 || highlights[0].SelectedText != "sailed at dawn" {
		t.Errorf("unexpected highlights: %v", highlights)
	}

	// Narrowing to another chapter filters the results out.
	otherChapter := book.Chapters[1].ID
	empty, err := s.GetHighlights(ctx, book.ID, otherChapter)
	if err != nil {
		t.Fatalf("GetHighlights error: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("chapter filter leaked highlights: %v", empty)
	}

	notes, err := s.GetNotes(ctx, book.ID, "")
	if err != nil {
		t.Fatalf("GetNotes error: %v", err)
	}
	if len(notes) != 1 || notes[0].Content != "Remember this part" {
		t.Errorf("unexpected notes: %v", notes)
	}

	if err := s.CreateHighlight(ctx, &storage.Highlight{BookID: book.ID}); err == nil {
		t.Error("expected error for highlight without selected text")
	}
}

func TestReadingProgressUpsert(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	book := seedBook(t, s)

	if _, err := s.GetReadingProgress(ctx, book.ID); !platformerrors.IsNotFound(err) {
		t.Fatalf("expected not-found before first update, got %v", err)
	}

	first := &storage.ReadingProgress{
		BookID:        book.ID,
		ChapterID:     book.Chapters[0].ID,
		ChapterNumber: 1,
	}
	if err := s.UpdateReadingProgress(ctx, first); err != nil {
		t.Fatalf("UpdateReadingProgress error: %v", err)
	}

	second := &storage.ReadingProgress{
		BookID:        book.ID,
		ChapterID:     book.Chapters[1].ID,
		ChapterNumber: 2,
	}
	if err := s.UpdateReadingProgress(ctx, second); err != nil {
		t.Fatalf("second UpdateReadingProgress error: %v", err)
	}

	got, err := s.GetReadingProgress(ctx, book.ID)
	if err != nil {
		t.Fatalf("GetReadingProgress error: %v", err)
	}
	if got.ChapterNumber != 2 {
		t.Errorf("chapter number = %d, want 2 after upsert", got.ChapterNumber)
	}
}
