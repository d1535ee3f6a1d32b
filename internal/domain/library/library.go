// Package library serves the content and annotation records the
// reading view consumes: books, chapters, highlights, notes and
// per-book reading progress.
package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	platformerrors "aristo-server-go/internal/platform/errors"
	"aristo-server-go/internal/platform/logging"
	"aristo-server-go/internal/platform/storage"
)

// Service wraps the database with typed lookups. A miss is a
// not-found kind error so callers can branch on it without string
// matching.
type Service struct {
	db     *gorm.DB
	logger *logging.Logger
}

func NewService(db *gorm.DB, logger *logging.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// GetBook returns one book with its chapters ordered by number.
func (s *Service) GetBook(ctx context.Context, id string) (*storage.Book, error) {
	var book storage.Book
	err := s.db.WithContext(ctx).
		Preload("Chapters", func(db *gorm.DB) *gorm.DB {
			return db.Order("chapter_number ASC")
		}).
		First(&book, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, platformerrors.New(platformerrors.KindNotFound, "library.GetBook",
			"book not found: "+id)
	}
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindPersistence, "library.GetBook",
			"reading book failed", err)
	}
	return &book, nil
}

// ListBooks returns every book, newest first.
func (s *Service) ListBooks(ctx context.Context) ([]storage.Book, error) {
	var books []storage.Book
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&books).Error; err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindPersistence, "library.ListBooks",
			"listing books failed", err)
	}
	return books, nil
}

// CreateBook stores a book and its chapters, assigning ids where the
// caller left them empty.
func (s *Service) CreateBook(ctx context.Context, book *storage.Book) error {
	if book.Title == "" {
		return platformerrors.New(platformerrors.KindPersistence, "library.CreateBook",
			"book title is required")
	}
	if book.ID == "" {
		book.ID = uuid.NewString()
	}
	for i := range book.Chapters {
		if book.Chapters[i].ID == "" {
			book.Chapters[i].ID = uuid.NewString()
		}
		book.Chapters[i].BookID = book.ID
	}
	if err := s.db.WithContext(ctx).Create(book).Error; err != nil {
		return platformerrors.Wrap(platformerrors.KindPersistence, "library.CreateBook",
			"writing book failed", err)
	}
	return nil
}

// GetChapter returns one chapter by id.
func (s *Service) GetChapter(ctx context.Context, id string) (*storage.Chapter, error) {
	var chapter storage.Chapter
	err := s.db.WithContext(ctx).First(&chapter, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, platformerrors.New(platformerrors.KindNotFound, "library.GetChapter",
			"chapter not found: "+id)
	}
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindPersistence, "library.GetChapter",
			"reading chapter failed", err)
	}
	return &chapter, nil
}

// GetChapterByNumber returns a book's nth chapter.
func (s *Service) GetChapterByNumber(ctx context.Context, bookID string, number int) (*storage.Chapter, error) {
	var chapter storage.Chapter
	err := s.db.WithContext(ctx).
		Where("book_id = ? AND chapter_number = ?", bookID, number).
		First(&chapter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, platformerrors.New(platformerrors.KindNotFound, "library.GetChapterByNumber",
			fmt.Sprintf("book %s has no chapter %d", bookID, number))
	}
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindPersistence, "library.GetChapterByNumber",
			"reading chapter failed", err)
	}
	return &chapter, nil
}

// GetHighlights returns a book's highlights, optionally narrowed to
// one chapter, oldest first so overlay rendering is stable.
func (s *Service) GetHighlights(ctx context.Context, bookID, chapterID string) ([]storage.Highlight, error) {
	query := s.db.WithContext(ctx).Where("book_id = ?", bookID)
	if chapterID != "" {
		query = query.Where("chapter_id = ?", chapterID)
	}
	var highlights []storage.Highlight
	if err := query.Order("created_at ASC").Find(&highlights).Error; err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindPersistence, "library.GetHighlights",
			"listing highlights failed", err)
	}
	return highlights, nil
}

// GetHighlight returns one highlight by id.
func (s *Service) GetHighlight(ctx context.Context, id string) (*storage.Highlight, error) {
	var highlight storage.Highlight
	err := s.db.WithContext(ctx).First(&highlight, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, platformerrors.New(platformerrors.KindNotFound, "library.GetHighlight",
			"highlight not found: "+id)
	}
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindPersistence, "library.GetHighlight",
			"reading highlight failed", err)
	}
	return &highlight, nil
}

// CreateHighlight stores an annotation anchored by its selected text.
func (s *Service) CreateHighlight(ctx context.Context, highlight *storage.Highlight) error {
	if highlight.BookID == "" || highlight.SelectedText == "" {
		return platformerrors.New(platformerrors.KindPersistence, "library.CreateHighlight",
			"book id and selected text are required")
	}
	if highlight.ID == "" {
		highlight.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(highlight).Error; err != nil {
		return platformerrors.Wrap(platformerrors.KindPersistence, "library.CreateHighlight",
			"writing highlight failed", err)
	}
	return nil
}

// GetNotes returns a book's notes, optionally narrowed to one chapter.
func (s *Service) GetNotes(ctx context.Context, bookID, chapterID string) ([]storage.Note, error) {
	query := s.db.WithContext(ctx).Where("book_id = ?", bookID)
	if chapterID != "" {
		query = query.Where("chapter_id = ?", chapterID)
	}
	var notes []storage.Note
	if err := query.Order("created_at ASC").Find(&notes).Error; err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindPersistence, "library.GetNotes",
			"listing notes failed", err)
	}
	return notes, nil
}

// GetNote returns one note by id.
func (s *Service) GetNote(ctx context.Context, id string) (*storage.Note, error) {
	var note storage.Note
	err := s.db.WithContext(ctx).First(&note, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, platformerrors.New(platformerrors.KindNotFound, "library.GetNote",
			"note not found: "+id)
	}
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindPersistence, "library.GetNote",
			"reading note failed", err)
	}
	return &note, nil
}

// CreateNote stores a user-authored note.
func (s *Service) CreateNote(ctx context.Context, note *storage.Note) error {
	if note.BookID == "" || note.Content == "" {
		return platformerrors.New(platformerrors.KindPersistence, "library.CreateNote",
			"book id and content are required")
	}
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(note).Error; err != nil {
		return platformerrors.Wrap(platformerrors.KindPersistence, "library.CreateNote",
			"writing note failed", err)
	}
	return nil
}

// GetReadingProgress returns the last recorded position for a book.
func (s *Service) GetReadingProgress(ctx context.Context, bookID string) (*storage.ReadingProgress, error) {
	var progress storage.ReadingProgress
	err := s.db.WithContext(ctx).First(&progress, "book_id = ?", bookID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, platformerrors.New(platformerrors.KindNotFound, "library.GetReadingProgress",
			"no reading progress for book: "+bookID)
	}
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindPersistence, "library.GetReadingProgress",
			"reading progress failed", err)
	}
	return &progress, nil
}

// UpdateReadingProgress upserts the per-book position row.
func (s *Service) UpdateReadingProgress(ctx context.Context, progress *storage.ReadingProgress) error {
	if progress.BookID == "" {
		return platformerrors.New(platformerrors.KindPersistence, "library.UpdateReadingProgress",
			"book id is required")
	}
	progress.LastReadAt = time.Now()
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "book_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"chapter_id", "chapter_number", "last_read_at"}),
		}).
		Create(progress).Error
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindPersistence, "library.UpdateReadingProgress",
			"writing progress failed", err)
	}
	return nil
}
