package storage

import (
	"time"

	"gorm.io/datatypes"
)

// Book is a library entry.
type Book struct {
	ID          string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Author      string    `json:"author"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Chapters []Chapter `gorm:"foreignKey:BookID" json:"chapters,omitempty"`
}

// Chapter holds the raw text rendered by the reading view and fed to
// the segmenter.
type Chapter struct {
	ID            string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	BookID        string    `gorm:"type:varchar(64);index;not null" json:"book_id"`
	ChapterNumber int       `gorm:"index;not null" json:"chapter_number"`
	Title         string    `json:"title"`
	Content       string    `gorm:"type:text" json:"content"`
	WordCount     int       `json:"word_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// Highlight is an AI-generated annotation anchored by its selected text.
type Highlight struct {
	ID            string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	BookID        string    `gorm:"type:varchar(64);index;not null" json:"book_id"`
	ChapterID     string    `gorm:"type:varchar(64);index" json:"chapter_id"`
	SelectedText  string    `gorm:"type:text;not null" json:"selected_text"`
	HighlightType string    `gorm:"type:varchar(32)" json:"highlight_type"`
	Title         string    `json:"title"`
	Content       string    `gorm:"type:text" json:"content"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

// Note is a user-authored annotation.
type Note struct {
	ID           string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	BookID       string    `gorm:"type:varchar(64);index;not null" json:"book_id"`
	ChapterID    string    `gorm:"type:varchar(64);index" json:"chapter_id"`
	SelectedText string    `gorm:"type:text" json:"selected_text"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

// ReadingProgress tracks the last position per book.
type ReadingProgress struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	BookID        string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"book_id"`
	ChapterID     string    `gorm:"type:varchar(64)" json:"chapter_id"`
	ChapterNumber int       `json:"chapter_number"`
	LastReadAt    time.Time `json:"last_read_at"`
}

// ChapterAudio persists one generated rendering of a chapter. AudioData
// is a JSON array of base64 per-segment payloads; nulls mark segments
// whose synthesis failed. Multiple rows per chapter may coexist, one
// per voice/model combination.
type ChapterAudio struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ChapterID   string         `gorm:"type:varchar(64);uniqueIndex:idx_chapter_voice_model,priority:1;not null" json:"chapter_id"`
	Voice       string         `gorm:"type:varchar(32);uniqueIndex:idx_chapter_voice_model,priority:2;not null" json:"voice"`
	Model       string         `gorm:"type:varchar(32);uniqueIndex:idx_chapter_voice_model,priority:3;not null" json:"model"`
	AudioData   datatypes.JSON `gorm:"not null" json:"audio_data"`
	GeneratedAt time.Time      `json:"generated_at"`
}

func (ChapterAudio) TableName() string {
	return "chapter_audio"
}

// EntityAudio persists a single-payload rendering for a note or a
// highlight. EntityKind distinguishes the two.
type EntityAudio struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	EntityKind  string    `gorm:"type:varchar(16);uniqueIndex:idx_entity_voice_model,priority:1;not null" json:"entity_kind"`
	EntityID    string    `gorm:"type:varchar(64);uniqueIndex:idx_entity_voice_model,priority:2;not null" json:"entity_id"`
	Voice       string    `gorm:"type:varchar(32);uniqueIndex:idx_entity_voice_model,priority:3;not null" json:"voice"`
	Model       string    `gorm:"type:varchar(32);uniqueIndex:idx_entity_voice_model,priority:4;not null" json:"model"`
	AudioData   string    `gorm:"type:text;not null" json:"audio_data"`
	GeneratedAt time.Time `json:"generated_at"`
}

func (EntityAudio) TableName() string {
	return "entity_audio"
}

// ReaderSetting is a simple key-value row for persisted client
// settings (voice, model, volume, rate).
type ReaderSetting struct {
	Key       string    `gorm:"type:varchar(64);primaryKey" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ReaderSetting) TableName() string {
	return "reader_settings"
}
