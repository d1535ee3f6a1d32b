package audiocache

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"aristo-server-go/internal/domain/codec"
	platformerrors "aristo-server-go/internal/platform/errors"
	"aristo-server-go/internal/platform/storage"
)

// sqliteStore persists audio through the shared gorm handle. Chapter
// rows carry the JSON segment array, note and highlight rows a single
// base64 payload.
type sqliteStore struct {
	db *gorm.DB
}

func newSQLiteStore(db *gorm.DB) *sqliteStore {
	return &sqliteStore{db: db}
}

func (s *sqliteStore) SaveChapter(ctx context.Context, key Key, segments [][]byte) error {
	encoded, err := codec.EncodeSegments(segments)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindPersistence, "audiocache.SaveChapter",
			"encoding segment array failed", err)
	}

	row := storage.ChapterAudio{
		ChapterID:   key.ID,
		Voice:       key.Voice,
		Model:       key.Model,
		AudioData:   datatypes.JSON(encoded),
		GeneratedAt: time.Now(),
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chapter_id"}, {Name: "voice"}, {Name: "model"}},
			DoUpdates: clause.AssignmentColumns([]string{"audio_data", "generated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindPersistence, "audiocache.SaveChapter",
			"writing chapter audio row failed", err)
	}
	return nil
}

func (s *sqliteStore) LoadChapter(ctx context.Context, key Key) ([][]byte, error) {
	var row storage.ChapterAudio
	err := s.db.WithContext(ctx).
		Where("chapter_id = ? AND voice = ? AND model = ?", key.ID, key.Voice, key.Model).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, platformerrors.New(platformerrors.KindNotFound, "audiocache.LoadChapter",
			"no persisted audio for "+key.String())
	}
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindPersistence, "audiocache.LoadChapter",
			"reading chapter audio row failed", err)
	}
	return codec.DecodeSegments(string(row.AudioData))
}

func (s *sqliteStore) LoadChapterAny(ctx context.Context, chapterID string) (Key, [][]byte, error) {
	var row storage.ChapterAudio
	err := s.db.WithContext(ctx).
		Where("chapter_id = ?", chapterID).
		Order("generated_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Key{}, nil, platformerrors.New(platformerrors.KindNotFound, "audiocache.LoadChapterAny",
			"no persisted audio for chapter "+chapterID)
	}
	if err != nil {
		return Key{}, nil, platformerrors.Wrap(platformerrors.KindPersistence, "audiocache.LoadChapterAny",
			"reading chapter audio row failed", err)
	}

	segments, err := codec.DecodeSegments(string(row.AudioData))
	if err != nil {
		return Key{}, nil, err
	}
	found := Key{Kind: KindChapter, ID: chapterID, Voice: row.Voice, Model: row.Model}
	return found, segments, nil
}

func (s *sqliteStore) SaveEntity(ctx context.Context, key Key, data []byte) error {
	row := storage.EntityAudio{
		EntityKind:  key.Kind,
		EntityID:    key.ID,
		Voice:       key.Voice,
		Model:       key.Model,
		AudioData:   codec.Encode(data),
		GeneratedAt: time.Now(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "entity_kind"}, {Name: "entity_id"},
				{Name: "voice"}, {Name: "model"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"audio_data", "generated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindPersistence, "audiocache.SaveEntity",
			"writing entity audio row failed", err)
	}
	return nil
}

func (s *sqliteStore) LoadEntity(ctx context.Context, key Key) ([]byte, error) {
	var row storage.EntityAudio
	err := s.db.WithContext(ctx).
		Where("entity_kind = ? AND entity_id = ? AND voice = ? AND model = ?",
			key.Kind, key.ID, key.Voice, key.Model).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, platformerrors.New(platformerrors.KindNotFound, "audiocache.LoadEntity",
			"no persisted audio for "+key.String())
	}
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindPersistence, "audiocache.LoadEntity",
			"reading entity audio row failed", err)
	}
	return codec.Decode(row.AudioData)
}

func (s *sqliteStore) LoadEntityAny(ctx context.Context, kind, id string) (Key, []byte, error) {
	var row storage.EntityAudio
	err := s.db.WithContext(ctx).
		Where("entity_kind = ? AND entity_id = ?", kind, id).
		Order("generated_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Key{}, nil, platformerrors.New(platformerrors.KindNotFound, "audiocache.LoadEntityAny",
			"no persisted audio for "+kind+" "+id)
	}
	if err != nil {
		return Key{}, nil, platformerrors.Wrap(platformerrors.KindPersistence, "audiocache.LoadEntityAny",
			"reading entity audio row failed", err)
	}

	data, err := codec.Decode(row.AudioData)
	if err != nil {
		return Key{}, nil, err
	}
	found := Key{Kind: kind, ID: id, Voice: row.Voice, Model: row.Model}
	return found, data, nil
}

func (s *sqliteStore) Stats(ctx context.Context) (map[string]any, error) {
	var chapters, entities int64
	if err := s.db.WithContext(ctx).Model(&storage.ChapterAudio{}).Count(&chapters).Error; err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindPersistence, "audiocache.Stats",
			"counting chapter audio rows failed", err)
	}
	if err := s.db.WithContext(ctx).Model(&storage.EntityAudio{}).Count(&entities).Error; err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindPersistence, "audiocache.Stats",
			"counting entity audio rows failed", err)
	}
	return map[string]any{
		"type":     "sqlite",
		"chapters": chapters,
		"entities": entities,
	}, nil
}

func (s *sqliteStore) Clear(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where("1 = 1").Delete(&storage.ChapterAudio{}).Error; err != nil {
		return platformerrors.Wrap(platformerrors.KindPersistence, "audiocache.Clear",
			"clearing chapter audio failed", err)
	}
	if err := s.db.WithContext(ctx).Where("1 = 1").Delete(&storage.EntityAudio{}).Error; err != nil {
		return platformerrors.Wrap(platformerrors.KindPersistence, "audiocache.Clear",
			"clearing entity audio failed", err)
	}
	return nil
}

func (s *sqliteStore) Close(_ context.Context) error {
	return nil
}
