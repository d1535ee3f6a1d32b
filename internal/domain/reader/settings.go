package reader

import (
	"context"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"aristo-server-go/internal/domain/tts"
	platformerrors "aristo-server-go/internal/platform/errors"
	"aristo-server-go/internal/platform/logging"
	"aristo-server-go/internal/platform/storage"
)

// Settings are the persisted reading preferences applied to synthesis
// and playback.
type Settings struct {
	Voice  string  `json:"voice"`
	Model  string  `json:"model"`
	Volume float64 `json:"volume"`
	Rate   float64 `json:"rate"`
}

const (
	settingVoice  = "voice"
	settingModel  = "model"
	settingVolume = "volume"
	settingRate   = "rate"
)

// SettingsStore round-trips Settings through the key-value rows. A
// stored value that fails validation or parsing is reset to its
// default instead of being served, so one corrupt row never breaks
// the reading view.
type SettingsStore struct {
	db       *gorm.DB
	defaults Settings
	logger   *logging.Logger
}

func NewSettingsStore(db *gorm.DB, defaults Settings, logger *logging.Logger) *SettingsStore {
	if !tts.ValidVoice(defaults.Voice) {
		defaults.Voice = tts.VoiceAlloy
	}
	if !tts.ValidModel(defaults.Model) {
		defaults.Model = tts.ModelStandard
	}
	if defaults.Volume < 0 || defaults.Volume > 1 {
		defaults.Volume = 0.8
	}
	if defaults.Rate <= 0 {
		defaults.Rate = 1.0
	}
	return &SettingsStore{db: db, defaults: defaults, logger: logger}
}

// Load returns the stored settings with every invalid field reset to
// its default. Resets are written back so the store heals itself.
func (s *SettingsStore) Load(ctx context.Context) Settings {
	var rows []storage.ReaderSetting
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		if s.logger != nil {
			s.logger.WarnTag("HTTP", "loading reader settings failed, using defaults: %v", err)
		}
		return s.defaults
	}

	stored := make(map[string]string, len(rows))
	for _, row := range rows {
		stored[row.Key] = row.Value
	}

	out := s.defaults
	dirty := false

	if raw, ok := stored[settingVoice]; ok {
		if tts.ValidVoice(raw) {
			out.Voice = raw
		} else {
			dirty = true
		}
	}
	if raw, ok := stored[settingModel]; ok {
		if tts.ValidModel(raw) {
			out.Model = raw
		} else {
			dirty = true
		}
	}
	if raw, ok := stored[settingVolume]; ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v >= 0 && v <= 1 {
			out.Volume = v
		} else {
			dirty = true
		}
	}
	if raw, ok := stored[settingRate]; ok {
		if r, err := strconv.ParseFloat(raw, 64); err == nil && r > 0 {
			out.Rate = r
		} else {
			dirty = true
		}
	}

	if dirty {
		if s.logger != nil {
			s.logger.WarnTag("HTTP", "resetting corrupt reader settings to defaults")
		}
		if err := s.Save(ctx, out); err != nil && s.logger != nil {
			s.logger.WarnTag("HTTP", "writing reset settings failed: %v", err)
		}
	}
	return out
}

// Save validates and persists the settings.
func (s *SettingsStore) Save(ctx context.Context, settings Settings) error {
	if !tts.ValidVoice(settings.Voice) {
		return platformerrors.New(platformerrors.KindConfig, "reader.SaveSettings",
			"unknown voice "+settings.Voice)
	}
	if !tts.ValidModel(settings.Model) {
		return platformerrors.New(platformerrors.KindConfig, "reader.SaveSettings",
			"unknown model "+settings.Model)
	}
	if settings.Volume < 0 || settings.Volume > 1 {
		return platformerrors.New(platformerrors.KindConfig, "reader.SaveSettings",
			"volume must be within [0,1]")
	}
	if settings.Rate <= 0 {
		return platformerrors.New(platformerrors.KindConfig, "reader.SaveSettings",
			"rate must be positive")
	}

	rows := []storage.ReaderSetting{
		{Key: settingVoice, Value: settings.Voice},
		{Key: settingModel, Value: settings.Model},
		{Key: settingVolume, Value: strconv.FormatFloat(settings.Volume, 'f', -1, 64)},
		{Key: settingRate, Value: strconv.FormatFloat(settings.Rate, 'f', -1, 64)},
	}
	for _, row := range rows {
		err := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).
			Create(&row).Error
		if err != nil {
			return platformerrors.Wrap(platformerrors.KindPersistence, "reader.SaveSettings",
				"writing setting "+row.Key+" failed", err)
		}
	}
	return nil
}
