package repository

import (
	"context"

	"construction-pos/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingRepository interface {
	All(ctx context.Context) ([]model.Setting, error)
	Get(ctx context.Context, key string) (*model.Setting, error)
	Upsert(ctx context.Context, setting *model.Setting) error
	SeedDefaults(ctx context.Context, defaults map[string]string) error
}

type settingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) All(ctx context.Context) ([]model.Setting, error) {
	var settings []model.Setting
	err := GetDB(ctx, r.db).Order("setting_key asc").Find(&settings).Error
	return settings, err
}

func (r *settingRepository) Get(ctx context.Context, key string) (*model.Setting, error) {
	var setting model.Setting
	if err := GetDB(ctx, r.db).First(&setting, "setting_key = ?", key).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *settingRepository) Upsert(ctx context.Context, setting *model.Setting) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(setting).Error
}

// SeedDefaults inserts missing keys and keeps values already stored.
func (r *settingRepository) SeedDefaults(ctx context.Context, defaults map[string]string) error {
	if len(defaults) == 0 {
		return nil
	}
	rows := make([]model.Setting, 0, len(defaults))
	for k, v := range defaults {
		rows = append(rows, model.Setting{Key: k, Value: v})
	}
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}
