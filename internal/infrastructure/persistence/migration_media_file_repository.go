package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopmigrate/backend/internal/domain/migration"
	"github.com/shopmigrate/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormMediaFileRepository implements MediaFileRepository using GORM
type GormMediaFileRepository struct {
	db *gorm.DB
}

// NewGormMediaFileRepository creates a new GormMediaFileRepository
func NewGormMediaFileRepository(db *gorm.DB) *GormMediaFileRepository {
	return &GormMediaFileRepository{db: db}
}

// SaveBatch stages media assets registered during conversion
func (r *GormMediaFileRepository) SaveBatch(ctx context.Context, files []*migration.MediaFile) error {
	if len(files) == 0 {
		return nil
	}
	fileModels := make([]models.MediaFileModel, len(files))
	for i, file := range files {
		fileModels[i].FromDomain(file)
	}
	return r.db.WithContext(ctx).Create(&fileModels).Error
}

// FindUnprocessed returns staged assets awaiting download
func (r *GormMediaFileRepository) FindUnprocessed(ctx context.Context, runID uuid.UUID, limit int) ([]*migration.MediaFile, error) {
	var fileModels []models.MediaFileModel
	err := r.db.WithContext(ctx).
		Where("run_id = ? AND processed = ?", runID, false).
		Order("created_at ASC").
		Limit(limit).
		Find(&fileModels).Error
	if err != nil {
		return nil, err
	}
	files := make([]*migration.MediaFile, len(fileModels))
	for i := range fileModels {
		files[i] = fileModels[i].ToDomain()
	}
	return files, nil
}

// Update persists one asset's processing state
func (r *GormMediaFileRepository) Update(ctx context.Context, file *migration.MediaFile) error {
	var model models.MediaFileModel
	model.FromDomain(file)
	return r.db.WithContext(ctx).Save(&model).Error
}

// Ensure GormMediaFileRepository implements MediaFileRepository
var _ migration.MediaFileRepository = (*GormMediaFileRepository)(nil)
