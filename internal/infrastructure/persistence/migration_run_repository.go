package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopmigrate/backend/internal/domain/migration"
	"github.com/shopmigrate/backend/internal/domain/shared"
	"github.com/shopmigrate/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormRunRepository implements RunRepository using GORM
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository creates a new GormRunRepository
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// Save persists a new run
func (r *GormRunRepository) Save(ctx context.Context, run *migration.Run) error {
	var model models.RunModel
	model.FromDomain(run)
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindByID finds a run by its ID
func (r *GormRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*migration.Run, error) {
	var model models.RunModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Update persists run status and progress changes
func (r *GormRunRepository) Update(ctx context.Context, run *migration.Run) error {
	var model models.RunModel
	model.FromDomain(run)
	result := r.db.WithContext(ctx).Save(&model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormRunRepository implements RunRepository
var _ migration.RunRepository = (*GormRunRepository)(nil)
