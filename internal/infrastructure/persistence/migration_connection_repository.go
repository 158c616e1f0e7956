package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopmigrate/backend/internal/domain/migration"
	"github.com/shopmigrate/backend/internal/domain/shared"
	"github.com/shopmigrate/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormConnectionRepository implements ConnectionRepository using GORM
type GormConnectionRepository struct {
	db *gorm.DB
}

// NewGormConnectionRepository creates a new GormConnectionRepository
func NewGormConnectionRepository(db *gorm.DB) *GormConnectionRepository {
	return &GormConnectionRepository{db: db}
}

// Save persists a connection
func (r *GormConnectionRepository) Save(ctx context.Context, connection *migration.Connection) error {
	var model models.ConnectionModel
	model.FromDomain(connection)
	return r.db.WithContext(ctx).Save(&model).Error
}

// FindByID finds a connection by its ID
func (r *GormConnectionRepository) FindByID(ctx context.Context, id uuid.UUID) (*migration.Connection, error) {
	var model models.ConnectionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// UpdatePremapping replaces the persisted premapping choice tables
func (r *GormConnectionRepository) UpdatePremapping(ctx context.Context, id uuid.UUID, premapping []migration.PremappingStruct) error {
	serialized, err := json.Marshal(premapping)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Model(&models.ConnectionModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"premapping": string(serialized),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormConnectionRepository implements ConnectionRepository
var _ migration.ConnectionRepository = (*GormConnectionRepository)(nil)
