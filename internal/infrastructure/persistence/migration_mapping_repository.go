package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopmigrate/backend/internal/domain/migration"
	"github.com/shopmigrate/backend/internal/domain/shared"
	"github.com/shopmigrate/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMappingRepository implements MappingRepository using GORM
type GormMappingRepository struct {
	db *gorm.DB
}

// NewGormMappingRepository creates a new GormMappingRepository
func NewGormMappingRepository(db *gorm.DB) *GormMappingRepository {
	return &GormMappingRepository{db: db}
}

// SaveBatch upserts mapping entries. The new identifier of an existing entry
// is never touched so re-running a migration cannot fork identities.
func (r *GormMappingRepository) SaveBatch(ctx context.Context, entries []*migration.MappingEntry) error {
	if len(entries) == 0 {
		return nil
	}
	entryModels := make([]models.MappingModel, len(entries))
	for i, entry := range entries {
		entryModels[i].FromDomain(entry)
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "connection_id"},
				{Name: "entity_type"},
				{Name: "old_identifier"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"checksum", "additional_data", "updated_at"}),
		}).
		Create(&entryModels).Error
}

// Find returns the entry for one (connection, entityType, oldID) triple
func (r *GormMappingRepository) Find(ctx context.Context, connectionID uuid.UUID, entityType, oldID string) (*migration.MappingEntry, error) {
	var model models.MappingModel
	err := r.db.WithContext(ctx).
		Where("connection_id = ? AND entity_type = ? AND old_identifier = ?", connectionID, entityType, oldID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByConnection returns all entries of one entity type for a connection
func (r *GormMappingRepository) FindByConnection(ctx context.Context, connectionID uuid.UUID, entityType string) ([]*migration.MappingEntry, error) {
	var entryModels []models.MappingModel
	err := r.db.WithContext(ctx).
		Where("connection_id = ? AND entity_type = ?", connectionID, entityType).
		Order("created_at ASC").
		Find(&entryModels).Error
	if err != nil {
		return nil, err
	}
	entries := make([]*migration.MappingEntry, len(entryModels))
	for i := range entryModels {
		entries[i] = entryModels[i].ToDomain()
	}
	return entries, nil
}

// ClearChecksums forces re-evaluation of the given entries on a later run
func (r *GormMappingRepository) ClearChecksums(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.MappingModel{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"checksum":   "",
			"updated_at": time.Now(),
		}).Error
}

// Ensure GormMappingRepository implements MappingRepository
var _ migration.MappingRepository = (*GormMappingRepository)(nil)
