package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopmigrate/backend/internal/domain/migration"
	"github.com/shopmigrate/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormLogEntryRepository implements LogEntryRepository using GORM
type GormLogEntryRepository struct {
	db *gorm.DB
}

// NewGormLogEntryRepository creates a new GormLogEntryRepository
func NewGormLogEntryRepository(db *gorm.DB) *GormLogEntryRepository {
	return &GormLogEntryRepository{db: db}
}

// SaveBatch persists one flush of buffered diagnostics
func (r *GormLogEntryRepository) SaveBatch(ctx context.Context, entries []*migration.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	entryModels := make([]models.LogEntryModel, len(entries))
	for i, entry := range entries {
		entryModels[i].FromDomain(entry)
	}
	return r.db.WithContext(ctx).Create(&entryModels).Error
}

// FindByRun returns all diagnostics of a run in emission order
func (r *GormLogEntryRepository) FindByRun(ctx context.Context, runID uuid.UUID) ([]*migration.LogEntry, error) {
	var entryModels []models.LogEntryModel
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("created_at ASC, id ASC").
		Find(&entryModels).Error
	if err != nil {
		return nil, err
	}
	entries := make([]*migration.LogEntry, len(entryModels))
	for i := range entryModels {
		entries[i] = entryModels[i].ToDomain()
	}
	return entries, nil
}

// Ensure GormLogEntryRepository implements LogEntryRepository
var _ migration.LogEntryRepository = (*GormLogEntryRepository)(nil)
