package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopmigrate/backend/internal/domain/migration"
	"github.com/shopmigrate/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormDataRecordRepository implements DataRecordRepository using GORM
type GormDataRecordRepository struct {
	db *gorm.DB
}

// NewGormDataRecordRepository creates a new GormDataRecordRepository
func NewGormDataRecordRepository(db *gorm.DB) *GormDataRecordRepository {
	return &GormDataRecordRepository{db: db}
}

// SaveBatch stages one page of raw records
func (r *GormDataRecordRepository) SaveBatch(ctx context.Context, records []*migration.DataRecord) error {
	if len(records) == 0 {
		return nil
	}
	recordModels := make([]models.DataRecordModel, len(records))
	for i, record := range records {
		recordModels[i].FromDomain(record)
	}
	return r.db.WithContext(ctx).Create(&recordModels).Error
}

// Update persists one record's state change
func (r *GormDataRecordRepository) Update(ctx context.Context, record *migration.DataRecord) error {
	var model models.DataRecordModel
	model.FromDomain(record)
	return r.db.WithContext(ctx).Save(&model).Error
}

// UpdateBatch persists the state changes of one page in a single transaction
func (r *GormDataRecordRepository) UpdateBatch(ctx context.Context, records []*migration.DataRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, record := range records {
			var model models.DataRecordModel
			model.FromDomain(record)
			if err := tx.Save(&model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindUnconverted pages records not yet attempted by the converter
func (r *GormDataRecordRepository) FindUnconverted(ctx context.Context, runID uuid.UUID, entityType string, offset, limit int) ([]*migration.DataRecord, error) {
	var recordModels []models.DataRecordModel
	err := r.db.WithContext(ctx).
		Where("run_id = ? AND entity_type = ? AND converted IS NULL AND convert_failure = ?", runID, entityType, false).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&recordModels).Error
	if err != nil {
		return nil, err
	}
	return toDomainRecords(recordModels), nil
}

// FindWritable pages converted records awaiting a successful write. Records
// already flagged as write failures are retried by a later run, not here.
func (r *GormDataRecordRepository) FindWritable(ctx context.Context, runID uuid.UUID, entityType string, offset, limit int) ([]*migration.DataRecord, error) {
	var recordModels []models.DataRecordModel
	err := r.db.WithContext(ctx).
		Where("run_id = ? AND entity_type = ? AND converted IS NOT NULL AND checksum = ? AND write_failure = ?",
			runID, entityType, "", false).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&recordModels).Error
	if err != nil {
		return nil, err
	}
	return toDomainRecords(recordModels), nil
}

// CountByRun counts staged records for a run and entity type
func (r *GormDataRecordRepository) CountByRun(ctx context.Context, runID uuid.UUID, entityType string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DataRecordModel{}).
		Where("run_id = ? AND entity_type = ?", runID, entityType).
		Count(&count).Error
	return count, err
}

func toDomainRecords(recordModels []models.DataRecordModel) []*migration.DataRecord {
	records := make([]*migration.DataRecord, len(recordModels))
	for i := range recordModels {
		records[i] = recordModels[i].ToDomain()
	}
	return records
}

// Ensure GormDataRecordRepository implements DataRecordRepository
var _ migration.DataRecordRepository = (*GormDataRecordRepository)(nil)
