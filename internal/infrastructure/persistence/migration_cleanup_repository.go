package persistence

import (
	"context"
	"fmt"

	"github.com/shopmigrate/backend/internal/domain/migration"
	"gorm.io/gorm"
)

// GormCleanupRepository implements CleanupRepository using GORM. Deletion is
// restricted to the run-scoped tables of the cascade.
type GormCleanupRepository struct {
	db *gorm.DB
}

// NewGormCleanupRepository creates a new GormCleanupRepository
func NewGormCleanupRepository(db *gorm.DB) *GormCleanupRepository {
	return &GormCleanupRepository{db: db}
}

// DeleteTable deletes all rows of one cascade table
func (r *GormCleanupRepository) DeleteTable(ctx context.Context, table string) error {
	if !isCleanupTable(table) {
		return fmt.Errorf("table %s is not part of the cleanup cascade", table)
	}
	return r.db.WithContext(ctx).Exec("DELETE FROM " + table).Error
}

func isCleanupTable(table string) bool {
	for _, name := range migration.CleanupOrder {
		if name == table {
			return true
		}
	}
	return false
}

// Ensure GormCleanupRepository implements CleanupRepository
var _ migration.CleanupRepository = (*GormCleanupRepository)(nil)
