package migration

import (
	"context"

	"github.com/google/uuid"
)

// ConnectionRepository manages source-system connections
type ConnectionRepository interface {
	Save(ctx context.Context, connection *Connection) error
	FindByID(ctx context.Context, id uuid.UUID) (*Connection, error)
	UpdatePremapping(ctx context.Context, id uuid.UUID, premapping []PremappingStruct) error
}

// RunRepository manages migration runs
type RunRepository interface {
	Save(ctx context.Context, run *Run) error
	FindByID(ctx context.Context, id uuid.UUID) (*Run, error)
	Update(ctx context.Context, run *Run) error
}

// DataRecordRepository manages intermediate records for a run
type DataRecordRepository interface {
	SaveBatch(ctx context.Context, records []*DataRecord) error
	Update(ctx context.Context, record *DataRecord) error
	UpdateBatch(ctx context.Context, records []*DataRecord) error
	// FindUnconverted pages records not yet attempted: no converted payload
	// and no conversion failure flag
	FindUnconverted(ctx context.Context, runID uuid.UUID, entityType string, offset, limit int) ([]*DataRecord, error)
	// FindWritable pages converted records whose checksum is empty
	FindWritable(ctx context.Context, runID uuid.UUID, entityType string, offset, limit int) ([]*DataRecord, error)
	CountByRun(ctx context.Context, runID uuid.UUID, entityType string) (int64, error)
}

// MappingRepository manages identity mapping entries
type MappingRepository interface {
	SaveBatch(ctx context.Context, entries []*MappingEntry) error
	Find(ctx context.Context, connectionID uuid.UUID, entityType, oldID string) (*MappingEntry, error)
	FindByConnection(ctx context.Context, connectionID uuid.UUID, entityType string) ([]*MappingEntry, error)
	ClearChecksums(ctx context.Context, ids []uuid.UUID) error
}

// LogEntryRepository persists diagnostic log entries
type LogEntryRepository interface {
	SaveBatch(ctx context.Context, entries []*LogEntry) error
	FindByRun(ctx context.Context, runID uuid.UUID) ([]*LogEntry, error)
}

// MediaFileRepository manages staged media assets
type MediaFileRepository interface {
	SaveBatch(ctx context.Context, files []*MediaFile) error
	FindUnprocessed(ctx context.Context, runID uuid.UUID, limit int) ([]*MediaFile, error)
	Update(ctx context.Context, file *MediaFile) error
}
