package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopmigrate/backend/internal/domain/migration"
	"go.uber.org/zap"
)

// DataWriter persists converted records into the target system in bounded
// chunks. A structured constraint failure removes exactly the offending rows,
// flags them for a later run and retries the remainder of the chunk.
type DataWriter struct {
	writers  *migration.WriterRegistry
	records  migration.DataRecordRepository
	mappings migration.MappingRepository
	logging  migration.LoggingService
	logger   *zap.Logger
}

func NewDataWriter(writers *migration.WriterRegistry, records migration.DataRecordRepository, mappings migration.MappingRepository, logging migration.LoggingService, logger *zap.Logger) *DataWriter {
	return &DataWriter{
		writers:  writers,
		records:  records,
		mappings: mappings,
		logging:  logging,
		logger:   logger,
	}
}

// WriteChunk writes one chunk of converted, unwritten records. Returns how
// many records were written and how many were flagged for retry; both zero
// means the entity type is done.
func (w *DataWriter) WriteChunk(ctx context.Context, migrationCtx *migration.MigrationContext) (int, int, error) {
	records, err := w.records.FindWritable(ctx, migrationCtx.RunID, migrationCtx.EntityType, 0, migrationCtx.Limit)
	if err != nil {
		return 0, 0, err
	}
	if len(records) == 0 {
		return 0, 0, nil
	}

	writer := w.writers.Resolve(migrationCtx.EntityType)
	if writer == nil {
		w.logging.AddError(migrationCtx.RunID, migration.LogCodeWriterNotFound,
			"Writer not found",
			fmt.Sprintf("There is no writer for the %s entity.", migrationCtx.EntityType),
			map[string]any{"entity": migrationCtx.EntityType}, len(records))
		for _, record := range records {
			record.MarkWriteFailure()
		}
		if err := w.records.UpdateBatch(ctx, records); err != nil {
			return 0, 0, err
		}
		if err := w.logging.Flush(ctx); err != nil {
			return 0, 0, err
		}
		return 0, len(records), nil
	}

	if err := w.writeRecords(ctx, migrationCtx, writer, records); err != nil {
		return 0, 0, err
	}
	if err := w.records.UpdateBatch(ctx, records); err != nil {
		return 0, 0, err
	}
	if err := w.logging.Flush(ctx); err != nil {
		return 0, 0, err
	}

	failed := 0
	for _, record := range records {
		if record.WriteFailure {
			failed++
		}
	}
	w.logger.Debug("wrote chunk",
		zap.String("entity", migrationCtx.EntityType),
		zap.Int("records", len(records)),
		zap.Int("failed", failed))
	return len(records) - failed, failed, nil
}

// writeRecords attempts the upsert, peeling off violating rows and retrying
// the remainder until the chunk succeeds or nothing is left
func (w *DataWriter) writeRecords(ctx context.Context, migrationCtx *migration.MigrationContext, writer migration.Writer, records []*migration.DataRecord) error {
	if len(records) == 0 {
		return nil
	}
	payloads := make([]map[string]any, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, record.ConvertedPayload)
	}

	err := writer.Write(ctx, migrationCtx.EntityType, payloads)
	if err == nil {
		for _, record := range records {
			record.MarkWritten()
		}
		return nil
	}

	var violation *migration.WriteViolationError
	if !errors.As(err, &violation) {
		return fmt.Errorf("failed to write %s chunk: %w", migrationCtx.EntityType, err)
	}

	offending := make(map[int]string, len(violation.Violations))
	for _, v := range violation.Violations {
		if v.Index >= 0 && v.Index < len(records) {
			offending[v.Index] = v.Message
		}
	}
	if len(offending) == 0 {
		return fmt.Errorf("failed to write %s chunk: %w", migrationCtx.EntityType, err)
	}

	remainder := make([]*migration.DataRecord, 0, len(records)-len(offending))
	var failedMappingIDs []uuid.UUID
	for i, record := range records {
		message, failed := offending[i]
		if !failed {
			remainder = append(remainder, record)
			continue
		}
		record.MarkWriteFailure()
		if record.MappingID != nil {
			failedMappingIDs = append(failedMappingIDs, *record.MappingID)
		}
		w.logging.AddError(migrationCtx.RunID, migration.LogCodeRunException,
			"Write constraint violation",
			fmt.Sprintf("The %s record could not be written: %s", migrationCtx.EntityType, message),
			map[string]any{
				"entity":   migrationCtx.EntityType,
				"recordId": record.ID.String(),
				"detail":   message,
			}, 1)
	}
	if len(failedMappingIDs) > 0 {
		if err := w.mappings.ClearChecksums(ctx, failedMappingIDs); err != nil {
			return err
		}
	}
	return w.writeRecords(ctx, migrationCtx, writer, remainder)
}
