package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopmigrate/backend/internal/application/converter"
	"github.com/shopmigrate/backend/internal/domain/migration"
	"go.uber.org/zap"
)

// DataConverter drives the conversion of staged records for one entity type.
// It resolves the responsible converter once per page and converts record by
// record; a single bad record never aborts the page.
type DataConverter struct {
	registry *converter.Registry
	records  migration.DataRecordRepository
	logging  migration.LoggingService
	logger   *zap.Logger
}

func NewDataConverter(registry *converter.Registry, records migration.DataRecordRepository, logging migration.LoggingService, logger *zap.Logger) *DataConverter {
	return &DataConverter{
		registry: registry,
		records:  records,
		logging:  logging,
		logger:   logger,
	}
}

// ConvertPage converts one page of unconverted records. Returns the number of
// records processed; zero means the entity type is done.
func (c *DataConverter) ConvertPage(ctx context.Context, migrationCtx *migration.MigrationContext) (int, error) {
	records, err := c.records.FindUnconverted(ctx, migrationCtx.RunID, migrationCtx.EntityType, migrationCtx.Offset, migrationCtx.Limit)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	conv, err := c.registry.Resolve(migrationCtx.EntityType, migrationCtx.ProfileName())
	if err != nil {
		return 0, err
	}

	for _, record := range records {
		result, err := conv.Convert(ctx, record.RawPayload, migrationCtx)
		if err != nil {
			var missing *converter.AssociationRequiredMissingError
			if errors.As(err, &missing) {
				c.logAssociationMissing(migrationCtx, missing)
				record.MarkRejected(record.RawPayload)
				continue
			}
			return 0, fmt.Errorf("failed to convert %s record: %w", migrationCtx.EntityType, err)
		}
		if result.Converted == nil {
			record.MarkRejected(result.Unmapped)
			continue
		}
		record.MarkConverted(result.Converted, result.Unmapped, *result.MappingID)
	}

	if err := c.records.UpdateBatch(ctx, records); err != nil {
		return 0, err
	}
	if err := conv.WriteMapping(ctx); err != nil {
		return 0, err
	}
	if err := c.logging.Flush(ctx); err != nil {
		return 0, err
	}
	c.logger.Debug("converted page",
		zap.String("entity", migrationCtx.EntityType),
		zap.Int("records", len(records)))
	return len(records), nil
}

func (c *DataConverter) logAssociationMissing(migrationCtx *migration.MigrationContext, missing *converter.AssociationRequiredMissingError) {
	code := "ASSOCIATION_REQUIRED_MISSING_" + strings.ToUpper(missing.MissingEntityType)
	c.logging.AddWarning(migrationCtx.RunID, code,
		"Associated entity not found",
		fmt.Sprintf("The %s entity with the source id %q could not be converted because the required %s entity is missing.",
			missing.EntityType, missing.SourceID, missing.MissingEntityType),
		map[string]any{
			"entity":              missing.EntityType,
			"sourceId":            missing.SourceID,
			"missingEntity":       missing.MissingEntityType,
			"requiredForSourceId": missing.SourceID,
		}, 1)
}
