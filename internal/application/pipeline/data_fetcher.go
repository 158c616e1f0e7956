package pipeline

import (
	"context"

	"github.com/shopmigrate/backend/internal/domain/migration"
	"go.uber.org/zap"
)

// DataFetcher pulls raw pages from the source gateway and stages them as
// intermediate records. Fetching is the only step that talks to the source
// system; everything downstream works off the staged records.
type DataFetcher struct {
	gateways *migration.GatewayRegistry
	records  migration.DataRecordRepository
	logger   *zap.Logger
}

func NewDataFetcher(gateways *migration.GatewayRegistry, records migration.DataRecordRepository, logger *zap.Logger) *DataFetcher {
	return &DataFetcher{
		gateways: gateways,
		records:  records,
		logger:   logger,
	}
}

// FetchTotal returns the source row count for the context's entity type
func (f *DataFetcher) FetchTotal(ctx context.Context, migrationCtx *migration.MigrationContext) (int64, error) {
	gateway, err := f.gateways.Resolve(migrationCtx.Connection)
	if err != nil {
		return 0, err
	}
	total, err := gateway.ReadTotal(ctx, migrationCtx.Connection, migrationCtx.EntityType)
	if err != nil {
		return 0, migration.NewGatewayReadError(migrationCtx.Connection.GatewayName, migrationCtx.EntityType, err)
	}
	return total, nil
}

// StagedCount returns how many records of the context's entity type are
// already staged for the run. A resumed run continues fetching behind the
// staged records instead of re-reading the source from the start.
func (f *DataFetcher) StagedCount(ctx context.Context, migrationCtx *migration.MigrationContext) (int64, error) {
	return f.records.CountByRun(ctx, migrationCtx.RunID, migrationCtx.EntityType)
}

// FetchPage reads one page from the source and stages it. Returns the number
// of staged rows; a short page signals the end of the entity type.
func (f *DataFetcher) FetchPage(ctx context.Context, migrationCtx *migration.MigrationContext) (int, error) {
	gateway, err := f.gateways.Resolve(migrationCtx.Connection)
	if err != nil {
		return 0, err
	}
	rows, err := gateway.Read(ctx, migrationCtx)
	if err != nil {
		return 0, migration.NewGatewayReadError(migrationCtx.Connection.GatewayName, migrationCtx.EntityType, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	records := make([]*migration.DataRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, migration.NewDataRecord(migrationCtx.RunID, migrationCtx.EntityType, row))
	}
	if err := f.records.SaveBatch(ctx, records); err != nil {
		return 0, err
	}
	f.logger.Debug("staged source page",
		zap.String("entity", migrationCtx.EntityType),
		zap.Int("offset", migrationCtx.Offset),
		zap.Int("rows", len(records)))
	return len(records), nil
}
