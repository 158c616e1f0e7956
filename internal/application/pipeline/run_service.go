package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopmigrate/backend/internal/domain/migration"
	"github.com/shopmigrate/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultEntityOrder is the sequence entity types are migrated in. Referenced
// entities come before their referrers so mappings exist when needed.
var DefaultEntityOrder = []string{
	migration.EntityCustomer,
	migration.EntityOrder,
}

// RunConfig bounds the pipeline's page and chunk sizes
type RunConfig struct {
	PageSize  int
	ChunkSize int
}

// RunService owns the run lifecycle and drives the fetch, convert and write
// steps per entity type. It checks the persisted run status between pages so
// an operator pause or abort takes effect at the next page boundary.
type RunService struct {
	runs        migration.RunRepository
	connections migration.ConnectionRepository
	fetcher     *DataFetcher
	converter   *DataConverter
	writer      *DataWriter
	premapping  *PremappingService
	logging     migration.LoggingService
	logger      *zap.Logger
	entityOrder []string
	config      RunConfig
}

func NewRunService(
	runs migration.RunRepository,
	connections migration.ConnectionRepository,
	fetcher *DataFetcher,
	converter *DataConverter,
	writer *DataWriter,
	premapping *PremappingService,
	logging migration.LoggingService,
	logger *zap.Logger,
	config RunConfig,
) *RunService {
	if config.PageSize <= 0 {
		config.PageSize = 250
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = 100
	}
	return &RunService{
		runs:        runs,
		connections: connections,
		fetcher:     fetcher,
		converter:   converter,
		writer:      writer,
		premapping:  premapping,
		logging:     logging,
		logger:      logger,
		entityOrder: DefaultEntityOrder,
		config:      config,
	}
}

// SetEntityOrder overrides the migrated entity sequence
func (s *RunService) SetEntityOrder(order []string) {
	if len(order) > 0 {
		s.entityOrder = order
	}
}

// CreateRun creates a run for a connection. If any required premapping choice
// is unresolved the run waits in premapping-pending.
func (s *RunService) CreateRun(ctx context.Context, connectionID uuid.UUID) (*migration.Run, error) {
	connection, err := s.connections.FindByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	run, err := migration.NewRun(connection.ID)
	if err != nil {
		return nil, err
	}
	if !connection.PremappingResolved(s.premapping.RequiredMappingNames()) {
		if err := run.RequirePremapping(); err != nil {
			return nil, err
		}
	}
	if err := s.runs.Save(ctx, run); err != nil {
		return nil, err
	}
	s.logger.Info("run created",
		zap.String("run_id", run.ID.String()),
		zap.String("connection_id", connection.ID.String()),
		zap.String("status", run.Status.String()))
	return run, nil
}

// StartRun moves a run into running and processes it to completion, pause or
// abort
func (s *RunService) StartRun(ctx context.Context, runID uuid.UUID) error {
	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		return err
	}
	connection, err := s.connections.FindByID(ctx, run.ConnectionID)
	if err != nil {
		return err
	}
	resolved := connection.PremappingResolved(s.premapping.RequiredMappingNames())
	if err := run.Start(resolved); err != nil {
		return err
	}
	if err := s.runs.Update(ctx, run); err != nil {
		return err
	}
	return s.process(ctx, run, connection)
}

// ResumeRun continues a paused run from the staged records
func (s *RunService) ResumeRun(ctx context.Context, runID uuid.UUID) error {
	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		return err
	}
	if err := run.Resume(); err != nil {
		return err
	}
	if err := s.runs.Update(ctx, run); err != nil {
		return err
	}
	connection, err := s.connections.FindByID(ctx, run.ConnectionID)
	if err != nil {
		return err
	}
	return s.process(ctx, run, connection)
}

// PauseRun requests a pause; processing stops at the next page boundary
func (s *RunService) PauseRun(ctx context.Context, runID uuid.UUID) error {
	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		return err
	}
	if err := run.Pause(); err != nil {
		return err
	}
	return s.runs.Update(ctx, run)
}

// AbortRun terminates a run
func (s *RunService) AbortRun(ctx context.Context, runID uuid.UUID, reason string) error {
	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		return err
	}
	if err := run.Abort(reason); err != nil {
		return err
	}
	return s.runs.Update(ctx, run)
}

// GetRun returns a run with its progress counters
func (s *RunService) GetRun(ctx context.Context, runID uuid.UUID) (*migration.Run, error) {
	return s.runs.FindByID(ctx, runID)
}

// process drives all entity types through fetch, convert and write. An
// unrecoverable gateway error aborts the run; everything else bubbles up.
func (s *RunService) process(ctx context.Context, run *migration.Run, connection *migration.Connection) error {
	for _, entityType := range s.entityOrder {
		cont, err := s.processEntity(ctx, run, connection, entityType)
		if err != nil {
			return s.abortOnError(ctx, run, err)
		}
		if !cont {
			return nil
		}
	}

	if err := run.Finish(); err != nil {
		return err
	}
	if err := s.runs.Update(ctx, run); err != nil {
		return err
	}
	if err := s.logging.Flush(ctx); err != nil {
		return err
	}
	s.logger.Info("run finished",
		zap.String("run_id", run.ID.String()),
		zap.Int64("written", run.Progress.Written))
	return nil
}

// processEntity runs the three steps for one entity type. Returns false when
// the run was paused or aborted externally.
func (s *RunService) processEntity(ctx context.Context, run *migration.Run, connection *migration.Connection, entityType string) (bool, error) {
	total, err := s.fetcher.FetchTotal(ctx, migration.NewMigrationContext(run.ID, connection, entityType, 0, 0))
	if err != nil {
		return false, err
	}
	staged, err := s.fetcher.StagedCount(ctx, migration.NewMigrationContext(run.ID, connection, entityType, 0, 0))
	if err != nil {
		return false, err
	}
	// the entity total is counted once; staged records mean an earlier
	// pass already got here
	if staged == 0 {
		run.Progress.Total += total
	}
	if err := s.runs.Update(ctx, run); err != nil {
		return false, err
	}

	// fetch, continuing behind whatever an earlier pass staged
	for offset := int(staged); ; offset += s.config.PageSize {
		if cont, err := s.stillRunning(ctx, run); err != nil || !cont {
			return false, err
		}
		migrationCtx := migration.NewMigrationContext(run.ID, connection, entityType, offset, s.config.PageSize)
		fetched, err := s.fetcher.FetchPage(ctx, migrationCtx)
		if err != nil {
			return false, err
		}
		run.Progress.Fetched += int64(fetched)
		if err := s.runs.Update(ctx, run); err != nil {
			return false, err
		}
		if fetched < s.config.PageSize {
			break
		}
	}

	// convert; unattempted records drop out of the query as they are marked
	for {
		if cont, err := s.stillRunning(ctx, run); err != nil || !cont {
			return false, err
		}
		migrationCtx := migration.NewMigrationContext(run.ID, connection, entityType, 0, s.config.PageSize)
		converted, err := s.converter.ConvertPage(ctx, migrationCtx)
		if err != nil {
			return false, err
		}
		if converted == 0 {
			break
		}
		run.Progress.Converted += int64(converted)
		if err := s.runs.Update(ctx, run); err != nil {
			return false, err
		}
	}

	// write
	for {
		if cont, err := s.stillRunning(ctx, run); err != nil || !cont {
			return false, err
		}
		migrationCtx := migration.NewMigrationContext(run.ID, connection, entityType, 0, s.config.ChunkSize)
		written, failed, err := s.writer.WriteChunk(ctx, migrationCtx)
		if err != nil {
			return false, err
		}
		if written+failed == 0 {
			break
		}
		run.Progress.Written += int64(written)
		run.Progress.Skipped += int64(failed)
		if err := s.runs.Update(ctx, run); err != nil {
			return false, err
		}
	}

	return true, nil
}

// stillRunning reloads the persisted status so external pause and abort
// requests take effect at page boundaries
func (s *RunService) stillRunning(ctx context.Context, run *migration.Run) (bool, error) {
	current, err := s.runs.FindByID(ctx, run.ID)
	if err != nil {
		return false, err
	}
	if !current.IsRunning() {
		s.logger.Info("run interrupted",
			zap.String("run_id", run.ID.String()),
			zap.String("status", current.Status.String()))
		run.Status = current.Status
		return false, nil
	}
	return true, nil
}

// abortOnError aborts the run on an unrecoverable error and records it as a
// run exception log entry
func (s *RunService) abortOnError(ctx context.Context, run *migration.Run, cause error) error {
	var readErr *migration.GatewayReadError
	var domainErr *shared.DomainError
	switch {
	case errors.As(cause, &readErr):
	case errors.As(cause, &domainErr):
	default:
		// persistence failures are returned as-is, the run state is unknown
		return cause
	}

	s.logging.AddError(run.ID, migration.LogCodeRunException,
		"An exception occurred",
		cause.Error(),
		map[string]any{"error": cause.Error()}, 1)
	if err := s.logging.Flush(ctx); err != nil {
		s.logger.Error("failed to flush logs during abort", zap.Error(err))
	}
	if err := run.Abort(cause.Error()); err != nil {
		return fmt.Errorf("failed to abort run after error %v: %w", cause, err)
	}
	if err := s.runs.Update(ctx, run); err != nil {
		return err
	}
	s.logger.Error("run aborted",
		zap.String("run_id", run.ID.String()),
		zap.Error(cause))
	return cause
}
