package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopmigrate/backend/internal/domain/migration"
	"go.uber.org/zap"
)

// LoggingService buffers structured run diagnostics in memory and persists
// them as one batch at defined checkpoints. Conversion and writing can emit
// thousands of diagnostics per run; buffering avoids one persistence
// round-trip per anomaly.
type LoggingService struct {
	repo   migration.LogEntryRepository
	logger *zap.Logger

	mu      sync.Mutex
	entries []*migration.LogEntry
}

// NewLoggingService creates a buffered logging service
func NewLoggingService(repo migration.LogEntryRepository, logger *zap.Logger) *LoggingService {
	return &LoggingService{
		repo:   repo,
		logger: logger,
	}
}

// AddInfo buffers an info-level diagnostic
func (s *LoggingService) AddInfo(runID uuid.UUID, code, title, description string, parameters map[string]any, count int) {
	s.add(migration.LogLevelInfo, runID, code, title, description, parameters, count)
}

// AddWarning buffers a warning-level diagnostic
func (s *LoggingService) AddWarning(runID uuid.UUID, code, title, description string, parameters map[string]any, count int) {
	s.add(migration.LogLevelWarning, runID, code, title, description, parameters, count)
}

// AddError buffers an error-level diagnostic
func (s *LoggingService) AddError(runID uuid.UUID, code, title, description string, parameters map[string]any, count int) {
	s.add(migration.LogLevelError, runID, code, title, description, parameters, count)
}

func (s *LoggingService) add(level migration.LogLevel, runID uuid.UUID, code, title, description string, parameters map[string]any, count int) {
	entry := migration.NewLogEntry(runID, level, code, title, description, parameters, count)
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
}

// Flush persists all buffered entries as one write and clears the buffer
func (s *LoggingService) Flush(ctx context.Context) error {
	s.mu.Lock()
	entries := s.entries
	s.entries = nil
	s.mu.Unlock()

	if len(entries) == 0 {
		return nil
	}
	if err := s.repo.SaveBatch(ctx, entries); err != nil {
		s.mu.Lock()
		s.entries = append(entries, s.entries...)
		s.mu.Unlock()
		return fmt.Errorf("failed to flush %d log entries: %w", len(entries), err)
	}
	s.logger.Debug("flushed run log entries", zap.Int("count", len(entries)))
	return nil
}

// Buffered returns a snapshot of the unflushed entries
func (s *LoggingService) Buffered() []*migration.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]*migration.LogEntry, len(s.entries))
	copy(snapshot, s.entries)
	return snapshot
}

// Ensure LoggingService implements the domain contract
var _ migration.LoggingService = (*LoggingService)(nil)
