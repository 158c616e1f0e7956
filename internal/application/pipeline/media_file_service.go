package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopmigrate/backend/internal/domain/migration"
	"go.uber.org/zap"
)

// MediaFileService stages source media assets referenced during conversion
// for a later download step. Registrations are buffered per run and saved as
// one batch, mirroring the mapping and logging write pattern.
type MediaFileService struct {
	repo   migration.MediaFileRepository
	logger *zap.Logger

	mu     sync.Mutex
	staged []*migration.MediaFile
}

func NewMediaFileService(repo migration.MediaFileRepository, logger *zap.Logger) *MediaFileService {
	return &MediaFileService{
		repo:   repo,
		logger: logger,
	}
}

// Register buffers one media asset of a converted entity
func (s *MediaFileService) Register(runID, entityID uuid.UUID, uri string, fileSize int64) {
	if uri == "" {
		return
	}
	file := migration.NewMediaFile(runID, entityID, uri, fileSize)
	s.mu.Lock()
	s.staged = append(s.staged, file)
	s.mu.Unlock()
}

// Flush persists all buffered registrations as one batch
func (s *MediaFileService) Flush(ctx context.Context) error {
	s.mu.Lock()
	staged := s.staged
	s.staged = nil
	s.mu.Unlock()

	if len(staged) == 0 {
		return nil
	}
	if err := s.repo.SaveBatch(ctx, staged); err != nil {
		s.mu.Lock()
		s.staged = append(staged, s.staged...)
		s.mu.Unlock()
		return err
	}
	s.logger.Debug("staged media files", zap.Int("count", len(staged)))
	return nil
}

// NextUnprocessed returns up to limit staged assets awaiting download
func (s *MediaFileService) NextUnprocessed(ctx context.Context, runID uuid.UUID, limit int) ([]*migration.MediaFile, error) {
	return s.repo.FindUnprocessed(ctx, runID, limit)
}

// MarkProcessed records a downloaded asset
func (s *MediaFileService) MarkProcessed(ctx context.Context, file *migration.MediaFile) error {
	file.MarkProcessed()
	return s.repo.Update(ctx, file)
}

var _ migration.MediaFileService = (*MediaFileService)(nil)
