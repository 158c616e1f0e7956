package migration

import (
	"time"

	"github.com/google/uuid"
)

// MediaFile is a run-scoped staging record for a source media asset that a
// later processing step downloads into the target system.
type MediaFile struct {
	ID        uuid.UUID
	RunID     uuid.UUID
	EntityID  uuid.UUID
	URI       string
	FileSize  int64
	Processed bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewMediaFile stages a media asset for a run
func NewMediaFile(runID, entityID uuid.UUID, uri string, fileSize int64) *MediaFile {
	now := time.Now()
	return &MediaFile{
		ID:        uuid.New(),
		RunID:     runID,
		EntityID:  entityID,
		URI:       uri,
		FileSize:  fileSize,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkProcessed records that the asset was downloaded into the target system
func (m *MediaFile) MarkProcessed() {
	m.Processed = true
	m.UpdatedAt = time.Now()
}
