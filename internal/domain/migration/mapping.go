package migration

import (
	"time"

	"github.com/google/uuid"
)

// MappingEntry ties a source-system identifier to a newly minted
// target-system identifier. Unique per (ConnectionID, EntityType, OldID).
// NewID never changes once created so re-running a migration does not fork
// identities. Checksum marks the associated data as successfully written and
// is cleared to force re-evaluation when a dependent write fails.
type MappingEntry struct {
	ID           uuid.UUID
	ConnectionID uuid.UUID
	EntityType   string
	OldID        string
	NewID        uuid.UUID
	Checksum     string
	// AdditionalData carries choice-entity bookkeeping, e.g. the premapping
	// source description
	AdditionalData map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewMappingEntry mints a mapping entry with a fresh target identifier
func NewMappingEntry(connectionID uuid.UUID, entityType, oldID string) *MappingEntry {
	return newMappingEntry(connectionID, entityType, oldID, uuid.New())
}

// SeededMappingEntry creates a mapping entry with an already-known target
// identifier, e.g. a well-known system default.
func SeededMappingEntry(connectionID uuid.UUID, entityType, oldID string, newID uuid.UUID) *MappingEntry {
	return newMappingEntry(connectionID, entityType, oldID, newID)
}

func newMappingEntry(connectionID uuid.UUID, entityType, oldID string, newID uuid.UUID) *MappingEntry {
	now := time.Now()
	return &MappingEntry{
		ID:           uuid.New(),
		ConnectionID: connectionID,
		EntityType:   entityType,
		OldID:        oldID,
		NewID:        newID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ClearChecksum forces the mapped data to be treated as unwritten
func (m *MappingEntry) ClearChecksum() {
	m.Checksum = ""
	m.UpdatedAt = time.Now()
}
