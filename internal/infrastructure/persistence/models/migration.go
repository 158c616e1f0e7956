package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopmigrate/backend/internal/domain/migration"
	"go.uber.org/zap"
)

// logger for model conversion errors (silent failures are logged for debugging)
var migrationModelLogger = zap.L().Named("migration.models")

// ConnectionModel is the persistence model for a source-system connection
type ConnectionModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key"`
	Name            string    `gorm:"type:varchar(200);not null;uniqueIndex"`
	ProfileName     string    `gorm:"type:varchar(100);not null"`
	GatewayName     string    `gorm:"type:varchar(100);not null"`
	CredentialsJSON string    `gorm:"column:credentials;type:jsonb;default:'{}'"`
	PremappingJSON  string    `gorm:"column:premapping;type:jsonb;default:'[]'"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ConnectionModel) TableName() string {
	return migration.TableConnection
}

// ToDomain converts the persistence model to a domain Connection
func (m *ConnectionModel) ToDomain() *migration.Connection {
	connection := &migration.Connection{
		ID:          m.ID,
		Name:        m.Name,
		ProfileName: m.ProfileName,
		GatewayName: m.GatewayName,
		Credentials: make(map[string]string),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.CredentialsJSON != "" && m.CredentialsJSON != "{}" {
		if err := json.Unmarshal([]byte(m.CredentialsJSON), &connection.Credentials); err != nil {
			migrationModelLogger.Warn("failed to parse credentials JSON",
				zap.String("connection", m.Name),
				zap.Error(err))
		}
	}
	if m.PremappingJSON != "" && m.PremappingJSON != "[]" {
		if err := json.Unmarshal([]byte(m.PremappingJSON), &connection.Premapping); err != nil {
			migrationModelLogger.Warn("failed to parse premapping JSON",
				zap.String("connection", m.Name),
				zap.Error(err))
		}
	}
	return connection
}

// FromDomain populates the persistence model from a domain Connection
func (m *ConnectionModel) FromDomain(c *migration.Connection) {
	m.ID = c.ID
	m.Name = c.Name
	m.ProfileName = c.ProfileName
	m.GatewayName = c.GatewayName
	m.CreatedAt = c.CreatedAt
	m.UpdatedAt = c.UpdatedAt
	m.CredentialsJSON = marshalOr(c.Credentials, "{}")
	m.PremappingJSON = marshalOr(c.Premapping, "[]")
}

// RunModel is the persistence model for a migration run
type RunModel struct {
	ID           uuid.UUID           `gorm:"type:uuid;primary_key"`
	ConnectionID uuid.UUID           `gorm:"type:uuid;not null;index"`
	Status       migration.RunStatus `gorm:"type:varchar(30);not null;index"`
	ProgressJSON string              `gorm:"column:progress;type:jsonb;default:'{}'"`
	ErrorMessage string              `gorm:"type:text"`
	StartedAt    *time.Time
	FinishedAt   *time.Time
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RunModel) TableName() string {
	return migration.TableRun
}

// ToDomain converts the persistence model to a domain Run
func (m *RunModel) ToDomain() *migration.Run {
	run := &migration.Run{
		ID:           m.ID,
		ConnectionID: m.ConnectionID,
		Status:       m.Status,
		ErrorMessage: m.ErrorMessage,
		StartedAt:    m.StartedAt,
		FinishedAt:   m.FinishedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.ProgressJSON != "" && m.ProgressJSON != "{}" {
		if err := json.Unmarshal([]byte(m.ProgressJSON), &run.Progress); err != nil {
			migrationModelLogger.Warn("failed to parse progress JSON",
				zap.String("run_id", m.ID.String()),
				zap.Error(err))
		}
	}
	return run
}

// FromDomain populates the persistence model from a domain Run
func (m *RunModel) FromDomain(r *migration.Run) {
	m.ID = r.ID
	m.ConnectionID = r.ConnectionID
	m.Status = r.Status
	m.ErrorMessage = r.ErrorMessage
	m.StartedAt = r.StartedAt
	m.FinishedAt = r.FinishedAt
	m.CreatedAt = r.CreatedAt
	m.UpdatedAt = r.UpdatedAt
	m.ProgressJSON = marshalOr(r.Progress, "{}")
}

// DataRecordModel is the persistence model for one staged source row
type DataRecordModel struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key"`
	RunID          uuid.UUID  `gorm:"type:uuid;not null;index:idx_migration_data_run_entity"`
	EntityType     string     `gorm:"type:varchar(100);not null;index:idx_migration_data_run_entity"`
	RawJSON        string     `gorm:"column:raw;type:jsonb;not null"`
	ConvertedJSON  *string    `gorm:"column:converted;type:jsonb"`
	UnmappedJSON   *string    `gorm:"column:unmapped;type:jsonb"`
	MappingID      *uuid.UUID `gorm:"type:uuid;index"`
	ConvertFailure bool       `gorm:"not null;default:false"`
	WriteFailure   bool       `gorm:"not null;default:false"`
	Checksum       string     `gorm:"type:varchar(64);not null;default:''"`
	CreatedAt      time.Time  `gorm:"not null"`
	UpdatedAt      time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DataRecordModel) TableName() string {
	return migration.TableData
}

// ToDomain converts the persistence model to a domain DataRecord
func (m *DataRecordModel) ToDomain() *migration.DataRecord {
	record := &migration.DataRecord{
		ID:             m.ID,
		RunID:          m.RunID,
		EntityType:     m.EntityType,
		MappingID:      m.MappingID,
		ConvertFailure: m.ConvertFailure,
		WriteFailure:   m.WriteFailure,
		Checksum:       m.Checksum,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	record.RawPayload = unmarshalPayload(m.RawJSON, m.ID, "raw")
	if m.ConvertedJSON != nil {
		record.ConvertedPayload = unmarshalPayload(*m.ConvertedJSON, m.ID, "converted")
	}
	if m.UnmappedJSON != nil {
		record.UnmappedPayload = unmarshalPayload(*m.UnmappedJSON, m.ID, "unmapped")
	}
	return record
}

// FromDomain populates the persistence model from a domain DataRecord
func (m *DataRecordModel) FromDomain(r *migration.DataRecord) {
	m.ID = r.ID
	m.RunID = r.RunID
	m.EntityType = r.EntityType
	m.MappingID = r.MappingID
	m.ConvertFailure = r.ConvertFailure
	m.WriteFailure = r.WriteFailure
	m.Checksum = r.Checksum
	m.CreatedAt = r.CreatedAt
	m.UpdatedAt = r.UpdatedAt
	m.RawJSON = marshalOr(r.RawPayload, "{}")
	m.ConvertedJSON = marshalNullable(r.ConvertedPayload)
	m.UnmappedJSON = marshalNullable(r.UnmappedPayload)
}

// MappingModel is the persistence model for one identity mapping entry
type MappingModel struct {
	ID                 uuid.UUID `gorm:"type:uuid;primary_key"`
	ConnectionID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_migration_mapping_identity"`
	EntityType         string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_migration_mapping_identity"`
	OldIdentifier      string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_migration_mapping_identity"`
	NewIdentifier      uuid.UUID `gorm:"type:uuid;not null"`
	Checksum           string    `gorm:"type:varchar(64);not null;default:''"`
	AdditionalDataJSON *string   `gorm:"column:additional_data;type:jsonb"`
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MappingModel) TableName() string {
	return migration.TableMapping
}

// ToDomain converts the persistence model to a domain MappingEntry
func (m *MappingModel) ToDomain() *migration.MappingEntry {
	entry := &migration.MappingEntry{
		ID:           m.ID,
		ConnectionID: m.ConnectionID,
		EntityType:   m.EntityType,
		OldID:        m.OldIdentifier,
		NewID:        m.NewIdentifier,
		Checksum:     m.Checksum,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.AdditionalDataJSON != nil {
		entry.AdditionalData = unmarshalPayload(*m.AdditionalDataJSON, m.ID, "additional_data")
	}
	return entry
}

// FromDomain populates the persistence model from a domain MappingEntry
func (m *MappingModel) FromDomain(e *migration.MappingEntry) {
	m.ID = e.ID
	m.ConnectionID = e.ConnectionID
	m.EntityType = e.EntityType
	m.OldIdentifier = e.OldID
	m.NewIdentifier = e.NewID
	m.Checksum = e.Checksum
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
	m.AdditionalDataJSON = marshalNullable(e.AdditionalData)
}

// LogEntryModel is the persistence model for one run diagnostic
type LogEntryModel struct {
	ID             uuid.UUID          `gorm:"type:uuid;primary_key"`
	RunID          uuid.UUID          `gorm:"type:uuid;not null;index"`
	Level          migration.LogLevel `gorm:"type:varchar(10);not null"`
	Code           string             `gorm:"type:varchar(100);not null;index"`
	Title          string             `gorm:"type:varchar(255);not null"`
	Description    string             `gorm:"type:text"`
	ParametersJSON *string            `gorm:"column:parameters;type:jsonb"`
	Count          int                `gorm:"not null;default:1"`
	Entity         string             `gorm:"type:varchar(100)"`
	SourceID       string             `gorm:"type:varchar(255)"`
	CreatedAt      time.Time          `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LogEntryModel) TableName() string {
	return migration.TableLogging
}

// ToDomain converts the persistence model to a domain LogEntry
func (m *LogEntryModel) ToDomain() *migration.LogEntry {
	entry := &migration.LogEntry{
		ID:          m.ID,
		RunID:       m.RunID,
		Level:       m.Level,
		Code:        m.Code,
		Title:       m.Title,
		Description: m.Description,
		Count:       m.Count,
		Entity:      m.Entity,
		SourceID:    m.SourceID,
		CreatedAt:   m.CreatedAt,
	}
	if m.ParametersJSON != nil {
		entry.Parameters = unmarshalPayload(*m.ParametersJSON, m.ID, "parameters")
	}
	return entry
}

// FromDomain populates the persistence model from a domain LogEntry
func (m *LogEntryModel) FromDomain(e *migration.LogEntry) {
	m.ID = e.ID
	m.RunID = e.RunID
	m.Level = e.Level
	m.Code = e.Code
	m.Title = e.Title
	m.Description = e.Description
	m.Count = e.Count
	m.Entity = e.Entity
	m.SourceID = e.SourceID
	m.CreatedAt = e.CreatedAt
	m.ParametersJSON = marshalNullable(e.Parameters)
}

// MediaFileModel is the persistence model for one staged media asset
type MediaFileModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	RunID     uuid.UUID `gorm:"type:uuid;not null;index"`
	EntityID  uuid.UUID `gorm:"type:uuid;not null"`
	URI       string    `gorm:"type:text;not null"`
	FileSize  int64     `gorm:"not null;default:0"`
	Processed bool      `gorm:"not null;default:false;index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MediaFileModel) TableName() string {
	return migration.TableMediaFile
}

// ToDomain converts the persistence model to a domain MediaFile
func (m *MediaFileModel) ToDomain() *migration.MediaFile {
	return &migration.MediaFile{
		ID:        m.ID,
		RunID:     m.RunID,
		EntityID:  m.EntityID,
		URI:       m.URI,
		FileSize:  m.FileSize,
		Processed: m.Processed,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain MediaFile
func (m *MediaFileModel) FromDomain(f *migration.MediaFile) {
	m.ID = f.ID
	m.RunID = f.RunID
	m.EntityID = f.EntityID
	m.URI = f.URI
	m.FileSize = f.FileSize
	m.Processed = f.Processed
	m.CreatedAt = f.CreatedAt
	m.UpdatedAt = f.UpdatedAt
}

// marshalOr serializes a value to JSON, falling back to a literal on error
func marshalOr(value any, fallback string) string {
	if value == nil {
		return fallback
	}
	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return fallback
	}
	return string(jsonBytes)
}

// marshalNullable serializes a map to JSON, nil maps stay NULL
func marshalNullable(value map[string]any) *string {
	if value == nil {
		return nil
	}
	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	serialized := string(jsonBytes)
	return &serialized
}

// unmarshalPayload parses a JSON payload column
func unmarshalPayload(raw string, id uuid.UUID, column string) map[string]any {
	if raw == "" {
		return nil
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		migrationModelLogger.Warn("failed to parse payload JSON",
			zap.String("id", id.String()),
			zap.String("column", column),
			zap.Error(err))
		return nil
	}
	return payload
}
