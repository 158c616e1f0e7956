package migration

import (
	"context"

	"github.com/google/uuid"
)

// MappingService resolves (connection, entityType, oldIdentifier) to stable
// target identifiers, creating them on first sight. Created entries are kept
// in memory until WriteMapping flushes them in one batch.
type MappingService interface {
	// GetUUID is a pure lookup; it never creates a mapping
	GetUUID(ctx context.Context, connectionID uuid.UUID, entityType, oldID string) (*uuid.UUID, error)
	// CreateNewUUID mints a stable identifier; repeat calls for the same
	// triple return the same identifier
	CreateNewUUID(ctx context.Context, connectionID uuid.UUID, entityType, oldID string) (uuid.UUID, error)
	// GetOrCreateMapping combines lookup and creation. A non-nil explicitNewID
	// seeds the mapping instead of generating one.
	GetOrCreateMapping(ctx context.Context, connectionID uuid.UUID, entityType, oldID string, additionalData map[string]any, explicitNewID *uuid.UUID) (uuid.UUID, error)
	// WriteMapping flushes all mappings created since the last flush
	WriteMapping(ctx context.Context) error

	// Specialized resolvers layered on the generic mapping, consulting the
	// target system before minting a new identifier
	GetCurrencyUUID(ctx context.Context, connectionID uuid.UUID, isoCode string) (*uuid.UUID, error)
	GetLanguageUUID(ctx context.Context, connectionID uuid.UUID, locale string) (*uuid.UUID, error)
	GetCountryUUID(ctx context.Context, connectionID uuid.UUID, oldID, iso2, iso3 string) (*uuid.UUID, error)

	// Target-system defaults
	GetDefaultLanguage(ctx context.Context) (locale string, languageID uuid.UUID, err error)
	GetDefaultAvailabilityRule(ctx context.Context, connectionID uuid.UUID) (*uuid.UUID, error)
}

// LoggingService buffers structured diagnostics in memory and flushes them as
// one batch at defined checkpoints.
type LoggingService interface {
	AddInfo(runID uuid.UUID, code, title, description string, parameters map[string]any, count int)
	AddWarning(runID uuid.UUID, code, title, description string, parameters map[string]any, count int)
	AddError(runID uuid.UUID, code, title, description string, parameters map[string]any, count int)
	Flush(ctx context.Context) error
}

// MediaFileService stages source media assets referenced during conversion
// for a later download step, buffered and flushed like mappings and logs.
type MediaFileService interface {
	Register(runID, entityID uuid.UUID, uri string, fileSize int64)
	Flush(ctx context.Context) error
}

// TargetLookup reads reference entities of the target system, used by the
// specialized mapping resolvers and premapping readers.
type TargetLookup interface {
	CurrencyIDByISO(ctx context.Context, isoCode string) (*uuid.UUID, error)
	LanguageIDByLocale(ctx context.Context, locale string) (*uuid.UUID, error)
	CountryIDByISO(ctx context.Context, iso2, iso3 string) (*uuid.UUID, error)
	DefaultLanguage(ctx context.Context) (locale string, languageID uuid.UUID, err error)
	DefaultAvailabilityRuleID(ctx context.Context) (*uuid.UUID, error)
	// Choices enumerates valid destination identifiers with labels for a
	// choice entity, e.g. order states or salutations
	Choices(ctx context.Context, mappingName string) ([]PremappingChoice, error)
}
