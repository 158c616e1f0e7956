package converter

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopmigrate/backend/internal/domain/migration"
	"github.com/shopmigrate/backend/internal/domain/shared"
)

// ConvertResult carries the outcome of converting one raw record. A record
// is either fully accepted (Converted non-nil, MappingID set) or fully
// rejected (Converted nil, the original payload preserved in Unmapped).
type ConvertResult struct {
	Converted map[string]any
	Unmapped  map[string]any
	MappingID *uuid.UUID
}

// rejected builds a rejection result preserving the raw payload
func rejected(raw map[string]any) *ConvertResult {
	return &ConvertResult{Unmapped: raw}
}

// accepted builds a success result. Unmapped holds only genuinely leftover
// fields and becomes nil when the source was fully consumed.
func accepted(converted, leftover map[string]any, mappingID uuid.UUID) *ConvertResult {
	if len(leftover) == 0 {
		leftover = nil
	}
	return &ConvertResult{
		Converted: converted,
		Unmapped:  leftover,
		MappingID: &mappingID,
	}
}

// Converter transforms one raw source record into a target-shaped record
type Converter interface {
	// Supports reports whether this converter handles the entity type of the
	// given source profile
	Supports(entityType, profileName string) bool
	Convert(ctx context.Context, raw map[string]any, migrationCtx *migration.MigrationContext) (*ConvertResult, error)
	// WriteMapping flushes identifiers minted during conversion
	WriteMapping(ctx context.Context) error
}

// Registry resolves converters by capability scan
type Registry struct {
	converters []Converter
}

// NewRegistry creates a converter registry
func NewRegistry(converters ...Converter) *Registry {
	return &Registry{converters: converters}
}

// Register adds a converter
func (r *Registry) Register(c Converter) {
	r.converters = append(r.converters, c)
}

// Resolve returns the first converter supporting the entity type and profile
func (r *Registry) Resolve(entityType, profileName string) (Converter, error) {
	for _, c := range r.converters {
		if c.Supports(entityType, profileName) {
			return c, nil
		}
	}
	return nil, shared.NewDomainError("CONVERTER_NOT_FOUND",
		"No converter registered for entity type "+entityType)
}
