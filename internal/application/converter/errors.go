package converter

import "fmt"

// AssociationRequiredMissingError signals that a hard dependency of a record
// could not be resolved, e.g. the owning customer of an order. It is distinct
// from ordinary validation failures: the calling loop catches it per record,
// logs it and skips the record without aborting the batch.
type AssociationRequiredMissingError struct {
	EntityType        string
	MissingEntityType string
	SourceID          string
}

// Error implements the error interface
func (e *AssociationRequiredMissingError) Error() string {
	return fmt.Sprintf("associated entity %q required for %q (source id %s) is missing",
		e.MissingEntityType, e.EntityType, e.SourceID)
}

// NewAssociationRequiredMissingError creates the typed hard-dependency error
func NewAssociationRequiredMissingError(entityType, missingEntityType, sourceID string) *AssociationRequiredMissingError {
	return &AssociationRequiredMissingError{
		EntityType:        entityType,
		MissingEntityType: missingEntityType,
		SourceID:          sourceID,
	}
}
