package migration

import (
	"context"
	"fmt"
)

// Writer persists one chunk of converted payloads into the target system as
// an upsert. Implementations live in the infrastructure layer.
type Writer interface {
	Supports(entityType string) bool
	// Write upserts all payloads of one chunk. A constraint failure is
	// reported as *WriteViolationError enumerating the offending rows.
	Write(ctx context.Context, entityType string, payloads []map[string]any) error
}

// WriteViolation identifies one rejected row of a chunk by its position in
// the submitted payload slice
type WriteViolation struct {
	Index   int
	Message string
}

// WriteViolationError is a structured write failure. The writer loop removes
// exactly the enumerated rows and retries the remainder.
type WriteViolationError struct {
	EntityType string
	Violations []WriteViolation
}

func (e *WriteViolationError) Error() string {
	return fmt.Sprintf("write of %s rejected %d rows", e.EntityType, len(e.Violations))
}

// WriterRegistry resolves the writer responsible for an entity type
type WriterRegistry struct {
	writers []Writer
}

func NewWriterRegistry(writers ...Writer) *WriterRegistry {
	return &WriterRegistry{writers: writers}
}

func (r *WriterRegistry) Register(writer Writer) {
	r.writers = append(r.writers, writer)
}

// Resolve returns the first writer supporting the entity type, or nil
func (r *WriterRegistry) Resolve(entityType string) Writer {
	for _, writer := range r.writers {
		if writer.Supports(entityType) {
			return writer
		}
	}
	return nil
}
