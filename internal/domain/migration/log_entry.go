package migration

import (
	"time"

	"github.com/google/uuid"
)

// LogLevel classifies a diagnostic log entry
type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// Log codes emitted during conversion and writing
const (
	LogCodeEmptyNecessaryDataFields  = "EMPTY_NECESSARY_DATA_FIELDS"
	LogCodeUnknownOrderState         = "UNKNOWN_ORDER_STATE"
	LogCodeUnknownTransactionState   = "UNKNOWN_TRANSACTION_STATE"
	LogCodeUnknownPaymentMethod      = "UNKNOWN_PAYMENT_METHOD"
	LogCodeUnknownCustomerSalutation = "UNKNOWN_CUSTOMER_SALUTATION"
	LogCodeEmptyLineItemIdentifier   = "EMPTY_LINE_ITEM_IDENTIFIER"
	LogCodeWriterNotFound            = "WRITER_NOT_FOUND"
	LogCodeRunException              = "RUN_EXCEPTION"
)

// LogEntry is one structured diagnostic emitted during a run. Entries are
// append-only and never mutated once flushed.
type LogEntry struct {
	ID          uuid.UUID
	RunID       uuid.UUID
	Level       LogLevel
	Code        string
	Title       string
	Description string
	Parameters  map[string]any
	Count       int
	Entity      string
	SourceID    string
	CreatedAt   time.Time
}

// NewLogEntry creates a log entry. A count below one is normalized to one.
func NewLogEntry(runID uuid.UUID, level LogLevel, code, title, description string, parameters map[string]any, count int) *LogEntry {
	if count < 1 {
		count = 1
	}
	entry := &LogEntry{
		ID:          uuid.New(),
		RunID:       runID,
		Level:       level,
		Code:        code,
		Title:       title,
		Description: description,
		Parameters:  parameters,
		Count:       count,
		CreatedAt:   time.Now(),
	}
	if parameters != nil {
		if entity, ok := parameters["entity"].(string); ok {
			entry.Entity = entity
		}
		if sourceID, ok := parameters["id"].(string); ok {
			entry.SourceID = sourceID
		}
	}
	return entry
}
