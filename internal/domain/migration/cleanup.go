package migration

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopmigrate/backend/internal/domain/shared"
)

// Run-scoped tables in deletion order. Referencing tables come before the
// tables they reference so no foreign key is violated mid-cascade.
const (
	TableMapping    = "migration_mapping"
	TableLogging    = "migration_logging"
	TableData       = "migration_data"
	TableMediaFile  = "migration_media_file"
	TableRun        = "migration_run"
	TableConnection = "migration_connection"
)

// CleanupOrder is the fixed deletion sequence of the cascade
var CleanupOrder = []string{
	TableMapping,
	TableLogging,
	TableData,
	TableMediaFile,
	TableRun,
	TableConnection,
}

// NextCleanupTable returns the table after the given one in the cascade.
// The last table has no successor.
func NextCleanupTable(table string) (string, bool) {
	for i, name := range CleanupOrder {
		if name == table && i+1 < len(CleanupOrder) {
			return CleanupOrder[i+1], true
		}
	}
	return "", false
}

// CleanupRepository deletes all rows of one run-scoped table
type CleanupRepository interface {
	DeleteTable(ctx context.Context, table string) error
}

// CleanupMessageType identifies cascade messages on the bus
const CleanupMessageType = "migration.cleanup"

// CleanupMessage requests the deletion of one table's rows. Handling it
// dispatches the message for the next table in the cascade.
type CleanupMessage struct {
	shared.BaseDomainEvent
	TableName string `json:"table_name"`
}

// NewCleanupMessage creates a cascade message for one table
func NewCleanupMessage(tableName string) *CleanupMessage {
	return &CleanupMessage{
		BaseDomainEvent: shared.NewBaseDomainEvent(CleanupMessageType, "migration", uuid.Nil),
		TableName:       tableName,
	}
}
