package migration

import "github.com/google/uuid"

// Canonical mapping names for choice entities resolved through premapping.
// They are decoupled from the raw source entity names on purpose: converters
// and premapping readers meet on these keys.
const (
	MappingOrderState               = "order_state"
	MappingTransactionState         = "transaction_state"
	MappingPaymentMethod            = "payment_method"
	MappingSalutation               = "salutation"
	MappingShippingAvailabilityRule = "shipping_availability_rule"
	MappingDeliveryTime             = "delivery_time"
)

// DefaultSalesChannelID is the well-known identifier of the target system's
// storefront sales channel, used when a source subshop has no mapping.
var DefaultSalesChannelID = uuid.MustParse("2fbb5fe2-e29a-4d70-aa58-54ce7ce3e20b")

// MigrationContext carries the per-call scope of one pipeline step: which
// run, which connection and which entity type, plus the page window.
type MigrationContext struct {
	RunID      uuid.UUID
	Connection *Connection
	EntityType string
	Offset     int
	Limit      int
}

// NewMigrationContext builds the context for one page of one entity type
func NewMigrationContext(runID uuid.UUID, connection *Connection, entityType string, offset, limit int) *MigrationContext {
	return &MigrationContext{
		RunID:      runID,
		Connection: connection,
		EntityType: entityType,
		Offset:     offset,
		Limit:      limit,
	}
}

// ProfileName returns the source profile of the connection, or empty
func (m *MigrationContext) ProfileName() string {
	if m.Connection == nil {
		return ""
	}
	return m.Connection.ProfileName
}

// ConnectionID returns the connection identifier, or uuid.Nil
func (m *MigrationContext) ConnectionID() uuid.UUID {
	if m.Connection == nil {
		return uuid.Nil
	}
	return m.Connection.ID
}
