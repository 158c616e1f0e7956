package migration

import (
	"context"
	"fmt"

	"github.com/shopmigrate/backend/internal/domain/shared"
)

// Gateway reads raw paged data from a source system. Implementations live in
// the infrastructure layer; the pipeline only depends on this contract.
type Gateway interface {
	// Name identifies the gateway, matched against Connection.GatewayName
	Name() string
	Supports(connection *Connection) bool
	// Read returns one page of raw rows for the context's entity type
	Read(ctx context.Context, migrationCtx *MigrationContext) ([]map[string]any, error)
	// ReadTotal returns the total row count for an entity type
	ReadTotal(ctx context.Context, connection *Connection, entityType string) (int64, error)
}

// GatewayReadError marks an unrecoverable source read failure. The run
// controller aborts the run when it sees one.
type GatewayReadError struct {
	GatewayName string
	EntityType  string
	Err         error
}

func (e *GatewayReadError) Error() string {
	return fmt.Sprintf("gateway %s failed reading %s: %v", e.GatewayName, e.EntityType, e.Err)
}

func (e *GatewayReadError) Unwrap() error {
	return e.Err
}

// NewGatewayReadError wraps a source read failure
func NewGatewayReadError(gatewayName, entityType string, err error) *GatewayReadError {
	return &GatewayReadError{
		GatewayName: gatewayName,
		EntityType:  entityType,
		Err:         err,
	}
}

// GatewayRegistry resolves the gateway responsible for a connection
type GatewayRegistry struct {
	gateways []Gateway
}

func NewGatewayRegistry() *GatewayRegistry {
	return &GatewayRegistry{}
}

func (r *GatewayRegistry) Register(gateway Gateway) {
	r.gateways = append(r.gateways, gateway)
}

func (r *GatewayRegistry) Resolve(connection *Connection) (Gateway, error) {
	for _, gateway := range r.gateways {
		if gateway.Supports(connection) {
			return gateway, nil
		}
	}
	return nil, shared.NewDomainError("GATEWAY_NOT_FOUND",
		fmt.Sprintf("no gateway registered for %s", connection.GatewayName))
}
