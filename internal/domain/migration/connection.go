package migration

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopmigrate/backend/internal/domain/shared"
)

// Connection is a configured link to one source system installation.
// It is long-lived: created once and reused by many runs. Operator premapping
// choices are persisted on the connection so re-runs resolve the same way.
type Connection struct {
	ID          uuid.UUID
	Name        string
	ProfileName string
	GatewayName string
	// Credentials holds gateway-specific settings (endpoint, api key, shop id)
	Credentials map[string]string
	// Premapping holds the operator-resolved choice tables, one per mapping name
	Premapping []PremappingStruct
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewConnection creates a new source-system connection
func NewConnection(name, profileName, gatewayName string, credentials map[string]string) (*Connection, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Connection name cannot be empty")
	}
	if profileName == "" {
		return nil, shared.NewDomainError("INVALID_PROFILE", "Profile name cannot be empty")
	}
	if gatewayName == "" {
		return nil, shared.NewDomainError("INVALID_GATEWAY", "Gateway name cannot be empty")
	}

	now := time.Now()
	return &Connection{
		ID:          uuid.New(),
		Name:        name,
		ProfileName: profileName,
		GatewayName: gatewayName,
		Credentials: credentials,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// SetPremapping replaces the persisted premapping choice tables
func (c *Connection) SetPremapping(premapping []PremappingStruct) {
	c.Premapping = premapping
	c.UpdatedAt = time.Now()
}

// PremappingFor returns the persisted choice table for a mapping name, or nil
func (c *Connection) PremappingFor(mappingName string) *PremappingStruct {
	for i := range c.Premapping {
		if c.Premapping[i].Entity == mappingName {
			return &c.Premapping[i]
		}
	}
	return nil
}

// PremappingResolved reports whether every persisted premapping entry carries
// a destination choice. A connection without any premapping is unresolved.
func (c *Connection) PremappingResolved(requiredMappingNames []string) bool {
	for _, name := range requiredMappingNames {
		premapping := c.PremappingFor(name)
		if premapping == nil {
			return false
		}
		for _, entry := range premapping.Mapping {
			if entry.DestinationUUID == "" {
				return false
			}
		}
	}
	return true
}
