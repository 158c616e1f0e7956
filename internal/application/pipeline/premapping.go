package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopmigrate/backend/internal/domain/migration"
	"go.uber.org/zap"
)

// PremappingReader builds the operator-facing choice table for one mapping
// name. Readers enumerate distinct source values needing a manual destination
// choice and the valid destination options of the target system.
type PremappingReader interface {
	MappingName() string
	GetPremapping(ctx context.Context, migrationCtx *migration.MigrationContext) (*migration.PremappingStruct, error)
}

// choiceReader reads distinct choice rows of one source entity through the
// gateway and pairs them with target options. The concrete readers only
// differ in mapping name, source entity and label field.
type choiceReader struct {
	mappingName  string
	sourceEntity string
	idField      string
	labelField   string
	gateways     *migration.GatewayRegistry
	target       migration.TargetLookup
	mapping      migration.MappingService
}

func (r *choiceReader) MappingName() string {
	return r.mappingName
}

func (r *choiceReader) GetPremapping(ctx context.Context, migrationCtx *migration.MigrationContext) (*migration.PremappingStruct, error) {
	gateway, err := r.gateways.Resolve(migrationCtx.Connection)
	if err != nil {
		return nil, err
	}
	readCtx := migration.NewMigrationContext(migrationCtx.RunID, migrationCtx.Connection, r.sourceEntity, 0, premappingReadLimit)
	rows, err := gateway.Read(ctx, readCtx)
	if err != nil {
		return nil, migration.NewGatewayReadError(migrationCtx.Connection.GatewayName, r.sourceEntity, err)
	}

	entries := make([]migration.PremappingEntityEntry, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		sourceID := stringValue(row, r.idField)
		if sourceID == "" || seen[sourceID] {
			continue
		}
		seen[sourceID] = true
		description := stringValue(row, r.labelField)
		if description == "" {
			description = sourceID
		}
		entries = append(entries, migration.PremappingEntityEntry{
			SourceID:    sourceID,
			Description: description,
		})
	}

	choices, err := r.target.Choices(ctx, r.mappingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s choices: %w", r.mappingName, err)
	}
	premapping := &migration.PremappingStruct{
		Entity:  r.mappingName,
		Mapping: entries,
		Choices: choices,
	}
	if err := r.prefill(ctx, migrationCtx.ConnectionID(), premapping); err != nil {
		return nil, err
	}
	return premapping, nil
}

// prefill fills destination identifiers already known from earlier runs so
// the operator only decides on new source values
func (r *choiceReader) prefill(ctx context.Context, connectionID uuid.UUID, premapping *migration.PremappingStruct) error {
	for i := range premapping.Mapping {
		entry := &premapping.Mapping[i]
		if entry.DestinationUUID != "" {
			continue
		}
		existing, err := r.mapping.GetUUID(ctx, connectionID, r.mappingName, entry.SourceID)
		if err != nil {
			return err
		}
		if existing != nil {
			entry.DestinationUUID = existing.String()
		}
	}
	return nil
}

// premappingReadLimit caps the distinct choice rows a reader pulls from the
// source. Choice entities are small reference tables.
const premappingReadLimit = 1000

// Source entities the choice readers pull from
const (
	sourceEntityOrderState       = "order_state"
	sourceEntityTransactionState = "transaction_state"
	sourceEntityPaymentMethod    = "payment"
	sourceEntitySalutation       = "salutation"
)

// Source identifier for the single-choice delivery time reader; the
// availability rule counterpart lives next to the mapping service that
// resolves it
const defaultDeliveryTimeSourceID = "default_delivery_time"

func NewOrderStateReader(gateways *migration.GatewayRegistry, target migration.TargetLookup, mapping migration.MappingService) PremappingReader {
	return &choiceReader{
		mappingName:  migration.MappingOrderState,
		sourceEntity: sourceEntityOrderState,
		idField:      "id",
		labelField:   "description",
		gateways:     gateways,
		target:       target,
		mapping:      mapping,
	}
}

func NewTransactionStateReader(gateways *migration.GatewayRegistry, target migration.TargetLookup, mapping migration.MappingService) PremappingReader {
	return &choiceReader{
		mappingName:  migration.MappingTransactionState,
		sourceEntity: sourceEntityTransactionState,
		idField:      "id",
		labelField:   "description",
		gateways:     gateways,
		target:       target,
		mapping:      mapping,
	}
}

func NewPaymentMethodReader(gateways *migration.GatewayRegistry, target migration.TargetLookup, mapping migration.MappingService) PremappingReader {
	return &choiceReader{
		mappingName:  migration.MappingPaymentMethod,
		sourceEntity: sourceEntityPaymentMethod,
		idField:      "name",
		labelField:   "description",
		gateways:     gateways,
		target:       target,
		mapping:      mapping,
	}
}

func NewSalutationReader(gateways *migration.GatewayRegistry, target migration.TargetLookup, mapping migration.MappingService) PremappingReader {
	return &choiceReader{
		mappingName:  migration.MappingSalutation,
		sourceEntity: sourceEntitySalutation,
		idField:      "salutation",
		labelField:   "salutation",
		gateways:     gateways,
		target:       target,
		mapping:      mapping,
	}
}

// defaultChoiceReader presents exactly one source entry, the connection-wide
// default, against the target's option list. Used for reference entities the
// source system does not model at all.
type defaultChoiceReader struct {
	mappingName string
	sourceID    string
	description string
	target      migration.TargetLookup
	mapping     migration.MappingService
}

func (r *defaultChoiceReader) MappingName() string {
	return r.mappingName
}

func (r *defaultChoiceReader) GetPremapping(ctx context.Context, migrationCtx *migration.MigrationContext) (*migration.PremappingStruct, error) {
	choices, err := r.target.Choices(ctx, r.mappingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s choices: %w", r.mappingName, err)
	}
	entry := migration.PremappingEntityEntry{
		SourceID:    r.sourceID,
		Description: r.description,
	}
	existing, err := r.mapping.GetUUID(ctx, migrationCtx.ConnectionID(), r.mappingName, r.sourceID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		entry.DestinationUUID = existing.String()
	}
	return &migration.PremappingStruct{
		Entity:  r.mappingName,
		Mapping: []migration.PremappingEntityEntry{entry},
		Choices: choices,
	}, nil
}

func NewShippingAvailabilityRuleReader(target migration.TargetLookup, mapping migration.MappingService) PremappingReader {
	return &defaultChoiceReader{
		mappingName: migration.MappingShippingAvailabilityRule,
		sourceID:    defaultAvailabilityRuleSourceID,
		description: "Default availability rule for migrated shipping methods",
		target:      target,
		mapping:     mapping,
	}
}

func NewDeliveryTimeReader(target migration.TargetLookup, mapping migration.MappingService) PremappingReader {
	return &defaultChoiceReader{
		mappingName: migration.MappingDeliveryTime,
		sourceID:    defaultDeliveryTimeSourceID,
		description: "Default delivery time for migrated shipping methods",
		target:      target,
		mapping:     mapping,
	}
}

// PremappingService produces the choice tables for a connection and persists
// the operator's decisions. Writing a premapping seeds mapping entries so
// converters resolve the choices through the regular mapping lookup.
type PremappingService struct {
	readers     []PremappingReader
	connections migration.ConnectionRepository
	mapping     migration.MappingService
	logger      *zap.Logger
}

func NewPremappingService(readers []PremappingReader, connections migration.ConnectionRepository, mapping migration.MappingService, logger *zap.Logger) *PremappingService {
	return &PremappingService{
		readers:     readers,
		connections: connections,
		mapping:     mapping,
		logger:      logger,
	}
}

// RequiredMappingNames lists the mapping names a run of this connection needs
// resolved before it may start
func (s *PremappingService) RequiredMappingNames() []string {
	names := make([]string, 0, len(s.readers))
	for _, reader := range s.readers {
		names = append(names, reader.MappingName())
	}
	return names
}

// GetPremapping assembles the choice tables of all readers, merging in the
// choices already persisted on the connection
func (s *PremappingService) GetPremapping(ctx context.Context, migrationCtx *migration.MigrationContext) ([]migration.PremappingStruct, error) {
	result := make([]migration.PremappingStruct, 0, len(s.readers))
	for _, reader := range s.readers {
		premapping, err := reader.GetPremapping(ctx, migrationCtx)
		if err != nil {
			return nil, err
		}
		mergePersistedChoices(premapping, migrationCtx.Connection.PremappingFor(reader.MappingName()))
		result = append(result, *premapping)
	}
	return result, nil
}

// mergePersistedChoices carries earlier operator decisions into a freshly
// read choice table
func mergePersistedChoices(premapping *migration.PremappingStruct, persisted *migration.PremappingStruct) {
	if persisted == nil {
		return
	}
	bySource := make(map[string]string, len(persisted.Mapping))
	for _, entry := range persisted.Mapping {
		if entry.DestinationUUID != "" {
			bySource[entry.SourceID] = entry.DestinationUUID
		}
	}
	for i := range premapping.Mapping {
		if premapping.Mapping[i].DestinationUUID == "" {
			premapping.Mapping[i].DestinationUUID = bySource[premapping.Mapping[i].SourceID]
		}
	}
}

// WritePremapping persists the operator's choices on the connection and
// seeds the corresponding mapping entries. Distinct source values pointing at
// the same destination choice end up with equal identifiers.
func (s *PremappingService) WritePremapping(ctx context.Context, connection *migration.Connection, premapping []migration.PremappingStruct) error {
	for _, table := range premapping {
		for _, entry := range table.Mapping {
			if entry.DestinationUUID == "" {
				continue
			}
			destinationID, err := uuid.Parse(entry.DestinationUUID)
			if err != nil {
				return fmt.Errorf("invalid destination for %s/%s: %w", table.Entity, entry.SourceID, err)
			}
			if _, err := s.mapping.GetOrCreateMapping(ctx, connection.ID, table.Entity, entry.SourceID, nil, &destinationID); err != nil {
				return err
			}
		}
	}
	if err := s.mapping.WriteMapping(ctx); err != nil {
		return err
	}

	connection.SetPremapping(premapping)
	if err := s.connections.UpdatePremapping(ctx, connection.ID, premapping); err != nil {
		return fmt.Errorf("failed to persist premapping: %w", err)
	}
	s.logger.Info("premapping written",
		zap.String("connection_id", connection.ID.String()),
		zap.Int("tables", len(premapping)))
	return nil
}
