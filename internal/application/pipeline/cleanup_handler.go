package pipeline

import (
	"context"
	"fmt"

	"github.com/shopmigrate/backend/internal/domain/migration"
	"github.com/shopmigrate/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CleanupHandler processes cascade messages: it deletes all rows of the
// named table, then dispatches the message for the next table in the fixed
// order. No single long transaction spans the cascade.
type CleanupHandler struct {
	cleanup migration.CleanupRepository
	bus     shared.EventPublisher
	logger  *zap.Logger
}

func NewCleanupHandler(cleanup migration.CleanupRepository, bus shared.EventPublisher, logger *zap.Logger) *CleanupHandler {
	return &CleanupHandler{
		cleanup: cleanup,
		bus:     bus,
		logger:  logger,
	}
}

// EventTypes implements shared.EventHandler
func (h *CleanupHandler) EventTypes() []string {
	return []string{migration.CleanupMessageType}
}

// Handle implements shared.EventHandler
func (h *CleanupHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	message, ok := event.(*migration.CleanupMessage)
	if !ok {
		return fmt.Errorf("unexpected message type %T", event)
	}

	if err := h.cleanup.DeleteTable(ctx, message.TableName); err != nil {
		return fmt.Errorf("failed to clean up %s: %w", message.TableName, err)
	}
	h.logger.Info("table cleaned up", zap.String("table", message.TableName))

	next, ok := migration.NextCleanupTable(message.TableName)
	if !ok {
		return nil
	}
	return h.bus.Publish(ctx, migration.NewCleanupMessage(next))
}

// RequestCleanup starts the cascade at its first table
func (h *CleanupHandler) RequestCleanup(ctx context.Context) error {
	return h.bus.Publish(ctx, migration.NewCleanupMessage(migration.CleanupOrder[0]))
}

var _ shared.EventHandler = (*CleanupHandler)(nil)
