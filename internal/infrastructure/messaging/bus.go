package messaging

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/shopmigrate/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryBus implements shared.EventBus with in-process pub/sub. Messages
// are dispatched synchronously; a handler publishing a follow-up message
// (the cleanup cascade does this) runs it before Publish returns.
type InMemoryBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	running  atomic.Bool
	wg       sync.WaitGroup
}

// NewInMemoryBus creates a new in-memory message bus
func NewInMemoryBus(logger *zap.Logger) *InMemoryBus {
	return &InMemoryBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
}

// Publish dispatches messages to all registered handlers synchronously
func (b *InMemoryBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		handlers := b.registry.GetHandlers(event.EventType())

		for _, handler := range handlers {
			if err := b.dispatchToHandler(ctx, handler, event); err != nil {
				// Log error but continue with other handlers
				b.logger.Error("handler failed to process message",
					zap.String("event_type", event.EventType()),
					zap.String("event_id", event.EventID().String()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Subscribe registers a handler for specific event types
func (b *InMemoryBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	// If handler specifies its own event types, use those
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed",
		zap.Strings("event_types", eventTypes),
	)
}

// Unsubscribe removes a handler
func (b *InMemoryBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("handler unsubscribed")
}

// Start starts the message bus
func (b *InMemoryBus) Start(ctx context.Context) error {
	b.running.Store(true)
	b.logger.Info("message bus started")
	return nil
}

// Stop stops the message bus gracefully
func (b *InMemoryBus) Stop(ctx context.Context) error {
	b.running.Store(false)
	b.wg.Wait()
	b.logger.Info("message bus stopped")
	return nil
}

// dispatchToHandler safely dispatches a message to a handler
func (b *InMemoryBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
			)
			err = fmt.Errorf("handler panicked while processing %s: %v", event.EventType(), r)
		}
	}()

	return handler.Handle(ctx, event)
}

// Ensure InMemoryBus implements EventBus
var _ shared.EventBus = (*InMemoryBus)(nil)
