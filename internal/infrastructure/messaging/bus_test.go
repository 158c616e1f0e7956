package messaging

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopmigrate/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testHandler struct {
	types    []string
	handled  []shared.DomainEvent
	err      error
	panicMsg string
}

func (h *testHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	if h.panicMsg != "" {
		panic(h.panicMsg)
	}
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string { return h.types }

func testEvent(eventType string) shared.DomainEvent {
	event := shared.NewBaseDomainEvent(eventType, "run", uuid.New())
	return &event
}

func TestInMemoryBus_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers events to subscribed handlers", func(t *testing.T) {
		bus := NewInMemoryBus(zap.NewNop())
		handler := &testHandler{types: []string{"migration.cleanup"}}
		bus.Subscribe(handler)

		require.NoError(t, bus.Publish(ctx, testEvent("migration.cleanup")))

		require.Len(t, handler.handled, 1)
		assert.Equal(t, "migration.cleanup", handler.handled[0].EventType())
	})

	t.Run("handlers of other event types are not called", func(t *testing.T) {
		bus := NewInMemoryBus(zap.NewNop())
		handler := &testHandler{types: []string{"migration.cleanup"}}
		bus.Subscribe(handler)

		require.NoError(t, bus.Publish(ctx, testEvent("migration.other")))

		assert.Empty(t, handler.handled)
	})

	t.Run("a failing handler does not block the others", func(t *testing.T) {
		bus := NewInMemoryBus(zap.NewNop())
		failing := &testHandler{types: []string{"migration.cleanup"}, err: assert.AnError}
		healthy := &testHandler{types: []string{"migration.cleanup"}}
		bus.Subscribe(failing)
		bus.Subscribe(healthy)

		require.NoError(t, bus.Publish(ctx, testEvent("migration.cleanup")))

		assert.Len(t, healthy.handled, 1)
	})
}

func TestInMemoryBus_Dispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("handler error is returned", func(t *testing.T) {
		bus := NewInMemoryBus(zap.NewNop())
		handler := &testHandler{err: assert.AnError}

		err := bus.dispatchToHandler(ctx, handler, testEvent("migration.cleanup"))

		require.ErrorIs(t, err, assert.AnError)
	})

	t.Run("handler panic is recovered and reported as an error", func(t *testing.T) {
		bus := NewInMemoryBus(zap.NewNop())
		handler := &testHandler{panicMsg: "table vanished"}

		err := bus.dispatchToHandler(ctx, handler, testEvent("migration.cleanup"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "handler panicked")
		assert.Contains(t, err.Error(), "migration.cleanup")
		assert.Contains(t, err.Error(), "table vanished")
	})
}
