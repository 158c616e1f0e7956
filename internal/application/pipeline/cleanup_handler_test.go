package pipeline

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopmigrate/backend/internal/domain/migration"
	"github.com/shopmigrate/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCleanupHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes the table and dispatches the next", func(t *testing.T) {
		cleanup := &memCleanupRepo{}
		bus := &recordingBus{}
		handler := NewCleanupHandler(cleanup, bus, zap.NewNop())

		err := handler.Handle(ctx, migration.NewCleanupMessage(migration.TableMapping))

		require.NoError(t, err)
		assert.Equal(t, []string{migration.TableMapping}, cleanup.deleted)
		require.Len(t, bus.events, 1)
		next, ok := bus.events[0].(*migration.CleanupMessage)
		require.True(t, ok)
		assert.Equal(t, migration.TableLogging, next.TableName)
	})

	t.Run("last table ends the cascade", func(t *testing.T) {
		cleanup := &memCleanupRepo{}
		bus := &recordingBus{}
		handler := NewCleanupHandler(cleanup, bus, zap.NewNop())

		err := handler.Handle(ctx, migration.NewCleanupMessage(migration.TableConnection))

		require.NoError(t, err)
		assert.Equal(t, []string{migration.TableConnection}, cleanup.deleted)
		assert.Empty(t, bus.events)
	})

	t.Run("full cascade visits every table in order", func(t *testing.T) {
		cleanup := &memCleanupRepo{}
		bus := &recordingBus{}
		handler := NewCleanupHandler(cleanup, bus, zap.NewNop())

		// Drive the cascade by hand, the way a dispatching bus would
		require.NoError(t, handler.RequestCleanup(ctx))
		for len(bus.events) > 0 {
			event := bus.events[0]
			bus.events = bus.events[1:]
			require.NoError(t, handler.Handle(ctx, event))
		}

		assert.Equal(t, migration.CleanupOrder, cleanup.deleted)
	})

	t.Run("delete failure stops the cascade", func(t *testing.T) {
		cleanup := &memCleanupRepo{deleteErr: assert.AnError}
		bus := &recordingBus{}
		handler := NewCleanupHandler(cleanup, bus, zap.NewNop())

		err := handler.Handle(ctx, migration.NewCleanupMessage(migration.TableData))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to clean up migration_data")
		assert.Empty(t, bus.events)
	})

	t.Run("foreign event types are rejected", func(t *testing.T) {
		handler := NewCleanupHandler(&memCleanupRepo{}, &recordingBus{}, zap.NewNop())
		foreign := shared.NewBaseDomainEvent("something.else", "migration", uuid.Nil)

		err := handler.Handle(ctx, &foreign)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected message type")
	})

	t.Run("handler subscribes to cleanup messages only", func(t *testing.T) {
		handler := NewCleanupHandler(&memCleanupRepo{}, &recordingBus{}, zap.NewNop())

		assert.Equal(t, []string{migration.CleanupMessageType}, handler.EventTypes())
	})
}

func TestCleanupHandler_RequestCleanup(t *testing.T) {
	bus := &recordingBus{}
	handler := NewCleanupHandler(&memCleanupRepo{}, bus, zap.NewNop())

	require.NoError(t, handler.RequestCleanup(context.Background()))

	require.Len(t, bus.events, 1)
	message, ok := bus.events[0].(*migration.CleanupMessage)
	require.True(t, ok)
	assert.Equal(t, migration.TableMapping, message.TableName)
}
