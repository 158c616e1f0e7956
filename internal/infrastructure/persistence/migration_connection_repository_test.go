package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopmigrate/backend/internal/domain/migration"
	"github.com/shopmigrate/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGormConnectionRepository_FindByID tests connection lookup
func TestGormConnectionRepository_FindByID(t *testing.T) {
	t.Run("hydrates credentials and premapping", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewGormConnectionRepository(db.DB)

		connectionID := uuid.New()
		destination := uuid.New().String()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "migration_connection" WHERE id = $1`)).
			WithArgs(connectionID, 1).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "name", "profile_name", "gateway_name", "credentials", "premapping",
				"created_at", "updated_at",
			}).AddRow(connectionID, "shop", "legacy", "local",
				`{"endpoint":"https://legacy.example.com"}`,
				`[{"entity":"salutation","mapping":[{"sourceId":"mr","destinationUuid":"`+destination+`"}],"choices":[]}]`,
				time.Now(), time.Now()))

		connection, err := repo.FindByID(context.Background(), connectionID)

		require.NoError(t, err)
		assert.Equal(t, "shop", connection.Name)
		assert.Equal(t, "https://legacy.example.com", connection.Credentials["endpoint"])
		require.Len(t, connection.Premapping, 1)
		assert.Equal(t, migration.MappingSalutation, connection.Premapping[0].Entity)
		require.Len(t, connection.Premapping[0].Mapping, 1)
		assert.Equal(t, destination, connection.Premapping[0].Mapping[0].DestinationUUID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing connection maps to ErrNotFound", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewGormConnectionRepository(db.DB)

		mock.ExpectQuery(`SELECT \* FROM "migration_connection"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.FindByID(context.Background(), uuid.New())

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

// TestGormConnectionRepository_UpdatePremapping tests premapping persistence
func TestGormConnectionRepository_UpdatePremapping(t *testing.T) {
	t.Run("replaces the stored premapping", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewGormConnectionRepository(db.DB)

		mock.ExpectExec(`UPDATE "migration_connection" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdatePremapping(context.Background(), uuid.New(), []migration.PremappingStruct{
			{Entity: migration.MappingSalutation},
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown connection maps to ErrNotFound", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewGormConnectionRepository(db.DB)

		mock.ExpectExec(`UPDATE "migration_connection" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdatePremapping(context.Background(), uuid.New(), nil)

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
