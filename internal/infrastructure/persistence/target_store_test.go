package persistence

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopmigrate/backend/internal/domain/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGormTargetLookup_CurrencyIDByISO tests currency resolution
func TestGormTargetLookup_CurrencyIDByISO(t *testing.T) {
	t.Run("resolves a known currency", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		lookup := NewGormTargetLookup(db.DB)

		currencyID := uuid.New()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "target_currency" WHERE iso_code = $1`)).
			WithArgs("EUR", 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "iso_code"}).AddRow(currencyID, "EUR"))

		id, err := lookup.CurrencyIDByISO(context.Background(), "EUR")

		require.NoError(t, err)
		require.NotNil(t, id)
		assert.Equal(t, currencyID, *id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown currency resolves to nil without error", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		lookup := NewGormTargetLookup(db.DB)

		mock.ExpectQuery(`SELECT \* FROM "target_currency"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "iso_code"}))

		id, err := lookup.CurrencyIDByISO(context.Background(), "XXX")

		require.NoError(t, err)
		assert.Nil(t, id)
	})
}

// TestGormTargetLookup_CountryIDByISO tests country resolution by ISO codes
func TestGormTargetLookup_CountryIDByISO(t *testing.T) {
	t.Run("matches on either iso code when both are given", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		lookup := NewGormTargetLookup(db.DB)

		countryID := uuid.New()
		mock.ExpectQuery(regexp.QuoteMeta(`iso2 = $1 OR iso3 = $2`)).
			WithArgs("DE", "DEU", 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "iso2", "iso3"}).AddRow(countryID, "DE", "DEU"))

		id, err := lookup.CountryIDByISO(context.Background(), "DE", "DEU")

		require.NoError(t, err)
		require.NotNil(t, id)
		assert.Equal(t, countryID, *id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("without iso codes no query is issued", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		lookup := NewGormTargetLookup(db.DB)

		id, err := lookup.CountryIDByISO(context.Background(), "", "")

		require.NoError(t, err)
		assert.Nil(t, id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// TestGormTargetLookup_DefaultLanguage tests the default language lookup
func TestGormTargetLookup_DefaultLanguage(t *testing.T) {
	t.Run("returns locale and id of the default language", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		lookup := NewGormTargetLookup(db.DB)

		languageID := uuid.New()
		mock.ExpectQuery(regexp.QuoteMeta(`is_default = $1`)).
			WithArgs(true, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "locale", "is_default"}).AddRow(languageID, "de-DE", true))

		locale, id, err := lookup.DefaultLanguage(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "de-DE", locale)
		assert.Equal(t, languageID, id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing default language is an error", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		lookup := NewGormTargetLookup(db.DB)

		mock.ExpectQuery(`SELECT \* FROM "target_language"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, _, err := lookup.DefaultLanguage(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "no default language")
	})
}

// TestGormTargetLookup_Choices tests premapping choice enumeration
func TestGormTargetLookup_Choices(t *testing.T) {
	t.Run("returns labeled choices ordered by label", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		lookup := NewGormTargetLookup(db.DB)

		openID := uuid.New()
		shippedID := uuid.New()
		mock.ExpectQuery(regexp.QuoteMeta(`mapping_name = $1`)).
			WithArgs(migration.MappingOrderState).
			WillReturnRows(sqlmock.NewRows([]string{"id", "mapping_name", "label", "is_default"}).
				AddRow(openID, migration.MappingOrderState, "Open", false).
				AddRow(shippedID, migration.MappingOrderState, "Shipped", false))

		choices, err := lookup.Choices(context.Background(), migration.MappingOrderState)

		require.NoError(t, err)
		require.Len(t, choices, 2)
		assert.Equal(t, openID.String(), choices[0].UUID)
		assert.Equal(t, "Open", choices[0].Label)
		assert.Equal(t, "Shipped", choices[1].Label)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// TestGormTargetLookup_DefaultAvailabilityRuleID tests the rule fallback
func TestGormTargetLookup_DefaultAvailabilityRuleID(t *testing.T) {
	t.Run("returns the default rule when defined", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		lookup := NewGormTargetLookup(db.DB)

		ruleID := uuid.New()
		mock.ExpectQuery(regexp.QuoteMeta(`mapping_name = $1 AND is_default = $2`)).
			WithArgs(migration.MappingShippingAvailabilityRule, true, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "mapping_name", "label", "is_default"}).
				AddRow(ruleID, migration.MappingShippingAvailabilityRule, "Default rule", true))

		id, err := lookup.DefaultAvailabilityRuleID(context.Background())

		require.NoError(t, err)
		require.NotNil(t, id)
		assert.Equal(t, ruleID, *id)
	})

	t.Run("nil when the target defines none", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		lookup := NewGormTargetLookup(db.DB)

		mock.ExpectQuery(`SELECT \* FROM "target_choice"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		id, err := lookup.DefaultAvailabilityRuleID(context.Background())

		require.NoError(t, err)
		assert.Nil(t, id)
	})
}

// TestGormTargetWriter tests the chunk writer against the target store
func TestGormTargetWriter(t *testing.T) {
	t.Run("supports only its configured entity types", func(t *testing.T) {
		db, _, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		writer := NewGormTargetWriter(db.DB, migration.EntityCustomer, migration.EntityOrder)

		assert.True(t, writer.Supports(migration.EntityCustomer))
		assert.True(t, writer.Supports(migration.EntityOrder))
		assert.False(t, writer.Supports(migration.EntityProduct))
	})

	t.Run("upserts the chunk keyed by id", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		writer := NewGormTargetWriter(db.DB, migration.EntityCustomer)

		payloads := []map[string]any{
			{"id": uuid.New().String(), "email": "max@example.com"},
			{"id": uuid.New().String(), "email": "erika@example.com"},
		}

		mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT ("id") DO UPDATE SET "payload"="excluded"."payload","updated_at"="excluded"."updated_at"`)).
			WillReturnResult(sqlmock.NewResult(0, 2))

		err := writer.Write(context.Background(), migration.EntityCustomer, payloads)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty chunk issues no statements", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		writer := NewGormTargetWriter(db.DB, migration.EntityCustomer)

		err := writer.Write(context.Background(), migration.EntityCustomer, nil)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid identifiers become structured violations", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		writer := NewGormTargetWriter(db.DB, migration.EntityCustomer)

		payloads := []map[string]any{
			{"id": uuid.New().String()},
			{"email": "no-id@example.com"},
			{"id": "not-a-uuid"},
		}

		err := writer.Write(context.Background(), migration.EntityCustomer, payloads)

		var violationErr *migration.WriteViolationError
		require.True(t, errors.As(err, &violationErr))
		assert.Equal(t, migration.EntityCustomer, violationErr.EntityType)
		require.Len(t, violationErr.Violations, 2)
		assert.Equal(t, 1, violationErr.Violations[0].Index)
		assert.Contains(t, violationErr.Violations[0].Message, "no id")
		assert.Equal(t, 2, violationErr.Violations[1].Index)
		assert.Contains(t, violationErr.Violations[1].Message, "not a valid identifier")
		// The chunk is not written while violations are present
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
