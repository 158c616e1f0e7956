package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopmigrate/backend/internal/domain/migration"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TargetCurrencyModel is one currency of the target system
type TargetCurrencyModel struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key"`
	ISOCode string    `gorm:"column:iso_code;type:varchar(3);not null;uniqueIndex"`
}

// TableName returns the table name for GORM
func (TargetCurrencyModel) TableName() string {
	return "target_currency"
}

// TargetLanguageModel is one language of the target system
type TargetLanguageModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	Locale    string    `gorm:"type:varchar(10);not null;uniqueIndex"`
	IsDefault bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (TargetLanguageModel) TableName() string {
	return "target_language"
}

// TargetCountryModel is one country of the target system
type TargetCountryModel struct {
	ID   uuid.UUID `gorm:"type:uuid;primary_key"`
	ISO2 string    `gorm:"column:iso2;type:varchar(2);not null;index"`
	ISO3 string    `gorm:"column:iso3;type:varchar(3);not null;index"`
}

// TableName returns the table name for GORM
func (TargetCountryModel) TableName() string {
	return "target_country"
}

// TargetChoiceModel is one valid destination option for a choice entity,
// keyed by the canonical mapping name
type TargetChoiceModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	MappingName string    `gorm:"type:varchar(100);not null;index"`
	Label       string    `gorm:"type:varchar(255);not null"`
	IsDefault   bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (TargetChoiceModel) TableName() string {
	return "target_choice"
}

// GormTargetLookup implements TargetLookup against the target system's
// reference tables
type GormTargetLookup struct {
	db *gorm.DB
}

// NewGormTargetLookup creates a new GormTargetLookup
func NewGormTargetLookup(db *gorm.DB) *GormTargetLookup {
	return &GormTargetLookup{db: db}
}

// CurrencyIDByISO resolves a currency by its ISO code, nil when unknown
func (l *GormTargetLookup) CurrencyIDByISO(ctx context.Context, isoCode string) (*uuid.UUID, error) {
	var model TargetCurrencyModel
	err := l.db.WithContext(ctx).Where("iso_code = ?", isoCode).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &model.ID, nil
}

// LanguageIDByLocale resolves a language by its locale, nil when unknown
func (l *GormTargetLookup) LanguageIDByLocale(ctx context.Context, locale string) (*uuid.UUID, error) {
	var model TargetLanguageModel
	err := l.db.WithContext(ctx).Where("locale = ?", locale).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &model.ID, nil
}

// CountryIDByISO resolves a country by iso2 or iso3, nil when unknown
func (l *GormTargetLookup) CountryIDByISO(ctx context.Context, iso2, iso3 string) (*uuid.UUID, error) {
	var model TargetCountryModel
	query := l.db.WithContext(ctx)
	switch {
	case iso2 != "" && iso3 != "":
		query = query.Where("iso2 = ? OR iso3 = ?", iso2, iso3)
	case iso2 != "":
		query = query.Where("iso2 = ?", iso2)
	case iso3 != "":
		query = query.Where("iso3 = ?", iso3)
	default:
		return nil, nil
	}
	err := query.First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &model.ID, nil
}

// DefaultLanguage returns the target system's default locale and language
func (l *GormTargetLookup) DefaultLanguage(ctx context.Context) (string, uuid.UUID, error) {
	var model TargetLanguageModel
	err := l.db.WithContext(ctx).Where("is_default = ?", true).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", uuid.Nil, fmt.Errorf("target system has no default language")
		}
		return "", uuid.Nil, err
	}
	return model.Locale, model.ID, nil
}

// DefaultAvailabilityRuleID returns the default shipping availability rule,
// nil when the target defines none
func (l *GormTargetLookup) DefaultAvailabilityRuleID(ctx context.Context) (*uuid.UUID, error) {
	var model TargetChoiceModel
	err := l.db.WithContext(ctx).
		Where("mapping_name = ? AND is_default = ?", migration.MappingShippingAvailabilityRule, true).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &model.ID, nil
}

// Choices enumerates the valid destination options for a choice entity
func (l *GormTargetLookup) Choices(ctx context.Context, mappingName string) ([]migration.PremappingChoice, error) {
	var choiceModels []TargetChoiceModel
	err := l.db.WithContext(ctx).
		Where("mapping_name = ?", mappingName).
		Order("label ASC").
		Find(&choiceModels).Error
	if err != nil {
		return nil, err
	}
	choices := make([]migration.PremappingChoice, len(choiceModels))
	for i, model := range choiceModels {
		choices[i] = migration.PremappingChoice{
			UUID:  model.ID.String(),
			Label: model.Label,
		}
	}
	return choices, nil
}

// Ensure GormTargetLookup implements TargetLookup
var _ migration.TargetLookup = (*GormTargetLookup)(nil)

// TargetRecordModel is one upserted record of the target system. The target
// schema itself is out of scope here, records are stored shaped as converted.
type TargetRecordModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	EntityType  string    `gorm:"type:varchar(100);not null;index"`
	PayloadJSON string    `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TargetRecordModel) TableName() string {
	return "target_record"
}

// GormTargetWriter implements the chunk writer against the target store. One
// writer instance serves a fixed set of entity types.
type GormTargetWriter struct {
	db          *gorm.DB
	entityTypes map[string]bool
}

// NewGormTargetWriter creates a writer for the given entity types
func NewGormTargetWriter(db *gorm.DB, entityTypes ...string) *GormTargetWriter {
	supported := make(map[string]bool, len(entityTypes))
	for _, entityType := range entityTypes {
		supported[entityType] = true
	}
	return &GormTargetWriter{db: db, entityTypes: supported}
}

// Supports reports whether this writer handles the entity type
func (w *GormTargetWriter) Supports(entityType string) bool {
	return w.entityTypes[entityType]
}

// Write upserts one chunk. Rows without a valid identifier are reported as
// structured violations without touching the rest of the chunk.
func (w *GormTargetWriter) Write(ctx context.Context, entityType string, payloads []map[string]any) error {
	recordModels := make([]TargetRecordModel, 0, len(payloads))
	var violations []migration.WriteViolation
	now := time.Now()

	for i, payload := range payloads {
		id, err := payloadID(payload)
		if err != nil {
			violations = append(violations, migration.WriteViolation{
				Index:   i,
				Message: err.Error(),
			})
			continue
		}
		serialized, err := json.Marshal(payload)
		if err != nil {
			violations = append(violations, migration.WriteViolation{
				Index:   i,
				Message: fmt.Sprintf("payload not serializable: %v", err),
			})
			continue
		}
		recordModels = append(recordModels, TargetRecordModel{
			ID:          id,
			EntityType:  entityType,
			PayloadJSON: string(serialized),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	if len(violations) > 0 {
		return &migration.WriteViolationError{
			EntityType: entityType,
			Violations: violations,
		}
	}
	if len(recordModels) == 0 {
		return nil
	}
	return w.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(&recordModels).Error
}

// payloadID extracts the record identifier from a converted payload
func payloadID(payload map[string]any) (uuid.UUID, error) {
	raw, ok := payload["id"]
	if !ok {
		return uuid.Nil, fmt.Errorf("payload has no id")
	}
	id, ok := raw.(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("payload id is not a string")
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("payload id %q is not a valid identifier", id)
	}
	return parsed, nil
}

// Ensure GormTargetWriter implements Writer
var _ migration.Writer = (*GormTargetWriter)(nil)
