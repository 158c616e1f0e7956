package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopmigrate/backend/internal/domain/migration"
	"github.com/shopmigrate/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Source identifier under which the premapped default availability rule is
// stored on a connection
const defaultAvailabilityRuleSourceID = "default_shipping_availability_rule"

// MappingService resolves source identifiers to stable target identifiers.
// Entries created during conversion are buffered and flushed in one batch by
// WriteMapping so converting thousands of rows does not issue one write per
// identifier.
type MappingService struct {
	repo   migration.MappingRepository
	target migration.TargetLookup
	logger *zap.Logger

	mu         sync.Mutex
	cache      map[string]*migration.MappingEntry
	writeQueue []*migration.MappingEntry

	defaultLocale     string
	defaultLanguageID uuid.UUID
}

// NewMappingService creates a mapping service
func NewMappingService(repo migration.MappingRepository, target migration.TargetLookup, logger *zap.Logger) *MappingService {
	return &MappingService{
		repo:   repo,
		target: target,
		logger: logger,
		cache:  make(map[string]*migration.MappingEntry),
	}
}

func cacheKey(connectionID uuid.UUID, entityType, oldID string) string {
	return fmt.Sprintf("%s:%s:%s", connectionID, entityType, oldID)
}

// GetUUID is a pure lookup; it never creates a mapping
func (s *MappingService) GetUUID(ctx context.Context, connectionID uuid.UUID, entityType, oldID string) (*uuid.UUID, error) {
	if oldID == "" {
		return nil, nil
	}
	entry, err := s.find(ctx, connectionID, entityType, oldID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	newID := entry.NewID
	return &newID, nil
}

// CreateNewUUID mints a stable identifier for the triple. Repeat calls return
// the identifier created first (idempotent).
func (s *MappingService) CreateNewUUID(ctx context.Context, connectionID uuid.UUID, entityType, oldID string) (uuid.UUID, error) {
	return s.GetOrCreateMapping(ctx, connectionID, entityType, oldID, nil, nil)
}

// GetOrCreateMapping combines lookup and creation. A non-nil explicitNewID
// seeds the mapping instead of generating one.
func (s *MappingService) GetOrCreateMapping(ctx context.Context, connectionID uuid.UUID, entityType, oldID string, additionalData map[string]any, explicitNewID *uuid.UUID) (uuid.UUID, error) {
	entry, err := s.find(ctx, connectionID, entityType, oldID)
	if err != nil {
		return uuid.Nil, err
	}
	if entry != nil {
		return entry.NewID, nil
	}

	if explicitNewID != nil {
		entry = migration.SeededMappingEntry(connectionID, entityType, oldID, *explicitNewID)
	} else {
		entry = migration.NewMappingEntry(connectionID, entityType, oldID)
	}
	entry.AdditionalData = additionalData

	s.mu.Lock()
	s.cache[cacheKey(connectionID, entityType, oldID)] = entry
	s.writeQueue = append(s.writeQueue, entry)
	s.mu.Unlock()

	return entry.NewID, nil
}

// WriteMapping flushes all mappings created since the last flush
func (s *MappingService) WriteMapping(ctx context.Context) error {
	s.mu.Lock()
	queue := s.writeQueue
	s.writeQueue = nil
	s.mu.Unlock()

	if len(queue) == 0 {
		return nil
	}
	if err := s.repo.SaveBatch(ctx, queue); err != nil {
		// Re-queue so a later flush can retry
		s.mu.Lock()
		s.writeQueue = append(queue, s.writeQueue...)
		s.mu.Unlock()
		return fmt.Errorf("failed to write %d mapping entries: %w", len(queue), err)
	}
	s.logger.Debug("flushed mapping entries", zap.Int("count", len(queue)))
	return nil
}

// GetCurrencyUUID resolves a currency by ISO code, consulting the target
// system before minting a new identifier
func (s *MappingService) GetCurrencyUUID(ctx context.Context, connectionID uuid.UUID, isoCode string) (*uuid.UUID, error) {
	if isoCode == "" {
		return nil, nil
	}
	if mapped, err := s.GetUUID(ctx, connectionID, migration.EntityCurrency, isoCode); err != nil || mapped != nil {
		return mapped, err
	}
	targetID, err := s.target.CurrencyIDByISO(ctx, isoCode)
	if err != nil {
		return nil, err
	}
	if targetID == nil {
		return nil, nil
	}
	newID, err := s.GetOrCreateMapping(ctx, connectionID, migration.EntityCurrency, isoCode, nil, targetID)
	if err != nil {
		return nil, err
	}
	return &newID, nil
}

// GetLanguageUUID resolves a language by locale tag, falling back to a fresh
// identifier when the target system has no such locale
func (s *MappingService) GetLanguageUUID(ctx context.Context, connectionID uuid.UUID, locale string) (*uuid.UUID, error) {
	if locale == "" {
		return nil, nil
	}
	if mapped, err := s.GetUUID(ctx, connectionID, migration.EntityLanguage, locale); err != nil || mapped != nil {
		return mapped, err
	}
	targetID, err := s.target.LanguageIDByLocale(ctx, locale)
	if err != nil {
		return nil, err
	}
	newID, err := s.GetOrCreateMapping(ctx, connectionID, migration.EntityLanguage, locale, nil, targetID)
	if err != nil {
		return nil, err
	}
	return &newID, nil
}

// GetCountryUUID resolves a country by ISO-2/ISO-3 codes, falling back to a
// fresh identifier when the target system has no match
func (s *MappingService) GetCountryUUID(ctx context.Context, connectionID uuid.UUID, oldID, iso2, iso3 string) (*uuid.UUID, error) {
	if mapped, err := s.GetUUID(ctx, connectionID, migration.EntityCountry, oldID); err != nil || mapped != nil {
		return mapped, err
	}
	targetID, err := s.target.CountryIDByISO(ctx, iso2, iso3)
	if err != nil {
		return nil, err
	}
	if targetID == nil {
		return nil, nil
	}
	newID, err := s.GetOrCreateMapping(ctx, connectionID, migration.EntityCountry, oldID, nil, targetID)
	if err != nil {
		return nil, err
	}
	return &newID, nil
}

// GetDefaultLanguage returns the target system's default locale and language
// identifier, cached for the lifetime of the service
func (s *MappingService) GetDefaultLanguage(ctx context.Context) (string, uuid.UUID, error) {
	s.mu.Lock()
	locale, languageID := s.defaultLocale, s.defaultLanguageID
	s.mu.Unlock()
	if locale != "" {
		return locale, languageID, nil
	}

	locale, languageID, err := s.target.DefaultLanguage(ctx)
	if err != nil {
		return "", uuid.Nil, err
	}
	s.mu.Lock()
	s.defaultLocale, s.defaultLanguageID = locale, languageID
	s.mu.Unlock()
	return locale, languageID, nil
}

// GetDefaultAvailabilityRule returns the premapped shipping availability rule
// of the connection, falling back to the target system default
func (s *MappingService) GetDefaultAvailabilityRule(ctx context.Context, connectionID uuid.UUID) (*uuid.UUID, error) {
	mapped, err := s.GetUUID(ctx, connectionID, migration.MappingShippingAvailabilityRule, defaultAvailabilityRuleSourceID)
	if err != nil || mapped != nil {
		return mapped, err
	}
	return s.target.DefaultAvailabilityRuleID(ctx)
}

// find looks up a mapping entry in the cache, then durable storage
func (s *MappingService) find(ctx context.Context, connectionID uuid.UUID, entityType, oldID string) (*migration.MappingEntry, error) {
	key := cacheKey(connectionID, entityType, oldID)
	s.mu.Lock()
	entry, ok := s.cache[key]
	s.mu.Unlock()
	if ok {
		return entry, nil
	}

	entry, err := s.repo.Find(ctx, connectionID, entityType, oldID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	s.mu.Lock()
	s.cache[key] = entry
	s.mu.Unlock()
	return entry, nil
}

// Ensure MappingService implements the domain contract
var _ migration.MappingService = (*MappingService)(nil)
