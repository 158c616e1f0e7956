package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopmigrate/backend/internal/domain/migration"
	"github.com/shopmigrate/backend/internal/domain/shared"
)

// In-memory fakes shared by the pipeline tests. They mirror the filter
// semantics of the GORM repositories closely enough to drive the services.

type memConnectionRepo struct {
	mu          sync.Mutex
	connections map[uuid.UUID]*migration.Connection
}

func newMemConnectionRepo() *memConnectionRepo {
	return &memConnectionRepo{connections: make(map[uuid.UUID]*migration.Connection)}
}

func (r *memConnectionRepo) Save(_ context.Context, connection *migration.Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[connection.ID] = connection
	return nil
}

func (r *memConnectionRepo) FindByID(_ context.Context, id uuid.UUID) (*migration.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	connection, ok := r.connections[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return connection, nil
}

func (r *memConnectionRepo) UpdatePremapping(_ context.Context, id uuid.UUID, premapping []migration.PremappingStruct) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	connection, ok := r.connections[id]
	if !ok {
		return shared.ErrNotFound
	}
	connection.Premapping = premapping
	return nil
}

type memRunRepo struct {
	mu   sync.Mutex
	runs map[uuid.UUID]migration.Run
}

func newMemRunRepo() *memRunRepo {
	return &memRunRepo{runs: make(map[uuid.UUID]migration.Run)}
}

func (r *memRunRepo) Save(_ context.Context, run *migration.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = *run
	return nil
}

func (r *memRunRepo) FindByID(_ context.Context, id uuid.UUID) (*migration.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := run
	return &copied, nil
}

func (r *memRunRepo) Update(_ context.Context, run *migration.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; !ok {
		return shared.ErrNotFound
	}
	r.runs[run.ID] = *run
	return nil
}

// setStatus simulates an external status change, e.g. an operator pause
func (r *memRunRepo) setStatus(id uuid.UUID, status migration.RunStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run := r.runs[id]
	run.Status = status
	r.runs[id] = run
}

type memRecordRepo struct {
	mu      sync.Mutex
	records []*migration.DataRecord
	saveErr error
	// onFindUnconverted observes each unconverted query with its match count
	onFindUnconverted func(matched int)
}

func newMemRecordRepo() *memRecordRepo {
	return &memRecordRepo{}
}

func (r *memRecordRepo) SaveBatch(_ context.Context, records []*migration.DataRecord) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, records...)
	return nil
}

func (r *memRecordRepo) Update(_ context.Context, _ *migration.DataRecord) error {
	return nil
}

func (r *memRecordRepo) UpdateBatch(_ context.Context, _ []*migration.DataRecord) error {
	return nil
}

func (r *memRecordRepo) FindUnconverted(_ context.Context, runID uuid.UUID, entityType string, offset, limit int) ([]*migration.DataRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*migration.DataRecord
	for _, record := range r.records {
		if record.RunID == runID && record.EntityType == entityType &&
			record.ConvertedPayload == nil && !record.ConvertFailure {
			matched = append(matched, record)
		}
	}
	if r.onFindUnconverted != nil {
		r.onFindUnconverted(len(matched))
	}
	return window(matched, offset, limit), nil
}

func (r *memRecordRepo) FindWritable(_ context.Context, runID uuid.UUID, entityType string, offset, limit int) ([]*migration.DataRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*migration.DataRecord
	for _, record := range r.records {
		if record.RunID == runID && record.EntityType == entityType &&
			record.ConvertedPayload != nil && record.Checksum == "" && !record.WriteFailure {
			matched = append(matched, record)
		}
	}
	return window(matched, offset, limit), nil
}

func (r *memRecordRepo) CountByRun(_ context.Context, runID uuid.UUID, entityType string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, record := range r.records {
		if record.RunID == runID && record.EntityType == entityType {
			count++
		}
	}
	return count, nil
}

func window(records []*migration.DataRecord, offset, limit int) []*migration.DataRecord {
	if offset >= len(records) {
		return nil
	}
	records = records[offset:]
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records
}

type memMappingRepo struct {
	mu              sync.Mutex
	entries         map[string]*migration.MappingEntry
	saveErr         error
	savedBatches    int
	clearedChecksum []uuid.UUID
}

func newMemMappingRepo() *memMappingRepo {
	return &memMappingRepo{entries: make(map[string]*migration.MappingEntry)}
}

func (r *memMappingRepo) key(connectionID uuid.UUID, entityType, oldID string) string {
	return fmt.Sprintf("%s:%s:%s", connectionID, entityType, oldID)
}

func (r *memMappingRepo) SaveBatch(_ context.Context, entries []*migration.MappingEntry) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range entries {
		r.entries[r.key(entry.ConnectionID, entry.EntityType, entry.OldID)] = entry
	}
	r.savedBatches++
	return nil
}

func (r *memMappingRepo) Find(_ context.Context, connectionID uuid.UUID, entityType, oldID string) (*migration.MappingEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[r.key(connectionID, entityType, oldID)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return entry, nil
}

func (r *memMappingRepo) FindByConnection(_ context.Context, connectionID uuid.UUID, entityType string) ([]*migration.MappingEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*migration.MappingEntry
	for _, entry := range r.entries {
		if entry.ConnectionID == connectionID && entry.EntityType == entityType {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

func (r *memMappingRepo) ClearChecksums(_ context.Context, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearedChecksum = append(r.clearedChecksum, ids...)
	return nil
}

type memLogRepo struct {
	mu      sync.Mutex
	entries []*migration.LogEntry
	saveErr error
}

func newMemLogRepo() *memLogRepo {
	return &memLogRepo{}
}

func (r *memLogRepo) SaveBatch(_ context.Context, entries []*migration.LogEntry) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *memLogRepo) FindByRun(_ context.Context, runID uuid.UUID) ([]*migration.LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*migration.LogEntry
	for _, entry := range r.entries {
		if entry.RunID == runID {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

type memMediaRepo struct {
	mu      sync.Mutex
	files   []*migration.MediaFile
	saveErr error
}

func newMemMediaRepo() *memMediaRepo {
	return &memMediaRepo{}
}

func (r *memMediaRepo) SaveBatch(_ context.Context, files []*migration.MediaFile) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, files...)
	return nil
}

func (r *memMediaRepo) FindUnprocessed(_ context.Context, runID uuid.UUID, limit int) ([]*migration.MediaFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*migration.MediaFile
	for _, file := range r.files {
		if file.RunID == runID && !file.Processed {
			matched = append(matched, file)
			if limit > 0 && len(matched) == limit {
				break
			}
		}
	}
	return matched, nil
}

func (r *memMediaRepo) Update(_ context.Context, _ *migration.MediaFile) error {
	return nil
}

// fakeGateway serves canned pages per entity type
type fakeGateway struct {
	name    string
	rows    map[string][]map[string]any
	readErr error
}

func (g *fakeGateway) Name() string { return g.name }

func (g *fakeGateway) Supports(connection *migration.Connection) bool {
	return connection.GatewayName == g.name
}

func (g *fakeGateway) Read(_ context.Context, migrationCtx *migration.MigrationContext) ([]map[string]any, error) {
	if g.readErr != nil {
		return nil, g.readErr
	}
	rows := g.rows[migrationCtx.EntityType]
	if migrationCtx.Offset >= len(rows) {
		return nil, nil
	}
	rows = rows[migrationCtx.Offset:]
	if migrationCtx.Limit > 0 && len(rows) > migrationCtx.Limit {
		rows = rows[:migrationCtx.Limit]
	}
	return rows, nil
}

func (g *fakeGateway) ReadTotal(_ context.Context, _ *migration.Connection, entityType string) (int64, error) {
	if g.readErr != nil {
		return 0, g.readErr
	}
	return int64(len(g.rows[entityType])), nil
}

// fakeWriter records written payloads and can reject configured indexes on
// the first attempt
type fakeWriter struct {
	entityTypes map[string]bool
	rejectOnce  map[int]string
	attempts    int
	written     [][]map[string]any
	writeErr    error
}

func newFakeWriter(entityTypes ...string) *fakeWriter {
	supported := make(map[string]bool, len(entityTypes))
	for _, entityType := range entityTypes {
		supported[entityType] = true
	}
	return &fakeWriter{entityTypes: supported}
}

func (w *fakeWriter) Supports(entityType string) bool {
	return w.entityTypes[entityType]
}

func (w *fakeWriter) Write(_ context.Context, entityType string, payloads []map[string]any) error {
	w.attempts++
	if w.writeErr != nil {
		return w.writeErr
	}
	if w.attempts == 1 && len(w.rejectOnce) > 0 {
		violations := make([]migration.WriteViolation, 0, len(w.rejectOnce))
		for index, message := range w.rejectOnce {
			violations = append(violations, migration.WriteViolation{Index: index, Message: message})
		}
		return &migration.WriteViolationError{EntityType: entityType, Violations: violations}
	}
	w.written = append(w.written, payloads)
	return nil
}

// fakeTargetLookup serves canned target-system reference data
type fakeTargetLookup struct {
	currencies       map[string]uuid.UUID
	languages        map[string]uuid.UUID
	countries        map[string]uuid.UUID
	choices          map[string][]migration.PremappingChoice
	defaultLocale    string
	defaultLanguage  uuid.UUID
	availabilityRule *uuid.UUID
}

func newFakeTargetLookup() *fakeTargetLookup {
	return &fakeTargetLookup{
		currencies: make(map[string]uuid.UUID),
		languages:  make(map[string]uuid.UUID),
		countries:  make(map[string]uuid.UUID),
		choices:    make(map[string][]migration.PremappingChoice),
	}
}

func (l *fakeTargetLookup) CurrencyIDByISO(_ context.Context, isoCode string) (*uuid.UUID, error) {
	if id, ok := l.currencies[isoCode]; ok {
		return &id, nil
	}
	return nil, nil
}

func (l *fakeTargetLookup) LanguageIDByLocale(_ context.Context, locale string) (*uuid.UUID, error) {
	if id, ok := l.languages[locale]; ok {
		return &id, nil
	}
	return nil, nil
}

func (l *fakeTargetLookup) CountryIDByISO(_ context.Context, iso2, _ string) (*uuid.UUID, error) {
	if id, ok := l.countries[iso2]; ok {
		return &id, nil
	}
	return nil, nil
}

func (l *fakeTargetLookup) DefaultLanguage(_ context.Context) (string, uuid.UUID, error) {
	return l.defaultLocale, l.defaultLanguage, nil
}

func (l *fakeTargetLookup) DefaultAvailabilityRuleID(_ context.Context) (*uuid.UUID, error) {
	return l.availabilityRule, nil
}

func (l *fakeTargetLookup) Choices(_ context.Context, mappingName string) ([]migration.PremappingChoice, error) {
	return l.choices[mappingName], nil
}

// recordingBus captures published events without dispatching them
type recordingBus struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (b *recordingBus) Publish(_ context.Context, events ...shared.DomainEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, events...)
	return nil
}

type memCleanupRepo struct {
	mu        sync.Mutex
	deleted   []string
	deleteErr error
}

func (r *memCleanupRepo) DeleteTable(_ context.Context, table string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, table)
	return nil
}
