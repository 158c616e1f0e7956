package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// DataRecord is one raw source row captured for a run: the per-row unit
// carried through fetch, convert and write. ConvertedPayload and MappingID are
// populated by the converter. Checksum is set on successful write and cleared
// on write failure to mark the record for retry on a later pass.
type DataRecord struct {
	ID               uuid.UUID
	RunID            uuid.UUID
	EntityType       string
	RawPayload       map[string]any
	ConvertedPayload map[string]any
	UnmappedPayload  map[string]any
	MappingID        *uuid.UUID
	ConvertFailure   bool
	WriteFailure     bool
	Checksum         string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewDataRecord captures one raw source row for a run
func NewDataRecord(runID uuid.UUID, entityType string, raw map[string]any) *DataRecord {
	now := time.Now()
	return &DataRecord{
		ID:         uuid.New(),
		RunID:      runID,
		EntityType: entityType,
		RawPayload: raw,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// MarkConverted records a successful conversion. The record is fully
// accepted: converted payload present, mapping identifier set.
func (d *DataRecord) MarkConverted(converted, unmapped map[string]any, mappingID uuid.UUID) {
	d.ConvertedPayload = converted
	d.UnmappedPayload = unmapped
	d.MappingID = &mappingID
	d.ConvertFailure = false
	d.UpdatedAt = time.Now()
}

// MarkRejected records a failed conversion. The record is fully rejected:
// no converted payload, the original payload preserved as unmapped.
func (d *DataRecord) MarkRejected(unmapped map[string]any) {
	d.ConvertedPayload = nil
	d.UnmappedPayload = unmapped
	d.MappingID = nil
	d.ConvertFailure = true
	d.UpdatedAt = time.Now()
}

// MarkWritten records a successful write with the payload content hash
func (d *DataRecord) MarkWritten() {
	d.WriteFailure = false
	d.Checksum = PayloadChecksum(d.ConvertedPayload)
	d.UpdatedAt = time.Now()
}

// MarkWriteFailure flags the record for retry on a later pass
func (d *DataRecord) MarkWriteFailure() {
	d.WriteFailure = true
	d.Checksum = ""
	d.UpdatedAt = time.Now()
}

// IsConverted returns true if the record carries a converted payload
func (d *DataRecord) IsConverted() bool {
	return d.ConvertedPayload != nil && d.MappingID != nil
}

// NeedsWrite returns true if the record has not been written successfully.
// An absent checksum means "needs (re)write".
func (d *DataRecord) NeedsWrite() bool {
	return d.IsConverted() && d.Checksum == ""
}

// PayloadChecksum computes a stable content hash over a payload. Map keys are
// sorted so equal payloads always hash equally.
func PayloadChecksum(payload map[string]any) string {
	if payload == nil {
		return ""
	}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		raw, err := json.Marshal(payload[k])
		if err != nil {
			continue
		}
		h.Write(raw)
	}
	return hex.EncodeToString(h.Sum(nil))
}
