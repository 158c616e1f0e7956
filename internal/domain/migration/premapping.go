package migration

// PremappingStruct is the operator-facing choice table for one reference
// entity that has no deterministic source-to-target correspondence. Mapping
// enumerates the distinct source values needing a manual destination choice;
// Choices enumerates the valid destination identifiers with human labels.
type PremappingStruct struct {
	Entity  string                  `json:"entity"`
	Mapping []PremappingEntityEntry `json:"mapping"`
	Choices []PremappingChoice      `json:"choices"`
}

// PremappingEntityEntry pairs one distinct source value with the operator's
// chosen destination identifier. DestinationUUID is empty until resolved.
type PremappingEntityEntry struct {
	SourceID        string `json:"sourceId"`
	Description     string `json:"description"`
	DestinationUUID string `json:"destinationUuid"`
}

// PremappingChoice is one valid destination option
type PremappingChoice struct {
	UUID  string `json:"uuid"`
	Label string `json:"label"`
}
