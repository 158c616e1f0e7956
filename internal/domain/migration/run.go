package migration

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopmigrate/backend/internal/domain/shared"
)

// RunStatus represents the lifecycle status of a migration run
type RunStatus string

const (
	RunStatusCreated           RunStatus = "CREATED"
	RunStatusPremappingPending RunStatus = "PREMAPPING_PENDING"
	RunStatusRunning           RunStatus = "RUNNING"
	RunStatusPaused            RunStatus = "PAUSED"
	RunStatusAborted           RunStatus = "ABORTED"
	RunStatusFinished          RunStatus = "FINISHED"
)

// IsValid checks if the status is a valid RunStatus
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusCreated, RunStatusPremappingPending, RunStatusRunning,
		RunStatusPaused, RunStatusAborted, RunStatusFinished:
		return true
	}
	return false
}

// String returns the string representation of RunStatus
func (s RunStatus) String() string {
	return string(s)
}

// IsTerminal returns true for statuses that permit no further transitions
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusFinished || s == RunStatusAborted
}

// CanTransitionTo checks if the status can transition to the target status
func (s RunStatus) CanTransitionTo(target RunStatus) bool {
	switch s {
	case RunStatusCreated:
		return target == RunStatusPremappingPending || target == RunStatusRunning
	case RunStatusPremappingPending:
		return target == RunStatusRunning || target == RunStatusAborted
	case RunStatusRunning:
		return target == RunStatusPaused || target == RunStatusAborted || target == RunStatusFinished
	case RunStatusPaused:
		return target == RunStatusRunning || target == RunStatusAborted
	case RunStatusFinished, RunStatusAborted:
		return false // Terminal states
	}
	return false
}

// RunProgress holds per-run progress counters
type RunProgress struct {
	Total     int64 `json:"total"`
	Fetched   int64 `json:"fetched"`
	Converted int64 `json:"converted"`
	Written   int64 `json:"written"`
	Skipped   int64 `json:"skipped"`
}

// Run represents one migration attempt against a Connection
type Run struct {
	ID           uuid.UUID
	ConnectionID uuid.UUID
	Status       RunStatus
	Progress     RunProgress
	ErrorMessage string
	StartedAt    *time.Time
	FinishedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewRun creates a new run in CREATED status
func NewRun(connectionID uuid.UUID) (*Run, error) {
	if connectionID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CONNECTION", "Connection ID cannot be empty")
	}

	now := time.Now()
	return &Run{
		ID:           uuid.New(),
		ConnectionID: connectionID,
		Status:       RunStatusCreated,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// transition moves the run to the target status, enforcing the state machine
func (r *Run) transition(target RunStatus) error {
	if !r.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot transition run from %s to %s", r.Status, target))
	}
	r.Status = target
	r.UpdatedAt = time.Now()
	return nil
}

// RequirePremapping marks the run as waiting for operator premapping choices
func (r *Run) RequirePremapping() error {
	return r.transition(RunStatusPremappingPending)
}

// Start moves the run into RUNNING. The premappingResolved guard must be
// satisfied by the caller: a run with unresolved premapping choices cannot
// start.
func (r *Run) Start(premappingResolved bool) error {
	if !premappingResolved {
		return shared.NewDomainError("PREMAPPING_UNRESOLVED",
			"Cannot start run while premapping choices are unresolved")
	}
	if err := r.transition(RunStatusRunning); err != nil {
		return err
	}
	if r.StartedAt == nil {
		now := time.Now()
		r.StartedAt = &now
	}
	return nil
}

// Pause suspends the run. Already-persisted chunks remain committed.
func (r *Run) Pause() error {
	return r.transition(RunStatusPaused)
}

// Resume continues a paused run
func (r *Run) Resume() error {
	if r.Status != RunStatusPaused {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot resume run in %s status", r.Status))
	}
	return r.transition(RunStatusRunning)
}

// Abort terminates the run after an unrecoverable error
func (r *Run) Abort(reason string) error {
	if err := r.transition(RunStatusAborted); err != nil {
		return err
	}
	r.ErrorMessage = reason
	now := time.Now()
	r.FinishedAt = &now
	return nil
}

// Finish completes the run
func (r *Run) Finish() error {
	if err := r.transition(RunStatusFinished); err != nil {
		return err
	}
	now := time.Now()
	r.FinishedAt = &now
	return nil
}

// IsRunning returns true if the run is in RUNNING status
func (r *Run) IsRunning() bool {
	return r.Status == RunStatusRunning
}

// IsTerminal returns true if the run reached a terminal status
func (r *Run) IsTerminal() bool {
	return r.Status.IsTerminal()
}
