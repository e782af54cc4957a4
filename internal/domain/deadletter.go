package domain

import (
	"encoding/json"
	"time"
)

// FailedStep identifies the pipeline step a dead-lettered request failed at.
type FailedStep string

const (
	StepExtraction FailedStep = "attachment_extraction"
	StepEmbedding  FailedStep = "embedding"
	StepStore      FailedStep = "vector_store"
	StepLedger     FailedStep = "ledger"
)

// DeadLetterStatus tracks whether an entry has been superseded by a
// successful replay. Entries are never deleted.
type DeadLetterStatus string

const (
	DeadLetterPending  DeadLetterStatus = "pending"
	DeadLetterReplayed DeadLetterStatus = "replayed"
)

// DeadLetterEntry records a failed processing attempt with enough context
// to resubmit the original request later.
type DeadLetterEntry struct {
	ID              int64
	UnitID          string
	OriginalRequest json.RawMessage
	ErrorMessage    string
	FailedAtStep    FailedStep
	Status          DeadLetterStatus
	CreatedAt       time.Time
	ReplayedAt      *time.Time
}

// NewDeadLetterEntry creates a pending DeadLetterEntry instance
func NewDeadLetterEntry(unitID string, request json.RawMessage, step FailedStep, errMsg string) *DeadLetterEntry {
	return &DeadLetterEntry{
		UnitID:          unitID,
		OriginalRequest: request,
		ErrorMessage:    errMsg,
		FailedAtStep:    step,
		Status:          DeadLetterPending,
		CreatedAt:       time.Now().UTC(),
	}
}

// ValidateDeadLetterEntry validates a DeadLetterEntry instance
func ValidateDeadLetterEntry(e *DeadLetterEntry) error {
	if e == nil {
		return NewDomainError(ErrCodeValidation, "dead letter entry cannot be nil")
	}
	if e.UnitID == "" {
		return ErrMissingUnitID
	}
	if len(e.OriginalRequest) == 0 {
		return NewDomainError(ErrCodeValidation, "dead letter entry requires the original request")
	}
	if e.FailedAtStep == "" {
		return NewDomainError(ErrCodeValidation, "dead letter entry requires the failed step")
	}
	return nil
}
