package domain

import "time"

// ContentUnit is one ingestible item: a chat message or an uploaded file.
// A unit is immutable once received; the unit ID is the external
// chat-platform ID and the idempotency key for the whole pipeline.
type ContentUnit struct {
	UnitID         string
	ChannelID      string
	ThreadID       string
	AuthorID       string
	RawText        string
	AttachmentRefs []AttachmentRef
	Roles          []string
	CreatedAt      time.Time
}

// AttachmentRef points at an attachment delivered alongside a message.
type AttachmentRef struct {
	URL       string
	MediaType string
	Filename  string
}

// NewContentUnit creates a new ContentUnit instance
func NewContentUnit(unitID, channelID, threadID, authorID, rawText string, refs []AttachmentRef, roles []string, createdAt time.Time) *ContentUnit {
	return &ContentUnit{
		UnitID:         unitID,
		ChannelID:      channelID,
		ThreadID:       threadID,
		AuthorID:       authorID,
		RawText:        rawText,
		AttachmentRefs: refs,
		Roles:          roles,
		CreatedAt:      createdAt,
	}
}

// ValidateContentUnit validates a ContentUnit instance
func ValidateContentUnit(u *ContentUnit) error {
	if u == nil {
		return NewDomainError(ErrCodeValidation, "content unit cannot be nil")
	}
	if u.UnitID == "" {
		return ErrMissingUnitID
	}
	if u.ChannelID == "" {
		return ErrMissingChannelID
	}
	if u.AuthorID == "" {
		return ErrMissingAuthorID
	}
	return nil
}

// ProcessingState tracks a unit through the dedup ledger.
type ProcessingState string

const (
	StateUnprocessed ProcessingState = "unprocessed"
	StateLocked      ProcessingState = "locked"
	StateProcessed   ProcessingState = "processed"
)

// AcquireResult is the outcome of a ledger acquire attempt.
type AcquireResult string

const (
	Acquired         AcquireResult = "acquired"
	AlreadyProcessed AcquireResult = "already_processed"
	AlreadyLocked    AcquireResult = "already_locked"
)

// IngestStatus is the synchronous status returned to ingestion callers.
// Actual embed/store success is observable via the ledger and the DLQ,
// not via the HTTP response.
type IngestStatus string

const (
	IngestAccepted         IngestStatus = "accepted"
	IngestAlreadyProcessed IngestStatus = "already_processed"
	IngestSkippedEmpty     IngestStatus = "skipped_empty"
	IngestError            IngestStatus = "error"
)
