package domain

import "time"

// FeedbackEntry records a requester's verdict on a generated answer.
// Appended to a durable log; never mutated.
type FeedbackEntry struct {
	ID          int64
	RequesterID string
	Question    string
	Answer      string
	Sources     []string
	Verdict     string
	CreatedAt   time.Time
}

// ValidateFeedbackEntry validates a FeedbackEntry instance
func ValidateFeedbackEntry(f *FeedbackEntry) error {
	if f == nil {
		return NewDomainError(ErrCodeValidation, "feedback entry cannot be nil")
	}
	if f.RequesterID == "" {
		return NewDomainError(ErrCodeValidation, "requester_id is required")
	}
	if f.Verdict == "" {
		return NewDomainError(ErrCodeValidation, "verdict is required")
	}
	return nil
}
