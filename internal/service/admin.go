package service

import (
	"context"
	"errors"
	"log"

	"github.com/vita-labs/recallai/internal/domain"
	"github.com/vita-labs/recallai/internal/telemetry"
)

// ChunkAdmin covers the destructive chunk-store operations.
type ChunkAdmin interface {
	DeleteByUnitID(ctx context.Context, unitID string) (int64, error)
	RedactByUnitID(ctx context.Context, unitID string) (int64, error)
}

// LedgerAdmin removes ledger entries for deleted units.
type LedgerAdmin interface {
	Forget(ctx context.Context, unitID string) error
}

// AttachmentDeleter removes archived attachment copies.
type AttachmentDeleter interface {
	DeleteByUnit(ctx context.Context, unitID string) error
}

// FeedbackStore persists answer feedback.
type FeedbackStore interface {
	Append(ctx context.Context, entry *domain.FeedbackEntry) error
}

// AdminService handles moderation operations: removing or redacting a
// unit's traces from the index, and recording answer feedback.
type AdminService struct {
	chunks      ChunkAdmin
	ledger      LedgerAdmin
	attachments AttachmentDeleter
	feedback    FeedbackStore
}

func NewAdminService(chunks ChunkAdmin, ledger LedgerAdmin, attachments AttachmentDeleter, feedback FeedbackStore) *AdminService {
	return &AdminService{
		chunks:      chunks,
		ledger:      ledger,
		attachments: attachments,
		feedback:    feedback,
	}
}

// DeleteUnit removes every chunk derived from unitID, drops any archived
// attachment copies, and forgets the ledger entry so the ID can be
// ingested again. Returns the number of chunks removed.
func (s *AdminService) DeleteUnit(ctx context.Context, unitID string) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "AdminService.DeleteUnit", telemetry.SpanAttributes{
		UnitID:    unitID,
		Operation: "delete",
	})
	defer span.End()

	if unitID == "" {
		return 0, domain.ErrMissingUnitID
	}
	deleted, err := s.chunks.DeleteByUnitID(ctx, unitID)
	if err != nil {
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodeStore, "deleting chunks", err)
	}
	if deleted == 0 {
		return 0, domain.ErrUnitNotFound
	}

	if s.attachments != nil {
		if err := s.attachments.DeleteByUnit(ctx, unitID); err != nil {
			log.Printf("Error deleting archived attachments for %s: %v", unitID, err)
		}
	}
	if err := s.ledger.Forget(ctx, unitID); err != nil {
		return deleted, domain.NewDomainErrorWithCause(domain.ErrCodeStore, "forgetting ledger entry", err)
	}
	return deleted, nil
}

// RedactUnit overwrites the stored text of every chunk derived from
// unitID while keeping the rows and embeddings. The ledger entry stays:
// a redacted unit must not be re-ingested by a replayed event.
func (s *AdminService) RedactUnit(ctx context.Context, unitID string) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "AdminService.RedactUnit", telemetry.SpanAttributes{
		UnitID:    unitID,
		Operation: "redact",
	})
	defer span.End()

	if unitID == "" {
		return 0, domain.ErrMissingUnitID
	}
	redacted, err := s.chunks.RedactByUnitID(ctx, unitID)
	if err != nil {
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodeStore, "redacting chunks", err)
	}
	if redacted == 0 {
		return 0, domain.ErrUnitNotFound
	}
	return redacted, nil
}

// RecordFeedback appends one answer verdict to the feedback log.
func (s *AdminService) RecordFeedback(ctx context.Context, entry *domain.FeedbackEntry) error {
	if err := s.feedback.Append(ctx, entry); err != nil {
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			return err
		}
		return domain.NewDomainErrorWithCause(domain.ErrCodeStore, "recording feedback", err)
	}
	return nil
}
