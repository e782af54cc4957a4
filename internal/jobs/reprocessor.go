package jobs

import (
	"context"
	"log"

	"github.com/vita-labs/recallai/internal/domain"
	"github.com/vita-labs/recallai/internal/service"
)

// DefaultReplayBatch is how many pending entries one pass picks up.
const DefaultReplayBatch = 50

// DeadLetterSource supplies pending DLQ entries and records replays.
type DeadLetterSource interface {
	Pending(ctx context.Context, limit int) ([]*domain.DeadLetterEntry, error)
	MarkReplayed(ctx context.Context, id int64) error
}

// Resubmitter pushes decoded units back through the ingestion pipeline.
// Thread-shaped payloads go through thread ingestion so their groups are
// re-merged instead of being embedded as independent chunks.
type Resubmitter interface {
	IngestBatch(ctx context.Context, units []domain.ContentUnit) []service.UnitOutcome
	IngestThread(ctx context.Context, units []domain.ContentUnit) []service.UnitOutcome
}

// Reprocessor drains the DLQ: each pending entry's original request is
// decoded and resubmitted. A successful resubmission marks the entry
// replayed; a failed one stays pending and is retried on a later pass,
// where it may also gain a fresh DLQ entry from the new attempt.
type Reprocessor struct {
	source    DeadLetterSource
	ingest    Resubmitter
	batchSize int
}

func NewReprocessor(source DeadLetterSource, ingest Resubmitter, batchSize int) *Reprocessor {
	if batchSize <= 0 {
		batchSize = DefaultReplayBatch
	}
	return &Reprocessor{source: source, ingest: ingest, batchSize: batchSize}
}

// ProcessPending runs one replay pass.
func (r *Reprocessor) ProcessPending(ctx context.Context) error {
	entries, err := r.source.Pending(ctx, r.batchSize)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	log.Printf("Replaying %d pending dead letter entries", len(entries))

	for _, entry := range entries {
		if err := r.replay(ctx, entry); err != nil {
			log.Printf("Error replaying entry %d (unit %s): %v", entry.ID, entry.UnitID, err)
		}
	}
	return nil
}

func (r *Reprocessor) replay(ctx context.Context, entry *domain.DeadLetterEntry) error {
	units, isThread, err := service.DecodeReplayRequest(entry.OriginalRequest)
	if err != nil {
		// A payload that never parses would retry forever; leave it
		// pending and let an operator inspect it via the dlq commands.
		return err
	}

	var outcomes []service.UnitOutcome
	if isThread {
		outcomes = r.ingest.IngestThread(ctx, units)
	} else {
		outcomes = r.ingest.IngestBatch(ctx, units)
	}

	for _, outcome := range outcomes {
		if outcome.Status == domain.IngestError {
			log.Printf("Replay of unit %s failed: %s", outcome.UnitID, outcome.Error)
			return nil
		}
	}

	// accepted, already_processed and skipped_empty all mean the units
	// no longer need this entry.
	return r.source.MarkReplayed(ctx, entry.ID)
}
