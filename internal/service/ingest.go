package service

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/vita-labs/recallai/internal/chunk"
	"github.com/vita-labs/recallai/internal/domain"
	"github.com/vita-labs/recallai/internal/extract"
	"github.com/vita-labs/recallai/internal/sanitize"
	"github.com/vita-labs/recallai/internal/telemetry"
)

// Ledger is the dedup ledger the pipeline claims units through.
type Ledger interface {
	TryAcquire(ctx context.Context, unitID string) (domain.AcquireResult, error)
	Commit(ctx context.Context, unitID string) error
	Release(ctx context.Context, unitID string) error
}

// ChunkStore persists embedded chunks.
type ChunkStore interface {
	UpsertChunks(ctx context.Context, chunks []domain.Chunk) error
}

// DeadLetters records failed processing attempts.
type DeadLetters interface {
	Append(ctx context.Context, entry *domain.DeadLetterEntry) error
}

// Embedder turns text into vectors.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// AttachmentExtractor resolves a unit's attachments into text.
type AttachmentExtractor interface {
	ExtractAll(ctx context.Context, unitID string, refs []domain.AttachmentRef) []extract.Result
}

// UnitOutcome is the per-unit accounting row for batch and thread ingestion.
type UnitOutcome struct {
	UnitID string              `json:"unit_id"`
	Status domain.IngestStatus `json:"status"`
	Error  string              `json:"error,omitempty"`
}

// IngestService runs the ingestion pipeline: claim the unit in the
// ledger, sanitize, extract attachments, chunk, embed, store, commit.
// Single-unit ingestion is acknowledged after the claim and sanitize
// steps; the rest runs on a bounded worker pool. Failures land in the
// DLQ with the original request attached and the claim released.
type IngestService struct {
	ledger      Ledger
	store       ChunkStore
	deadLetters DeadLetters
	embedder    Embedder
	extractor   AttachmentExtractor
	splitter    *chunk.Splitter
	grouper     *chunk.Grouper
	pool        *ants.Pool
	jobTimeout  time.Duration
	wg          sync.WaitGroup
}

type IngestConfig struct {
	Splitter   *chunk.Splitter
	Grouper    *chunk.Grouper
	PoolSize   int
	JobTimeout time.Duration
}

func NewIngestService(
	ledger Ledger,
	store ChunkStore,
	deadLetters DeadLetters,
	embedder Embedder,
	extractor AttachmentExtractor,
	cfg IngestConfig,
) (*IngestService, error) {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 8
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("creating ingest pool: %w", err)
	}
	jobTimeout := cfg.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = 2 * time.Minute
	}
	return &IngestService{
		ledger:      ledger,
		store:       store,
		deadLetters: deadLetters,
		embedder:    embedder,
		extractor:   extractor,
		splitter:    cfg.Splitter,
		grouper:     cfg.Grouper,
		pool:        pool,
		jobTimeout:  jobTimeout,
	}, nil
}

// IngestUnit accepts one unit. The returned status reflects the claim
// and sanitize outcome only: "accepted" means the unit was claimed and
// queued, not that embedding succeeded. Embed/store failures surface
// through the DLQ.
func (s *IngestService) IngestUnit(ctx context.Context, unit domain.ContentUnit) (domain.IngestStatus, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.IngestUnit", telemetry.SpanAttributes{
		UnitID:    unit.UnitID,
		ChannelID: unit.ChannelID,
		Operation: "ingest",
	})
	defer span.End()

	if err := domain.ValidateContentUnit(&unit); err != nil {
		return domain.IngestError, err
	}
	NormalizeUnit(&unit)

	result, err := s.ledger.TryAcquire(ctx, unit.UnitID)
	if err != nil {
		return domain.IngestError, domain.NewDomainErrorWithCause(domain.ErrCodeStore, "claiming unit", err)
	}
	if result != domain.Acquired {
		// AlreadyLocked means another worker holds an unexpired lease
		// for the same ID; to the caller that is the same duplicate.
		return domain.IngestAlreadyProcessed, nil
	}

	cleanText, _ := sanitize.Clean(unit.RawText)
	if cleanText == "" && len(unit.AttachmentRefs) == 0 {
		if err := s.ledger.Release(ctx, unit.UnitID); err != nil {
			log.Printf("Error releasing empty unit %s: %v", unit.UnitID, err)
		}
		return domain.IngestSkippedEmpty, nil
	}

	s.wg.Add(1)
	if err := s.pool.Submit(func() {
		defer s.wg.Done()
		jobCtx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()
		if err := s.processClaimed(jobCtx, unit, cleanText); err != nil {
			log.Printf("Error processing unit %s: %v", unit.UnitID, err)
		}
	}); err != nil {
		s.wg.Done()
		s.deadLetter(ctx, unit, EncodeUnitRequest(unit), domain.StepLedger, err)
		return domain.IngestError, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "queueing unit", err)
	}
	return domain.IngestAccepted, nil
}

// IngestBatch processes units one at a time, synchronously, and returns
// one outcome per input in input order. A failed unit never blocks its
// siblings.
func (s *IngestService) IngestBatch(ctx context.Context, units []domain.ContentUnit) []UnitOutcome {
	outcomes := make([]UnitOutcome, 0, len(units))
	for _, unit := range units {
		outcomes = append(outcomes, s.ingestSync(ctx, unit))
	}
	return outcomes
}

func (s *IngestService) ingestSync(ctx context.Context, unit domain.ContentUnit) UnitOutcome {
	if err := domain.ValidateContentUnit(&unit); err != nil {
		return UnitOutcome{UnitID: unit.UnitID, Status: domain.IngestError, Error: err.Error()}
	}
	NormalizeUnit(&unit)

	result, err := s.ledger.TryAcquire(ctx, unit.UnitID)
	if err != nil {
		return UnitOutcome{UnitID: unit.UnitID, Status: domain.IngestError, Error: err.Error()}
	}
	if result != domain.Acquired {
		return UnitOutcome{UnitID: unit.UnitID, Status: domain.IngestAlreadyProcessed}
	}

	cleanText, _ := sanitize.Clean(unit.RawText)
	if cleanText == "" && len(unit.AttachmentRefs) == 0 {
		if err := s.ledger.Release(ctx, unit.UnitID); err != nil {
			log.Printf("Error releasing empty unit %s: %v", unit.UnitID, err)
		}
		return UnitOutcome{UnitID: unit.UnitID, Status: domain.IngestSkippedEmpty}
	}

	if err := s.processClaimed(ctx, unit, cleanText); err != nil {
		return UnitOutcome{UnitID: unit.UnitID, Status: domain.IngestError, Error: err.Error()}
	}
	return UnitOutcome{UnitID: unit.UnitID, Status: domain.IngestAccepted}
}

// IngestThread merges a conversation into grouped chunks before
// embedding. Units already in the ledger are reported as duplicates and
// excluded from grouping, so replaying a thread only embeds the new
// tail.
func (s *IngestService) IngestThread(ctx context.Context, units []domain.ContentUnit) []UnitOutcome {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.IngestThread", telemetry.SpanAttributes{
		Operation: "ingest_thread",
	})
	defer span.End()

	if s.grouper == nil {
		outcomes := make([]UnitOutcome, 0, len(units))
		for _, u := range units {
			outcomes = append(outcomes, UnitOutcome{UnitID: u.UnitID, Status: domain.IngestError, Error: "thread ingestion not configured"})
		}
		return outcomes
	}

	byID := make(map[string]*UnitOutcome, len(units))
	outcomes := make([]UnitOutcome, len(units))
	claimed := make([]domain.ContentUnit, 0, len(units))

	for i, unit := range units {
		outcomes[i] = UnitOutcome{UnitID: unit.UnitID}
		byID[unit.UnitID] = &outcomes[i]

		if err := domain.ValidateContentUnit(&unit); err != nil {
			outcomes[i].Status = domain.IngestError
			outcomes[i].Error = err.Error()
			continue
		}
		NormalizeUnit(&unit)

		result, err := s.ledger.TryAcquire(ctx, unit.UnitID)
		if err != nil {
			outcomes[i].Status = domain.IngestError
			outcomes[i].Error = err.Error()
			continue
		}
		if result != domain.Acquired {
			outcomes[i].Status = domain.IngestAlreadyProcessed
			continue
		}
		claimed = append(claimed, unit)
	}

	for _, group := range s.grouper.Group(claimed) {
		s.processGroup(ctx, group, byID)
	}
	return outcomes
}

func (s *IngestService) processGroup(ctx context.Context, group chunk.Group, byID map[string]*UnitOutcome) {
	var parts []string
	for _, unit := range group.Units {
		cleanText, _ := sanitize.Clean(unit.RawText)
		// Failed attachments are dead-lettered individually inside
		// resolveText; the group keeps whatever text was recovered.
		text, _ := s.resolveText(ctx, unit, cleanText)
		if text != "" {
			parts = append(parts, text)
		}
	}

	merged := strings.Join(parts, "\n")
	if strings.TrimSpace(merged) == "" {
		for _, u := range group.Units {
			if err := s.ledger.Release(ctx, u.UnitID); err != nil {
				log.Printf("Error releasing empty unit %s: %v", u.UnitID, err)
			}
			byID[u.UnitID].Status = domain.IngestSkippedEmpty
		}
		return
	}

	first := group.Units[0]
	chunks := s.buildChunks(group.UnitIDs(), first.ChannelID, first.ThreadID, first.AuthorID, group.Roles(), merged)

	step, err := s.embedAndStore(ctx, chunks)
	if err != nil {
		// The payload carries the whole group so a replay goes back
		// through thread ingestion and re-merges it.
		payload := EncodeThreadRequest(group.Units)
		for _, u := range group.Units {
			s.deadLetter(ctx, u, payload, step, err)
			o := byID[u.UnitID]
			o.Status = domain.IngestError
			o.Error = err.Error()
		}
		return
	}

	for _, u := range group.Units {
		if err := s.ledger.Commit(ctx, u.UnitID); err != nil {
			log.Printf("Error committing unit %s: %v", u.UnitID, err)
		}
		byID[u.UnitID].Status = domain.IngestAccepted
	}
}

// processClaimed runs the post-claim pipeline for one unit. On failure
// the unit is dead-lettered and its claim released; the returned error
// is informational.
func (s *IngestService) processClaimed(ctx context.Context, unit domain.ContentUnit, cleanText string) error {
	text, failed := s.resolveText(ctx, unit, cleanText)
	if strings.TrimSpace(text) == "" {
		if failed > 0 {
			// Nothing was recovered at all. The per-attachment DLQ
			// entries already exist; release the claim so a replay can
			// retry the whole unit.
			if err := s.ledger.Release(ctx, unit.UnitID); err != nil {
				log.Printf("Error releasing unit %s: %v", unit.UnitID, err)
			}
			return fmt.Errorf("no text recovered: %d of %d attachments failed", failed, len(unit.AttachmentRefs))
		}
		// Attachments existed but yielded nothing worth indexing.
		if err := s.ledger.Commit(ctx, unit.UnitID); err != nil {
			log.Printf("Error committing unit %s: %v", unit.UnitID, err)
		}
		return nil
	}

	chunks := s.buildChunks([]string{unit.UnitID}, unit.ChannelID, unit.ThreadID, unit.AuthorID, unit.Roles, text)
	step, err := s.embedAndStore(ctx, chunks)
	if err != nil {
		s.deadLetter(ctx, unit, EncodeUnitRequest(unit), step, err)
		return err
	}

	if err := s.ledger.Commit(ctx, unit.UnitID); err != nil {
		log.Printf("Error committing unit %s: %v", unit.UnitID, err)
	}
	return nil
}

// resolveText combines the unit's sanitized message text with the text
// extracted from its attachments. Each failed attachment is dead-lettered
// on its own, carrying the originating URL; the inline text and every
// sibling's recovered text keep flowing. Returns the combined text and
// the number of failed attachments.
func (s *IngestService) resolveText(ctx context.Context, unit domain.ContentUnit, cleanText string) (string, int) {
	parts := make([]string, 0, 1+len(unit.AttachmentRefs))
	if cleanText != "" {
		parts = append(parts, cleanText)
	}
	failed := 0
	if len(unit.AttachmentRefs) > 0 && s.extractor != nil {
		for _, res := range s.extractor.ExtractAll(ctx, unit.UnitID, unit.AttachmentRefs) {
			if res.Err != nil {
				failed++
				s.deadLetterAttachment(ctx, unit, res.Ref, res.Err)
				continue
			}
			extracted, _ := sanitize.Clean(res.Text)
			if extracted != "" {
				parts = append(parts, extracted)
			}
		}
	}
	return strings.Join(parts, "\n"), failed
}

func (s *IngestService) buildChunks(unitIDs []string, channelID, threadID, authorID string, roles []string, text string) []domain.Chunk {
	pieces := s.splitter.Split(text)
	now := time.Now().UTC()
	chunks := make([]domain.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, domain.Chunk{
			ChunkID:         chunkID(unitIDs, i),
			SourceUnitIDs:   unitIDs,
			ChannelID:       channelID,
			ThreadID:        threadID,
			AuthorID:        authorID,
			Roles:           roles,
			AllowedChannels: []string{},
			Text:            piece,
			SequenceIndex:   i,
			TotalInGroup:    len(pieces),
			CreatedAt:       now,
		})
	}
	return chunks
}

// embedAndStore embeds every chunk and upserts the batch. Returns the
// failed step for DLQ attribution. Synchronous batch and thread calls
// arrive on the bare request context, so the job timeout is applied
// here; a hung embedding call cannot block a request forever.
func (s *IngestService) embedAndStore(ctx context.Context, chunks []domain.Chunk) (domain.FailedStep, error) {
	ctx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return domain.StepEmbedding, fmt.Errorf("%w: %v", domain.ErrEmbeddingFailed, err)
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	if err := s.store.UpsertChunks(ctx, chunks); err != nil {
		return domain.StepStore, fmt.Errorf("%w: %v", domain.ErrStoreFailed, err)
	}
	return "", nil
}

func (s *IngestService) deadLetter(ctx context.Context, unit domain.ContentUnit, payload json.RawMessage, step domain.FailedStep, cause error) {
	telemetry.CaptureError(ctx, cause)
	entry := domain.NewDeadLetterEntry(unit.UnitID, payload, step, cause.Error())
	if err := s.deadLetters.Append(ctx, entry); err != nil {
		log.Printf("Error dead-lettering unit %s: %v", unit.UnitID, err)
	}
	if err := s.ledger.Release(ctx, unit.UnitID); err != nil {
		log.Printf("Error releasing unit %s: %v", unit.UnitID, err)
	}
}

// deadLetterAttachment records one attachment's failure without touching
// the unit's claim: the unit keeps processing on its recovered text.
func (s *IngestService) deadLetterAttachment(ctx context.Context, unit domain.ContentUnit, ref domain.AttachmentRef, cause error) {
	telemetry.CaptureError(ctx, cause)
	reason := fmt.Sprintf("attachment %s: %v", ref.URL, cause)
	entry := domain.NewDeadLetterEntry(unit.UnitID, EncodeUnitRequest(unit), domain.StepExtraction, reason)
	if err := s.deadLetters.Append(ctx, entry); err != nil {
		log.Printf("Error dead-lettering attachment for unit %s: %v", unit.UnitID, err)
	}
}

// Wait blocks until every queued ingestion job has finished. Called on
// shutdown so accepted units are not dropped mid-pipeline.
func (s *IngestService) Wait() {
	s.wg.Wait()
}

// Close drains the queue and releases the worker pool.
func (s *IngestService) Close() {
	s.Wait()
	s.pool.Release()
}

func chunkID(unitIDs []string, seq int) string {
	sum := sha256.Sum256([]byte(strings.Join(unitIDs, "|")))
	return fmt.Sprintf("%x-%d", sum[:8], seq)
}
