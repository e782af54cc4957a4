package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vita-labs/recallai/internal/domain"
	"github.com/vita-labs/recallai/internal/telemetry"
)

// QueryEmbedder embeds a single question.
type QueryEmbedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Searcher returns the nearest stored chunks for an embedding.
type Searcher interface {
	SearchNearest(ctx context.Context, embedding []float32, limit int) ([]*domain.ChunkCandidate, error)
}

// Generator produces an answer from retrieved context.
type Generator interface {
	GenerateAnswer(ctx context.Context, contextText, question string) (string, error)
}

// QueryRequest carries one retrieval question with the requester's
// permission context.
type QueryRequest struct {
	Question       string
	RequesterID    string
	RequesterRoles []string
	ChannelID      string
	TopK           int
}

const (
	defaultTopK = 5

	// defaultCandidateMultiplier oversizes the vector search so that
	// permission filtering still leaves a full top-k to rank.
	defaultCandidateMultiplier = 4
)

// QueryService answers questions from the stored knowledge base. The
// candidate pool is fetched oversized, filtered by the requester's
// permissions, re-ranked, and only then handed to the generation step.
type QueryService struct {
	embedder    QueryEmbedder
	searcher    Searcher
	generator   Generator
	scorer      RelevanceScorer
	multiplier  int
	guildID     string
	callTimeout time.Duration
}

type QueryConfig struct {
	Scorer              RelevanceScorer
	CandidateMultiplier int

	// GuildID anchors citation links. Empty renders @me links, which
	// still resolve in the Discord client.
	GuildID string

	// CallTimeout bounds each external call (embedding, vector search,
	// generation). Zero leaves the request context as the only bound.
	CallTimeout time.Duration
}

func NewQueryService(embedder QueryEmbedder, searcher Searcher, generator Generator, cfg QueryConfig) *QueryService {
	scorer := cfg.Scorer
	if scorer == nil {
		scorer = LexicalScorer{}
	}
	multiplier := cfg.CandidateMultiplier
	if multiplier <= 0 {
		multiplier = defaultCandidateMultiplier
	}
	return &QueryService{
		embedder:    embedder,
		searcher:    searcher,
		generator:   generator,
		scorer:      scorer,
		multiplier:  multiplier,
		guildID:     cfg.GuildID,
		callTimeout: cfg.CallTimeout,
	}
}

// callCtx bounds one external call when a timeout is configured.
func (s *QueryService) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.callTimeout)
}

// Answer runs the retrieval pipeline for one question. When nothing
// visible survives filtering it returns the fixed fallback answer with
// zero confidence and never calls the generation step.
func (s *QueryService) Answer(ctx context.Context, req QueryRequest) (*domain.Answer, error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryService.Answer", telemetry.SpanAttributes{
		ChannelID: req.ChannelID,
		Operation: "query",
	})
	defer span.End()

	if strings.TrimSpace(req.Question) == "" {
		return nil, domain.ErrMissingQuestion
	}
	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	embedCtx, cancel := s.callCtx(ctx)
	embedding, err := s.embedder.GenerateEmbedding(embedCtx, req.Question)
	cancel()
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEmbedding, "embedding question", err)
	}

	searchCtx, cancel := s.callCtx(ctx)
	candidates, err := s.searcher.SearchNearest(searchCtx, embedding, topK*s.multiplier)
	cancel()
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStore, "searching chunks", err)
	}

	visible := FilterVisible(candidates, req.RequesterRoles, req.ChannelID)
	if len(visible) == 0 {
		return domain.EmptyAnswer(), nil
	}

	// Candidates arrive ordered by vector distance, so the head carries
	// the raw confidence before re-ranking reshuffles.
	confidence := visible[0].Score

	Rerank(s.scorer, req.Question, visible)
	if len(visible) > topK {
		visible = visible[:topK]
	}

	genCtx, cancel := s.callCtx(ctx)
	text, err := s.generator.GenerateAnswer(genCtx, s.buildContext(visible), req.Question)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	return &domain.Answer{
		Text:       text,
		Citations:  s.buildCitations(visible),
		Confidence: confidence,
	}, nil
}

// buildContext labels each chunk with its leading source ID so the
// generation step can cite messages.
func (s *QueryService) buildContext(candidates []*domain.ChunkCandidate) string {
	lines := make([]string, 0, len(candidates))
	for _, c := range candidates {
		sourceID := ""
		if len(c.SourceUnitIDs) > 0 {
			sourceID = c.SourceUnitIDs[0]
		}
		lines = append(lines, fmt.Sprintf("[%s] %s", sourceID, c.Text))
	}
	return strings.Join(lines, "\n\n")
}

// buildCitations returns one citation per distinct source unit, in
// ranked order.
func (s *QueryService) buildCitations(candidates []*domain.ChunkCandidate) []domain.Citation {
	seen := make(map[string]struct{})
	citations := make([]domain.Citation, 0, len(candidates))
	for _, c := range candidates {
		for _, unitID := range c.SourceUnitIDs {
			if _, ok := seen[unitID]; ok {
				continue
			}
			seen[unitID] = struct{}{}
			citations = append(citations, domain.Citation{
				UnitID:    unitID,
				ChannelID: c.ChannelID,
				URL:       s.citationURL(c.ChannelID, unitID),
			})
		}
	}
	return citations
}

func (s *QueryService) citationURL(channelID, unitID string) string {
	guild := s.guildID
	if guild == "" {
		guild = "@me"
	}
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guild, channelID, unitID)
}
