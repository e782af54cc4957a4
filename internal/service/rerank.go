package service

import (
	"sort"
	"strings"

	"github.com/vita-labs/recallai/internal/domain"
)

// RelevanceScorer rescores retrieved candidates against the question.
// The vector score got them into the pool; the scorer decides the final
// order within it.
type RelevanceScorer interface {
	Score(question string, candidate *domain.ChunkCandidate) float64
}

// LexicalScorer ranks by token overlap between the question and the
// chunk text, blended with the vector score so ties break toward the
// semantically closer chunk.
type LexicalScorer struct{}

func (LexicalScorer) Score(question string, candidate *domain.ChunkCandidate) float64 {
	qTokens := tokenize(question)
	if len(qTokens) == 0 {
		return candidate.Score
	}
	cTokens := make(map[string]struct{})
	for _, t := range tokenize(candidate.Text) {
		cTokens[t] = struct{}{}
	}
	matched := 0
	for _, t := range qTokens {
		if _, ok := cTokens[t]; ok {
			matched++
		}
	}
	overlap := float64(matched) / float64(len(qTokens))
	return 0.7*overlap + 0.3*candidate.Score
}

// Rerank sorts candidates by scorer score, descending. Stable so equal
// scores keep their vector-rank order.
func Rerank(scorer RelevanceScorer, question string, candidates []*domain.ChunkCandidate) {
	scores := make(map[*domain.ChunkCandidate]float64, len(candidates))
	for _, c := range candidates {
		scores[c] = scorer.Score(question, c)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return scores[candidates[i]] > scores[candidates[j]]
	})
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 2 {
			out = append(out, f)
		}
	}
	return out
}
