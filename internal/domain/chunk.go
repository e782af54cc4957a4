package domain

import "time"

// Chunk is a bounded slice of normalized text derived from one or more
// content units. It is the unit of access control, embedding, and storage.
type Chunk struct {
	ChunkID         string
	SourceUnitIDs   []string // provenance, preserves merge order
	ChannelID       string
	ThreadID        string
	AuthorID        string
	Roles           []string
	AllowedChannels []string
	Text            string
	SequenceIndex   int
	TotalInGroup    int
	CreatedAt       time.Time
	Embedding       []float32
}

// ValidateChunk validates a Chunk instance
func ValidateChunk(c *Chunk, maxLen int) error {
	if c == nil {
		return NewDomainError(ErrCodeValidation, "chunk cannot be nil")
	}
	if c.ChunkID == "" {
		return NewDomainError(ErrCodeValidation, "chunk ID is required")
	}
	if len(c.SourceUnitIDs) == 0 {
		return NewDomainError(ErrCodeValidation, "chunk must reference at least one source unit")
	}
	if maxLen > 0 && len([]rune(c.Text)) > maxLen {
		return NewDomainError(ErrCodeValidation, "chunk text exceeds max length")
	}
	return nil
}

// ChunkCandidate is a chunk returned from a nearest-neighbor query together
// with its similarity score.
type ChunkCandidate struct {
	Chunk
	Score float64
}
