// Package chunk turns normalized text into bounded, overlapping windows
// suitable for embedding, and groups raw message sequences by
// conversational locality before sanitization.
package chunk

import "github.com/vita-labs/recallai/internal/domain"

// Splitter produces length-bounded pieces with a fixed overlap between
// adjacent pieces for context continuity.
type Splitter struct {
	maxLength int
	overlap   int
}

// NewSplitter creates a Splitter. MaxLength must exceed overlap, otherwise
// the split loop could never advance.
func NewSplitter(maxLength, overlap int) (*Splitter, error) {
	if maxLength <= 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "max length must be positive")
	}
	if overlap < 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "overlap cannot be negative")
	}
	if maxLength <= overlap {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "max length must be greater than overlap")
	}
	return &Splitter{maxLength: maxLength, overlap: overlap}, nil
}

// Split cuts text into pieces of at most maxLength characters. Piece i+1
// begins overlap characters before piece i ends; the final piece may be
// shorter than maxLength. Empty text yields no pieces.
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	pieces := make([]string, 0, len(runes)/(s.maxLength-s.overlap)+1)
	start := 0
	for start < len(runes) {
		end := start + s.maxLength
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
		if end == len(runes) {
			break
		}
		// maxLength > overlap guarantees start strictly advances.
		start = end - s.overlap
	}
	return pieces
}
