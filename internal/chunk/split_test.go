package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSplitterValidation(t *testing.T) {
	tests := []struct {
		name      string
		maxLength int
		overlap   int
		wantErr   bool
	}{
		{"valid", 4000, 200, false},
		{"zero overlap", 100, 0, false},
		{"zero max", 0, 0, true},
		{"negative overlap", 100, -1, true},
		{"overlap equals max", 200, 200, true},
		{"overlap exceeds max", 200, 300, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSplitter(tt.maxLength, tt.overlap)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSplitLengthAndOverlap(t *testing.T) {
	s, err := NewSplitter(4000, 200)
	require.NoError(t, err)

	text := strings.Repeat("a1b2c", 1900) // 9500 chars
	require.Len(t, text, 9500)

	pieces := s.Split(text)
	require.Len(t, pieces, 3)

	for _, p := range pieces {
		assert.LessOrEqual(t, len(p), 4000)
	}
	for i := 0; i < len(pieces)-1; i++ {
		suffix := pieces[i][len(pieces[i])-200:]
		prefix := pieces[i+1][:200]
		assert.Equal(t, suffix, prefix, "adjacent pieces %d/%d must share overlap", i, i+1)
	}
}

func TestSplitShortTextSinglePiece(t *testing.T) {
	s, err := NewSplitter(4000, 200)
	require.NoError(t, err)

	pieces := s.Split("hello world")
	require.Len(t, pieces, 1)
	assert.Equal(t, "hello world", pieces[0])
}

func TestSplitEmptyText(t *testing.T) {
	s, err := NewSplitter(4000, 200)
	require.NoError(t, err)

	assert.Empty(t, s.Split(""))
}

func TestSplitExactBoundary(t *testing.T) {
	s, err := NewSplitter(100, 10)
	require.NoError(t, err)

	text := strings.Repeat("x", 100)
	pieces := s.Split(text)
	require.Len(t, pieces, 1)
	assert.Equal(t, text, pieces[0])
}

func TestSplitReassemblesOriginal(t *testing.T) {
	s, err := NewSplitter(50, 10)
	require.NoError(t, err)

	text := strings.Repeat("abcdefghij", 23)
	pieces := s.Split(text)
	require.NotEmpty(t, pieces)

	rebuilt := pieces[0]
	for _, p := range pieces[1:] {
		rebuilt += p[10:]
	}
	assert.Equal(t, text, rebuilt)
}
