package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanRedactsPIIAndStripsNoise(t *testing.T) {
	input := "Contact me at a@b.com or 123-45-6789 \U0001F44D +1"
	clean, redactions := Clean(input)

	assert.NotContains(t, clean, "a@b.com")
	assert.NotContains(t, clean, "123-45-6789")
	assert.NotContains(t, clean, "\U0001F44D")
	assert.NotContains(t, clean, "+1")
	assert.Equal(t, 2, redactions)
	assert.Equal(t, 2, strings.Count(clean, RedactedToken))
}

func TestCleanEmptyInput(t *testing.T) {
	clean, redactions := Clean("")
	assert.Equal(t, "", clean)
	assert.Equal(t, 0, redactions)
}

func TestCleanRemovesBotCommandPrefix(t *testing.T) {
	clean, _ := Clean("/ask what is the deploy process?")
	assert.Equal(t, "what is the deploy process?", clean)
}

func TestCleanKeepsCommandLikeTokensMidSentence(t *testing.T) {
	clean, _ := Clean("the path is /usr/bin")
	assert.Equal(t, "the path is /usr/bin", clean)
}

func TestCleanRedacts16DigitRuns(t *testing.T) {
	clean, redactions := Clean("card 4111111111111111 on file")
	assert.Equal(t, 1, redactions)
	assert.NotContains(t, clean, "4111111111111111")
}

func TestCleanRemovesShortcodeEmoji(t *testing.T) {
	clean, _ := Clean("shipped :tada: finally")
	assert.Equal(t, "shipped finally", clean)
}

func TestCleanCollapsesWhitespace(t *testing.T) {
	clean, _ := Clean("  hello\t\n  world  ")
	assert.Equal(t, "hello world", clean)
}

func TestCleanRemovesAcknowledgements(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"thanks", "thanks for the update", "for the update"},
		{"thank you", "Thank you everyone", "everyone"},
		{"plus one", "+1 agreed", "agreed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clean, _ := Clean(tt.input)
			assert.Equal(t, tt.want, clean)
		})
	}
}
