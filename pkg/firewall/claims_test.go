package firewall

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClaimExtractor_SplitsSentencesAndClassifies(t *testing.T) {
	e := NewClaimExtractor()
	claims := e.Extract("The company was founded in 1999. I feel great today.", 0.8)

	assert.Len(t, claims, 2)
	assert.True(t, claims[0].IsFactual)
	assert.False(t, claims[1].IsFactual)
	for _, c := range claims {
		assert.Equal(t, 0.8, c.Confidence)
	}
}

func TestClaimExtractor_ShortSentencesDiscarded(t *testing.T) {
	e := NewClaimExtractor()
	claims := e.Extract("Yes. No way. This one has enough words to count.", 0.5)

	for _, c := range claims {
		assert.GreaterOrEqual(t, len(strings.Fields(c.Text)), 3)
	}
}

func TestClaimExtractor_EmptyInputReturnsEmptySlice(t *testing.T) {
	e := NewClaimExtractor()
	claims := e.Extract("   ", 0.5)
	assert.Empty(t, claims)
}

func TestClaimExtractor_DigitFallbackMarksFactual(t *testing.T) {
	e := NewClaimExtractor()
	// Matches no factual pattern, but contains a digit, so Extract's
	// fallback still classifies it as factual.
	claims := e.Extract("My lucky number happens to be 7 today.", 0.5)
	if assert.Len(t, claims, 1) {
		assert.True(t, claims[0].IsFactual)
	}
}
