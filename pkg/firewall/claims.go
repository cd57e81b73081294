package firewall

import (
	"regexp"
	"strings"
)

// factualPatterns are the complete, byte-for-byte specification of what
// makes a sentence "factual" (spec §4.1). The pattern list is deliberately
// coarse — richer NLP classification is a non-goal.
var factualPatterns = []string{
	`\b(?:was|were|is|are|has|have|had)\s+(?:founded|created|established|invented|discovered|made|built)`,
	`\b(?:in|on|at|during)\s+\d{4}`,
	`\b(?:founded|created|established|invented|discovered)\s+(?:in|on|at)`,
	`\b(?:makes|produces|manufactures|sells|owns)`,
	`\b(?:according to|based on|per|as stated in)`,
	`\b(?:the|a|an)\s+\w+\s+(?:is|was|are|were)`,
}

var factualRegex = regexp.MustCompile("(?i)(" + strings.Join(factualPatterns, ")|(") + ")")

// sentenceDelimiter splits output on sentence terminators followed by
// whitespace or end of string (spec §4.1).
var sentenceDelimiter = regexp.MustCompile(`[.!?]+(?:\s+|$)`)

var digitRegex = regexp.MustCompile(`\d+`)

// ClaimExtractor splits an output into sentences and classifies each as
// factual or non-factual. It is pure and side-effect-free.
type ClaimExtractor struct{}

// NewClaimExtractor returns a ready-to-use ClaimExtractor.
func NewClaimExtractor() *ClaimExtractor {
	return &ClaimExtractor{}
}

// Extract parses text into Claims, each inheriting overallConfidence.
// Sentences with fewer than three whitespace-separated tokens are discarded.
func (e *ClaimExtractor) Extract(text string, overallConfidence float64) []Claim {
	if strings.TrimSpace(text) == "" {
		return []Claim{}
	}

	sentences := sentenceDelimiter.Split(text, -1)
	claims := make([]Claim, 0, len(sentences))
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if len(strings.Fields(s)) < 3 {
			continue
		}
		isFactual := e.IsFactualClaim(s)
		if !isFactual && digitRegex.MatchString(s) {
			isFactual = true
		}
		claims = append(claims, Claim{
			Text:       s,
			IsFactual:  isFactual,
			Confidence: overallConfidence,
		})
	}
	return claims
}

// IsFactualClaim reports whether a sentence matches any of the factual
// patterns in isolation (digit fallback is not applied here — see Extract).
func (e *ClaimExtractor) IsFactualClaim(text string) bool {
	return factualRegex.MatchString(text)
}
