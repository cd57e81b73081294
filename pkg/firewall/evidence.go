package firewall

import (
	"fmt"
	"strings"
)

// EvidenceChecker verifies that factual claims carry enough source backing.
type EvidenceChecker struct {
	EvidenceThreshold float64
}

// NewEvidenceChecker returns a checker using the spec-mandated evidence
// confidence threshold (§4.2).
func NewEvidenceChecker() *EvidenceChecker {
	return &EvidenceChecker{EvidenceThreshold: ConfidenceThresholdEvidenceRequired}
}

// Check verifies that claims needing evidence (factual, confidence above
// threshold) are backed by enough non-empty sources. Returns
// (passed, reason, failed claim texts).
func (e *EvidenceChecker) Check(claims []Claim, sources []string) (bool, string, []string) {
	return e.CheckAt(claims, sources, e.EvidenceThreshold)
}

// CheckAt is Check with an explicit confidence threshold, letting a policy
// pack or active policy mode override e.EvidenceThreshold per request.
func (e *EvidenceChecker) CheckAt(claims []Claim, sources []string, threshold float64) (bool, string, []string) {
	highConfidenceFactual := factualAboveThreshold(claims, threshold)
	if len(highConfidenceFactual) == 0 {
		return true, "No high-confidence factual claims requiring evidence", nil
	}

	validSources := nonEmptySources(sources)
	if len(validSources) == 0 {
		return false, "High confidence factual claims require evidence but no sources provided", claimTexts(highConfidenceFactual)
	}

	minSources := len(highConfidenceFactual) / 3
	if minSources < 1 {
		minSources = 1
	}

	if len(validSources) < minSources {
		reason := fmt.Sprintf(
			"Insufficient sources: %d provided, %d required for %d factual claims",
			len(validSources), minSources, len(highConfidenceFactual),
		)
		return false, reason, claimTexts(highConfidenceFactual)
	}

	reason := fmt.Sprintf("Evidence check passed: %d sources for %d factual claims", len(validSources), len(highConfidenceFactual))
	return true, reason, nil
}

// ValidateSourceQuality reports advisory, non-dispositive quality issues:
// empty sources and sources shorter than five characters.
func (e *EvidenceChecker) ValidateSourceQuality(sources []string) (bool, string) {
	if len(sources) == 0 {
		return true, "No sources to validate"
	}

	emptyCount := 0
	var tooShort []string
	for _, s := range sources {
		if strings.TrimSpace(s) == "" {
			emptyCount++
			continue
		}
		if len(strings.TrimSpace(s)) < 5 {
			tooShort = append(tooShort, s)
		}
	}

	if emptyCount > 0 {
		return false, fmt.Sprintf("%d empty source(s) detected", emptyCount)
	}
	if len(tooShort) > 0 {
		return false, fmt.Sprintf("%d source(s) are too short to be meaningful", len(tooShort))
	}
	return true, "Source quality validated"
}

func factualAboveThreshold(claims []Claim, threshold float64) []Claim {
	var out []Claim
	for _, c := range claims {
		if c.IsFactual && c.Confidence > threshold {
			out = append(out, c)
		}
	}
	return out
}

func nonEmptySources(sources []string) []string {
	var out []string
	for _, s := range sources {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func claimTexts(claims []Claim) []string {
	out := make([]string, len(claims))
	for i, c := range claims {
		out[i] = c.Text
	}
	return out
}
