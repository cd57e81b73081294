package firewall

// ConfidenceAnalyzer exposes threshold tests and confidence/claim-shape
// alignment checks.
type ConfidenceAnalyzer struct {
	EvidenceThreshold float64
	HighThreshold     float64
	LowThreshold      float64
}

// NewConfidenceAnalyzer returns an analyzer using the spec-mandated
// thresholds (§4.2).
func NewConfidenceAnalyzer() *ConfidenceAnalyzer {
	return &ConfidenceAnalyzer{
		EvidenceThreshold: ConfidenceThresholdEvidenceRequired,
		HighThreshold:     ConfidenceThresholdHigh,
		LowThreshold:      ConfidenceThresholdLow,
	}
}

// RequiresEvidence reports whether confidence exceeds the evidence threshold.
func (c *ConfidenceAnalyzer) RequiresEvidence(confidence float64) bool {
	return confidence > c.EvidenceThreshold
}

// IsHigh reports whether confidence meets or exceeds the high threshold.
func (c *ConfidenceAnalyzer) IsHigh(confidence float64) bool {
	return confidence >= c.HighThreshold
}

// IsLow reports whether confidence is below the low threshold.
func (c *ConfidenceAnalyzer) IsLow(confidence float64) bool {
	return confidence < c.LowThreshold
}

// Uncertainty is the complement of confidence.
func (c *ConfidenceAnalyzer) Uncertainty(confidence float64) float64 {
	return 1.0 - confidence
}

// ValidateAlignment fails iff some claim is factual with confidence above
// the evidence threshold AND the overall confidence also exceeds it. An
// empty claim list passes trivially.
func (c *ConfidenceAnalyzer) ValidateAlignment(overallConfidence float64, claims []Claim) (bool, string) {
	if len(claims) == 0 {
		return true, "No claims to validate"
	}

	hasHighConfidenceFactual := false
	for _, claim := range claims {
		if claim.IsFactual && claim.Confidence > c.EvidenceThreshold {
			hasHighConfidenceFactual = true
			break
		}
	}

	if hasHighConfidenceFactual && overallConfidence > c.EvidenceThreshold {
		return false, "High confidence factual claims detected"
	}

	return true, "Confidence alignment validated"
}
