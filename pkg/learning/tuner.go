package learning

import (
	"fmt"
	"log/slog"
)

// AdaptiveThresholds is the output of a Tuner pass: thresholds adjusted
// from their configured base values per observed false positive/negative
// pressure.
type AdaptiveThresholds struct {
	ConfidenceThreshold  float64 `json:"confidence_threshold"`
	RiskThresholdMedium  float64 `json:"risk_threshold_medium"`
	AdjustmentReason     string  `json:"adjustment_reason"`
}

// Tuner adapts firewall thresholds based on accumulated learning memory.
type Tuner struct {
	state   *State
	log     *slog.Logger
	enabled bool

	baseConfidenceThreshold float64
	baseRiskThresholdMedium float64

	minFalsePositivesForRelax int
	minFalseNegativesForStrict int
}

// NewTuner returns a Tuner reading from state. enabled mirrors config's
// ADAPTIVE_STRICTNESS switch.
func NewTuner(state *State, log *slog.Logger, enabled bool, baseConfidenceThreshold, baseRiskThresholdMedium float64, minFalsePositivesForRelax, minFalseNegativesForStrict int) *Tuner {
	if log == nil {
		log = slog.Default()
	}
	return &Tuner{
		state:                       state,
		log:                         log,
		enabled:                     enabled,
		baseConfidenceThreshold:     baseConfidenceThreshold,
		baseRiskThresholdMedium:     baseRiskThresholdMedium,
		minFalsePositivesForRelax:   minFalsePositivesForRelax,
		minFalseNegativesForStrict:  minFalseNegativesForStrict,
	}
}

// GetAdaptiveThresholds returns the base thresholds unchanged when adaptive
// strictness is disabled; otherwise nudges them by ±0.05 (clamped) based on
// observed false positive/negative counts and rates.
func (t *Tuner) GetAdaptiveThresholds() AdaptiveThresholds {
	if !t.enabled {
		return AdaptiveThresholds{
			ConfidenceThreshold: t.baseConfidenceThreshold,
			RiskThresholdMedium: t.baseRiskThresholdMedium,
		}
	}

	stats := t.state.GetStatistics()

	confidenceThreshold := t.baseConfidenceThreshold
	riskThreshold := t.baseRiskThresholdMedium

	relax := stats.FalsePositiveCount >= t.minFalsePositivesForRelax && stats.FalsePositiveRate > 0.2
	tighten := stats.FalseNegativeCount >= t.minFalseNegativesForStrict && stats.FalseNegativeRate > 0.1

	if relax {
		confidenceThreshold = min(0.8, confidenceThreshold+0.05)
		riskThreshold = min(0.8, riskThreshold+0.05)
		t.log.Info("relaxing thresholds due to false positives", "confidence_threshold", confidenceThreshold, "risk_threshold_medium", riskThreshold)
	}
	if tighten {
		confidenceThreshold = max(0.4, confidenceThreshold-0.05)
		riskThreshold = max(0.4, riskThreshold-0.05)
		t.log.Info("tightening thresholds due to false negatives", "confidence_threshold", confidenceThreshold, "risk_threshold_medium", riskThreshold)
	}

	return AdaptiveThresholds{
		ConfidenceThreshold: confidenceThreshold,
		RiskThresholdMedium: riskThreshold,
		AdjustmentReason:    adjustmentReason(stats, t.minFalsePositivesForRelax, t.minFalseNegativesForStrict),
	}
}

func adjustmentReason(stats Statistics, minFPForRelax, minFNForStrict int) string {
	switch {
	case stats.FalsePositiveCount >= minFPForRelax:
		return fmt.Sprintf("Relaxing due to %d false positives", stats.FalsePositiveCount)
	case stats.FalseNegativeCount >= minFNForStrict:
		return fmt.Sprintf("Tightening due to %d false negatives", stats.FalseNegativeCount)
	default:
		return "No adjustment needed"
	}
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
