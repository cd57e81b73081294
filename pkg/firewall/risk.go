package firewall

import "log/slog"

// RiskScorer combines uncertainty, action impact, evidence gaps and claim
// volume into a single risk score in [0, 1].
type RiskScorer struct {
	confidence *ConfidenceAnalyzer
	log        *slog.Logger
}

// NewRiskScorer returns a ready-to-use RiskScorer.
func NewRiskScorer(log *slog.Logger) *RiskScorer {
	if log == nil {
		log = slog.Default()
	}
	return &RiskScorer{confidence: NewConfidenceAnalyzer(), log: log}
}

// CalculateRiskScore computes risk = uncertainty × action_impact ×
// evidence_factor × claim_factor, clamped to [0, 1].
func (r *RiskScorer) CalculateRiskScore(confidence float64, intendedAction IntendedAction, claims []Claim, hasEvidence bool) float64 {
	return r.CalculateRiskScoreWithMultiplier(confidence, intendedAction, claims, hasEvidence, 1.0)
}

// CalculateRiskScoreWithMultiplier is CalculateRiskScore with the action
// impact scaled by actionImpactMultiplier (values <= 0 are ignored), letting
// a policy pack's per-action weighting reach the score.
func (r *RiskScorer) CalculateRiskScoreWithMultiplier(confidence float64, intendedAction IntendedAction, claims []Claim, hasEvidence bool, actionImpactMultiplier float64) float64 {
	uncertainty := r.confidence.Uncertainty(confidence)

	actionImpact, ok := ActionImpact[intendedAction]
	if !ok {
		actionImpact = DefaultActionImpact
	}
	if actionImpactMultiplier > 0 {
		actionImpact *= actionImpactMultiplier
	}

	evidenceFactor := 1.0
	if !hasEvidence {
		for _, c := range claims {
			if c.IsFactual && c.Confidence > ConfidenceThresholdEvidenceRequired {
				evidenceFactor = 1.5
				break
			}
		}
	}

	baseRisk := uncertainty * actionImpact * evidenceFactor

	claimFactor := 1.0 + float64(len(claims))*0.05
	if claimFactor > 1.3 {
		claimFactor = 1.3
	}

	riskScore := clamp01(baseRisk * claimFactor)

	r.log.Info("risk score calculated",
		"risk_score", riskScore,
		"uncertainty", uncertainty,
		"impact", actionImpact,
		"evidence_factor", evidenceFactor,
		"claim_factor", claimFactor,
		"action_impact_multiplier", actionImpactMultiplier,
	)

	return riskScore
}

// GetRiskLevel buckets a score into a human label (alias of Level, kept to
// mirror the scorer's own vocabulary at call sites).
func (r *RiskScorer) GetRiskLevel(riskScore float64) RiskLevel {
	return Level(riskScore)
}
