package firewall

import "fmt"

// VerdictEngine determines the final verdict from every upstream check's
// outcome. The priority ladder below is the single most important
// invariant in the firewall: governance rules are evaluated first and
// override every other signal, no exceptions.
type VerdictEngine struct {
	riskLow    float64
	riskMedium float64
	riskHigh   float64
}

// NewVerdictEngine returns a VerdictEngine using the spec-mandated risk
// thresholds.
func NewVerdictEngine() *VerdictEngine {
	return &VerdictEngine{
		riskLow:    RiskThresholdLow,
		riskMedium: RiskThresholdMedium,
		riskHigh:   RiskThresholdHigh,
	}
}

// DetermineVerdict runs the priority ladder and returns the verdict, its
// short reason, a longer explanation, the policies applied in reaching it,
// and an optional escalation reason for human reviewers.
func (v *VerdictEngine) DetermineVerdict(
	riskScore float64,
	evidencePassed bool,
	rulesPassed bool,
	confidenceAligned bool,
	intendedAction IntendedAction,
	confidence float64,
	claims []Claim,
	highImpactReviewRequired bool,
	highImpactReviewReason string,
	governanceReviewRequired bool,
	governanceReason string,
) (Verdict, string, string, []string, *string) {
	var applied []string
	var escalation *string

	// Priority 0: governance rules override everything.
	if governanceReviewRequired {
		applied = append(applied, "mandatory_governance_review")
		escalation = &governanceReason
		explanation := fmt.Sprintf(
			"This %s action requires mandatory human review due to governance policy. "+
				"This requirement cannot be overridden by high confidence, evidence, or low risk scores. %s",
			intendedAction, governanceReason,
		)
		return VerdictRequireHumanReview, "Governance rule: mandatory human review required", explanation, applied, escalation
	}

	// Priority 1: safety rules.
	if !rulesPassed {
		applied = append(applied, "safety_rules")
		explanation := fmt.Sprintf(
			"Blocked because the output contains unsafe patterns or harmful actions that violate "+
				"safety rules. The %s action cannot proceed.", intendedAction,
		)
		return VerdictBlock, "Safety rules violated - output contains unsafe patterns or harmful actions", explanation, applied, escalation
	}

	// Priority 2: critical risk on a high-impact action.
	if riskScore >= v.riskHigh && HighImpactActions[intendedAction] {
		applied = append(applied, "high_risk_block")
		explanation := fmt.Sprintf(
			"Blocked because the risk score (%.2f) is critical for a high-impact action (%s). "+
				"The system cannot proceed without human oversight.", riskScore, intendedAction,
		)
		return VerdictBlock, fmt.Sprintf("Critical risk score (%.2f) for high-impact action (%s)", riskScore, intendedAction), explanation, applied, escalation
	}

	// Priority 3: evidence gate.
	if !evidencePassed {
		applied = append(applied, "evidence_requirement")
		factualCount := 0
		for _, c := range claims {
			if c.IsFactual {
				factualCount++
			}
		}
		if riskScore >= v.riskMedium {
			explanation := fmt.Sprintf(
				"Blocked because the model expressed %.2f confidence in %d factual claim(s) without "+
					"providing evidence, violating grounding rules. Additionally, the risk score (%.2f) "+
					"exceeds the medium threshold.", confidence, factualCount, riskScore,
			)
			return VerdictBlock, "High confidence factual claims without evidence and medium+ risk", explanation, applied, escalation
		}
		explanation := fmt.Sprintf(
			"Requires evidence because the model expressed %.2f confidence in %d factual claim(s) "+
				"without providing supporting sources. Evidence must be provided before proceeding.",
			confidence, factualCount,
		)
		return VerdictRequireEvidence, "High confidence factual claims require evidence", explanation, applied, escalation
	}

	// Priority 4: risk-based review.
	if riskScore >= v.riskMedium {
		applied = append(applied, "risk_based_review")
		if HighImpactActions[intendedAction] {
			reason := fmt.Sprintf("Risk score (%.2f) is medium-high for high-impact action (%s)", riskScore, intendedAction)
			escalation = &reason
			explanation := fmt.Sprintf(
				"Requires human review because the risk score (%.2f) is medium-high for a high-impact "+
					"action (%s). A human must approve before proceeding.", riskScore, intendedAction,
			)
			return VerdictRequireHumanReview, fmt.Sprintf("Medium-high risk (%.2f) for high-impact action", riskScore), explanation, applied, escalation
		}
		reason := fmt.Sprintf("Risk score (%.2f) exceeds medium threshold", riskScore)
		escalation = &reason
		explanation := fmt.Sprintf(
			"Requires human review because the risk score (%.2f) exceeds the medium threshold. "+
				"A human must review the output before it can proceed.", riskScore,
		)
		return VerdictRequireHumanReview, fmt.Sprintf("Medium-high risk score (%.2f) requires review", riskScore), explanation, applied, escalation
	}

	// Priority 5: confidence alignment. The Evidence Override Rule: when
	// evidence is present, a misalignment is a warning only and falls
	// through to the next priority instead of blocking.
	if !confidenceAligned && !evidencePassed {
		applied = append(applied, "confidence_alignment_check")
		if riskScore >= v.riskMedium {
			reason := "Confidence alignment issues detected with medium+ risk and no evidence"
			escalation = &reason
			explanation := fmt.Sprintf(
				"Requires human review because confidence alignment issues were detected (confidence %.2f "+
					"does not match claim characteristics) and the risk score (%.2f) is medium or higher. "+
					"Evidence is also missing.", confidence, riskScore,
			)
			return VerdictRequireHumanReview, "Confidence alignment issues with medium+ risk and no evidence", explanation, applied, escalation
		}
		explanation := fmt.Sprintf(
			"Requires evidence because confidence alignment issues were detected. The model's confidence "+
				"(%.2f) does not align with the characteristics of the claims.", confidence,
		)
		return VerdictRequireEvidence, "Confidence alignment issues detected", explanation, applied, escalation
	}

	// Priority 6: high-impact action policy, checked before the default allow.
	if highImpactReviewRequired {
		applied = append(applied, "high_impact_policy")
		reason := highImpactReviewReason
		escalation = &reason
		explanation := fmt.Sprintf(
			"High-impact action requires human review due to insufficient confidence or evidence. %s",
			highImpactReviewReason,
		)
		return VerdictRequireHumanReview, "High-impact action requires human review", explanation, applied, escalation
	}

	// Default: allow, distinguishing low risk from merely acceptable risk.
	evidenceOverride := !confidenceAligned && evidencePassed
	if riskScore < v.riskLow {
		applied = append(applied, "low_risk_allow")
		var explanation string
		if evidenceOverride {
			explanation = fmt.Sprintf(
				"Allowed despite confidence misalignment because supporting evidence was provided. "+
					"The risk score (%.2f) is low and all critical checks passed.", riskScore,
			)
		} else {
			explanation = fmt.Sprintf(
				"Allowed because all checks passed and the risk score (%.2f) is low. The output meets "+
					"all safety and grounding requirements.", riskScore,
			)
		}
		return VerdictAllow, "All checks passed, low risk", explanation, applied, escalation
	}

	applied = append(applied, "acceptable_risk_allow")
	var explanation string
	if evidenceOverride {
		explanation = fmt.Sprintf(
			"Allowed despite confidence misalignment because supporting evidence was provided. "+
				"The risk score (%.2f) is acceptable for the %s action.", riskScore, intendedAction,
		)
	} else {
		explanation = fmt.Sprintf(
			"Allowed because all checks passed. The risk score (%.2f) is acceptable for the %s action.",
			riskScore, intendedAction,
		)
	}
	return VerdictAllow, fmt.Sprintf("All checks passed, acceptable risk (%.2f)", riskScore), explanation, applied, escalation
}

// BuildDetails assembles the diagnostic payload attached to a Response.
func (v *VerdictEngine) BuildDetails(
	claims []Claim,
	riskScore float64,
	evidencePassed bool,
	rulesPassed bool,
	confidenceAligned bool,
	checkResults []CheckResult,
	sources []string,
) map[string]interface{} {
	factualCount := 0
	claimDetails := make([]map[string]interface{}, len(claims))
	for i, c := range claims {
		if c.IsFactual {
			factualCount++
		}
		claimDetails[i] = map[string]interface{}{
			"text":       c.Text,
			"is_factual": c.IsFactual,
			"confidence": c.Confidence,
		}
	}

	checkResultDetails := make([]map[string]interface{}, len(checkResults))
	for i, cr := range checkResults {
		checkResultDetails[i] = map[string]interface{}{
			"check_name": cr.Name,
			"passed":     cr.Passed,
			"reason":     cr.Reason,
		}
	}

	result := func(passed bool) string {
		if passed {
			return "PASS"
		}
		return "FAIL"
	}

	return map[string]interface{}{
		"claims":             claimDetails,
		"claim_count":        len(claims),
		"factual_claim_count": factualCount,
		"risk_score":         riskScore,
		"risk_level":         string(Level(riskScore)),
		"checks": map[string]interface{}{
			"evidence":              map[string]interface{}{"passed": evidencePassed, "result": result(evidencePassed)},
			"rules":                 map[string]interface{}{"passed": rulesPassed, "result": result(rulesPassed)},
			"confidence_alignment":  map[string]interface{}{"passed": confidenceAligned, "result": result(confidenceAligned)},
		},
		"check_results": checkResultDetails,
		"sources": map[string]interface{}{
			"count":    len(sources),
			"provided": len(sources) > 0,
		},
	}
}
