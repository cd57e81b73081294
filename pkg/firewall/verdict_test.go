package firewall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetermineVerdict_GovernanceSupremacy(t *testing.T) {
	v := NewVerdictEngine()
	verdict, _, _, applied, escalation := v.DetermineVerdict(
		0.05, true, true, true, ActionAnswer, 0.1, nil,
		false, "", true, "governance says so",
	)
	assert.Equal(t, VerdictRequireHumanReview, verdict)
	assert.Contains(t, applied, "mandatory_governance_review")
	require.NotNil(t, escalation)
	assert.Equal(t, "governance says so", *escalation)
}

func TestDetermineVerdict_SafetySupremacyOverRisk(t *testing.T) {
	v := NewVerdictEngine()
	verdict, _, _, applied, _ := v.DetermineVerdict(
		0.0, true, false, true, ActionAnswer, 0.1, nil,
		false, "", false, "",
	)
	assert.Equal(t, VerdictBlock, verdict)
	assert.Contains(t, applied, "safety_rules")
}

func TestDetermineVerdict_EvidenceOverrideRule(t *testing.T) {
	v := NewVerdictEngine()
	// confidence_aligned=false but evidencePassed=true and risk is low:
	// must not block, and the misalignment must not reappear as a failed check
	// (the interceptor is responsible for omitting it from failedChecks; here
	// we assert the verdict itself never becomes BLOCK under this condition).
	verdict, _, _, _, _ := v.DetermineVerdict(
		0.1, true, true, false, ActionAnswer, 0.9, nil,
		false, "", false, "",
	)
	assert.NotEqual(t, VerdictBlock, verdict)
}

func TestDetermineVerdict_CriticalRiskHighImpactBlocks(t *testing.T) {
	v := NewVerdictEngine()
	verdict, _, _, applied, _ := v.DetermineVerdict(
		0.9, true, true, true, ActionTrade, 0.5, nil,
		false, "", false, "",
	)
	assert.Equal(t, VerdictBlock, verdict)
	assert.Contains(t, applied, "high_risk_block")
}

func TestDetermineVerdict_DefaultAllowLowVsAcceptableRisk(t *testing.T) {
	v := NewVerdictEngine()

	verdict, _, _, applied, _ := v.DetermineVerdict(
		0.1, true, true, true, ActionAnswer, 0.5, nil,
		false, "", false, "",
	)
	assert.Equal(t, VerdictAllow, verdict)
	assert.Contains(t, applied, "low_risk_allow")

	verdict, _, _, applied, _ = v.DetermineVerdict(
		0.45, true, true, true, ActionAnswer, 0.5, nil,
		false, "", false, "",
	)
	assert.Equal(t, VerdictAllow, verdict)
	assert.Contains(t, applied, "acceptable_risk_allow")
}

func TestBuildDetails_CountsClaimsAndChecks(t *testing.T) {
	v := NewVerdictEngine()
	claims := []Claim{
		{Text: "Paris is the capital of France", IsFactual: true, Confidence: 0.9},
		{Text: "I think it might rain", IsFactual: false, Confidence: 0.2},
	}
	checks := []CheckResult{{Name: "evidence", Passed: false, Reason: "no sources"}}

	details := v.BuildDetails(claims, 0.42, false, true, true, checks, nil)

	assert.Equal(t, 2, details["claim_count"])
	assert.Equal(t, 1, details["factual_claim_count"])
	assert.Equal(t, 0.42, details["risk_score"])
	assert.Equal(t, string(RiskMedium), details["risk_level"])
}
