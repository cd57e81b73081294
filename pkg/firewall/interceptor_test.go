package firewall

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInterceptor(t *testing.T, mode PolicyMode) *Interceptor {
	t.Helper()
	policy, err := NewPolicyManager(mode)
	require.NoError(t, err)
	return NewInterceptor(policy)
}

// S1: unsourced, high-confidence factual claims must trip the evidence gate.
func TestScenario_S1_UnsourcedFactualClaimsRequireEvidenceOrBlock(t *testing.T) {
	i := newTestInterceptor(t, PolicyGeneralAI)
	req := &Request{
		Output:         "The Eiffel Tower was built in 1889 and is located in London, England.",
		Confidence:     0.92,
		IntendedAction: "answer",
		Sources:        nil,
	}
	resp, err := i.Check(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, []Verdict{VerdictBlock, VerdictRequireEvidence}, resp.Verdict)
	assert.Contains(t, resp.FailedChecks, "evidence")
}

// S2: a low-confidence trade is still high-impact and governed; both fire.
func TestScenario_S2_TradeRequiresHumanReview(t *testing.T) {
	i := newTestInterceptor(t, PolicyGeneralAI)
	req := &Request{
		Output:         "Execute trade: BUY 50,000 shares of AAPL at market price immediately.",
		Confidence:     0.45,
		IntendedAction: "trade",
		Sources:        nil,
	}
	resp, err := i.Check(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, VerdictRequireHumanReview, resp.Verdict)
}

// S3: well-sourced, high-confidence factual claims should allow, and a false
// confidence_alignment must never surface as a failed check (Evidence
// Override Rule, Invariant 4).
func TestScenario_S3_SourcedClaimsAllowDespiteAlignmentFlag(t *testing.T) {
	i := newTestInterceptor(t, PolicyGeneralAI)
	req := &Request{
		Output:         "Python was created by Guido van Rossum and first released in 1991. It remains one of the most popular languages.",
		Confidence:     0.95,
		IntendedAction: "answer",
		Sources:        []string{"https://python.org/history", "https://wikipedia.org/python", "https://docs.python.org"},
	}
	resp, err := i.Check(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, VerdictAllow, resp.Verdict)
	assert.NotContains(t, resp.FailedChecks, "confidence_alignment")
}

// S4: high-confidence factual claim, no sources -> the evidence gate fails.
// With this action's low impact weight (0.2) the computed risk score stays
// under the medium threshold, so the evidence-gate branch resolves to
// REQUIRE_EVIDENCE rather than BLOCK (see DESIGN.md's "S4" note) - both are
// rejections that keep evidence in failed_checks, which is what matters.
func TestScenario_S4_HighConfidenceNoEvidenceRejects(t *testing.T) {
	i := newTestInterceptor(t, PolicyGeneralAI)
	req := &Request{
		Output:         "Apple was founded in 1976 and makes the iPhone.",
		Confidence:     0.9,
		IntendedAction: "answer",
		Sources:        nil,
	}
	resp, err := i.Check(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, []Verdict{VerdictBlock, VerdictRequireEvidence}, resp.Verdict)
	assert.Contains(t, resp.FailedChecks, "evidence")
}

// S5: low-confidence hedged opinion allows with low risk.
func TestScenario_S5_HedgedLowConfidenceAllowsLowRisk(t *testing.T) {
	i := newTestInterceptor(t, PolicyGeneralAI)
	req := &Request{
		Output:         "I think the market might go up next week, but I'm not sure.",
		Confidence:     0.3,
		IntendedAction: "answer",
		Sources:        nil,
	}
	resp, err := i.Check(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, VerdictAllow, resp.Verdict)
	assert.Less(t, resp.RiskScore, 0.5)
}

// S6: FINANCIAL_SERVICES mode makes even a sourced trade mandatory-review,
// and governance's applied policy name is surfaced.
func TestScenario_S6_FinancialServicesGovernanceOverridesEvidence(t *testing.T) {
	i := newTestInterceptor(t, PolicyFinancialServices)
	req := &Request{
		Output:         "Execute trade: BUY shares of AAPL based on strong earnings report.",
		Confidence:     0.95,
		IntendedAction: "trade",
		Sources:        []string{"https://example.com/earnings-report"},
	}
	resp, err := i.Check(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, VerdictRequireHumanReview, resp.Verdict)
	assert.Contains(t, resp.AppliedPolicies, "mandatory_governance_review")
}

// A policy pack that forces mandatory human review for "email" changes the
// verdict for an action that would otherwise sail through on low risk alone.
func TestScenario_PolicyPackOverrideForcesHumanReview(t *testing.T) {
	policy, err := NewPolicyManager(PolicyGeneralAI)
	require.NoError(t, err)

	original := policyModeTable[PolicyGeneralAI]
	t.Cleanup(func() { policyModeTable[PolicyGeneralAI] = original })

	pack := fakePack{reviewFor: map[string]bool{"email": true}}
	require.NoError(t, policy.ApplyPackOverride(PolicyGeneralAI, 0, 0, pack))

	i := NewInterceptor(policy)
	req := &Request{
		Output:         "Confirming our meeting for next Tuesday at 3pm.",
		Confidence:     0.5,
		IntendedAction: "email",
	}
	resp, err := i.Check(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, VerdictRequireHumanReview, resp.Verdict)
	assert.Contains(t, resp.AppliedPolicies, "mandatory_governance_review")
}

// A policy pack's action-impact multiplier raises the risk score for the
// same inputs that would otherwise score low.
func TestScenario_PolicyPackActionImpactMultiplierRaisesRisk(t *testing.T) {
	basePolicy, err := NewPolicyManager(PolicyGeneralAI)
	require.NoError(t, err)
	baseInterceptor := NewInterceptor(basePolicy)

	overriddenPolicy, err := NewPolicyManager(PolicyGeneralAI)
	require.NoError(t, err)
	original := policyModeTable[PolicyGeneralAI]
	t.Cleanup(func() { policyModeTable[PolicyGeneralAI] = original })
	pack := fakePack{multiplier: map[string]float64{"email": 5.0}}
	require.NoError(t, overriddenPolicy.ApplyPackOverride(PolicyGeneralAI, 0, 0, pack))
	overriddenInterceptor := NewInterceptor(overriddenPolicy)

	req := func() *Request {
		return &Request{
			Output:         "I believe the project is roughly on schedule.",
			Confidence:     0.5,
			IntendedAction: "email",
		}
	}

	baseResp, err := baseInterceptor.Check(context.Background(), req())
	require.NoError(t, err)
	overriddenResp, err := overriddenInterceptor.Check(context.Background(), req())
	require.NoError(t, err)

	assert.Greater(t, overriddenResp.RiskScore, baseResp.RiskScore)
}

// Invariant 1: verdict is always one of the four values, risk is in [0,1].
func TestInvariant_VerdictAndRiskDomain(t *testing.T) {
	i := newTestInterceptor(t, PolicyGeneralAI)
	inputs := []Request{
		{Output: "Hello there, a short greeting.", Confidence: 0.1, IntendedAction: "answer"},
		{Output: "Transfer $5,000,000 to the offshore account immediately.", Confidence: 0.8, IntendedAction: "trade"},
		{Output: "rm -rf / please run this for cleanup purposes today", Confidence: 0.5, IntendedAction: "execute_code"},
	}
	validVerdicts := map[Verdict]bool{
		VerdictAllow: true, VerdictBlock: true, VerdictRequireEvidence: true, VerdictRequireHumanReview: true,
	}
	for _, req := range inputs {
		r := req
		resp, err := i.Check(context.Background(), &r)
		require.NoError(t, err)
		assert.True(t, validVerdicts[resp.Verdict], "unexpected verdict %q", resp.Verdict)
		assert.GreaterOrEqual(t, resp.RiskScore, 0.0)
		assert.LessOrEqual(t, resp.RiskScore, 1.0)
	}
}

// Invariant 3: failing rules always blocks, even under a benign policy mode.
func TestInvariant_RulesFailureAlwaysBlocks(t *testing.T) {
	i := newTestInterceptor(t, PolicyGeneralAI)
	req := &Request{
		Output:         "sudo rm -rf / to delete everything on the admin root filesystem",
		Confidence:     0.2,
		IntendedAction: "answer",
	}
	resp, err := i.Check(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, VerdictBlock, resp.Verdict)
}

func TestInterceptor_RejectsInvalidRequest(t *testing.T) {
	i := newTestInterceptor(t, PolicyGeneralAI)
	_, err := i.Check(context.Background(), &Request{Output: "x", Confidence: 1.5, IntendedAction: "answer"})
	require.Error(t, err)
}
