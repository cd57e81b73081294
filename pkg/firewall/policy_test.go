package firewall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyManager_RequiresMandatoryReview(t *testing.T) {
	pm, err := NewPolicyManager(PolicyGeneralAI)
	require.NoError(t, err)

	required, reason := pm.RequiresMandatoryReview(ActionTrade)
	assert.True(t, required)
	assert.NotEmpty(t, reason)

	required, _ = pm.RequiresMandatoryReview(ActionAnswer)
	assert.False(t, required)
}

func TestPolicyManager_SetModeAtomicAndValidated(t *testing.T) {
	pm, err := NewPolicyManager(PolicyGeneralAI)
	require.NoError(t, err)

	err = pm.SetMode(PolicyHealthcare)
	require.NoError(t, err)
	assert.Equal(t, PolicyHealthcare, pm.Mode())

	err = pm.SetMode("NOT_A_REAL_MODE")
	require.ErrorIs(t, err, ErrUnknownPolicyMode)
	// Current mode unchanged on a rejected SetMode.
	assert.Equal(t, PolicyHealthcare, pm.Mode())
}

func TestPolicyManager_HealthcareRequiresMedicalReview(t *testing.T) {
	pm, err := NewPolicyManager(PolicyHealthcare)
	require.NoError(t, err)

	required, _ := pm.RequiresMandatoryReview("medical")
	assert.True(t, required)

	required, _ = pm.RequiresMandatoryReview(ActionAnswer)
	assert.False(t, required)
}

func TestPolicyManager_GetPolicyInfo(t *testing.T) {
	pm, err := NewPolicyManager(PolicyFinancialServices)
	require.NoError(t, err)

	info := pm.GetPolicyInfo()
	assert.Equal(t, PolicyFinancialServices, info.Mode)
	assert.Contains(t, info.MandatoryReviewActions, "trade")
}

// fakePack is a minimal PackOverride stand-in so these tests don't need to
// import pkg/compliance; *compliance.PolicyPack satisfies the same shape.
type fakePack struct {
	evidenceFor map[string]bool
	reviewFor   map[string]bool
	multiplier  map[string]float64
}

func (f fakePack) RequiresEvidenceFor(action string) bool    { return f.evidenceFor[action] }
func (f fakePack) RequiresHumanReviewFor(action string) bool { return f.reviewFor[action] }
func (f fakePack) ActionImpactMultiplier(action string) float64 {
	if m, ok := f.multiplier[action]; ok {
		return m
	}
	return 1.0
}

func TestPolicyManager_ApplyPackOverride_ChangesLiveThresholdsAndOverrides(t *testing.T) {
	pm, err := NewPolicyManager(PolicyGeneralAI)
	require.NoError(t, err)

	original := policyModeTable[PolicyGeneralAI]
	t.Cleanup(func() { policyModeTable[PolicyGeneralAI] = original })

	pack := fakePack{
		evidenceFor: map[string]bool{"email": true},
		reviewFor:   map[string]bool{"email": true},
		multiplier:  map[string]float64{"email": 2.0},
	}

	require.NoError(t, pm.ApplyPackOverride(PolicyGeneralAI, 0.9, 0.3, pack))

	assert.InDelta(t, 0.9, pm.EvidenceThreshold(), 1e-9)
	assert.InDelta(t, 2.0, pm.ActionImpactMultiplier(ActionEmail), 1e-9)
	assert.True(t, pm.EvidenceRequiredOverride(ActionEmail))
	assert.False(t, pm.EvidenceRequiredOverride(ActionAnswer))

	required, reason := pm.RequiresMandatoryReview(ActionEmail)
	assert.True(t, required)
	assert.Contains(t, reason, "policy pack")
}

func TestPolicyManager_NoPackOverride_DefaultsMultiplierToOne(t *testing.T) {
	pm, err := NewPolicyManager(PolicyGeneralAI)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, pm.ActionImpactMultiplier(ActionTrade), 1e-9)
	assert.False(t, pm.EvidenceRequiredOverride(ActionTrade))
}
