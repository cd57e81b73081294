package firewall

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRulesEngine_UnsafePatternsFail(t *testing.T) {
	r := NewRulesEngine(nil)
	passed, _, failed := r.CheckRules(nil, "Please sudo rm -rf the old logs directory", ActionAnswer)
	assert.False(t, passed)
	assert.Contains(t, failed, "unsafe_patterns")
}

func TestRulesEngine_HarmfulActionsOnlyCheckedForHighImpact(t *testing.T) {
	r := NewRulesEngine(nil)

	// "destroy" only trips harmful_actions when the action is trade or
	// execute_code; for answer it's ignored.
	passed, _, failed := r.CheckRules(nil, "I will destroy the evidence of the meeting.", ActionAnswer)
	assert.True(t, passed)
	assert.Empty(t, failed)

	passed, _, failed = r.CheckRules(nil, "I will destroy the evidence of the meeting.", ActionTrade)
	assert.False(t, passed)
	assert.Contains(t, failed, "harmful_actions")
}

func TestRulesEngine_LargeTradeAmountFails(t *testing.T) {
	r := NewRulesEngine(nil)
	passed, _, failed := r.CheckRules(nil, "Transfer $5000000 to the new account.", ActionTrade)
	assert.False(t, passed)
	assert.Contains(t, failed, "harmful_actions")
}

func TestRulesEngine_SystemLevelOpsInCodeFails(t *testing.T) {
	r := NewRulesEngine(nil)
	passed, _, failed := r.CheckRules(nil, "Running os.system('rm file') to clean up.", ActionExecuteCode)
	assert.False(t, passed)
	assert.Contains(t, failed, "harmful_actions")
}

func TestRulesEngine_DuplicateFactualClaimsAreContradictions(t *testing.T) {
	r := NewRulesEngine(nil)
	claims := []Claim{
		{Text: "the sky is blue today", IsFactual: true, Confidence: 0.8},
		{Text: "the sky is blue today", IsFactual: true, Confidence: 0.8},
	}
	passed, _, failed := r.CheckRules(claims, "a perfectly safe sentence about weather", ActionAnswer)
	assert.False(t, passed)
	assert.Contains(t, failed, "contradictions")
}

func TestRulesEngine_AllPass(t *testing.T) {
	r := NewRulesEngine(nil)
	passed, reason, failed := r.CheckRules(nil, "This is a perfectly safe and boring sentence.", ActionAnswer)
	assert.True(t, passed)
	assert.Empty(t, failed)
	assert.NotEmpty(t, reason)
}

func TestRulesEngine_RequiresHumanReviewForHighImpact(t *testing.T) {
	r := NewRulesEngine(nil)

	required, _ := r.RequiresHumanReviewForHighImpact(ActionAnswer, 0.1, false)
	assert.False(t, required, "answer is not a high-impact action")

	required, _ = r.RequiresHumanReviewForHighImpact(ActionTrade, 0.5, true)
	assert.True(t, required, "confidence below HighImpactConfidenceThreshold")

	required, _ = r.RequiresHumanReviewForHighImpact(ActionTrade, 0.95, false)
	assert.True(t, required, "missing evidence still requires review")

	required, _ = r.RequiresHumanReviewForHighImpact(ActionTrade, 0.95, true)
	assert.False(t, required)
}
