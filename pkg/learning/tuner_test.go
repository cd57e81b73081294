package learning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTuner_DisabledReturnsBaseThresholdsUnchanged(t *testing.T) {
	s, err := NewState(nil, true)
	require.NoError(t, err)
	tuner := NewTuner(s, nil, false, 0.6, 0.6, 3, 3)

	thresholds := tuner.GetAdaptiveThresholds()
	assert.Equal(t, 0.6, thresholds.ConfidenceThreshold)
	assert.Equal(t, 0.6, thresholds.RiskThresholdMedium)
	assert.Empty(t, thresholds.AdjustmentReason)
}

func TestTuner_RelaxesOnFalsePositivePressure(t *testing.T) {
	s, err := NewState(nil, true)
	require.NoError(t, err)
	tuner := NewTuner(s, nil, true, 0.6, 0.6, 2, 100)

	// Two blocks, both overturned: FalsePositiveCount=2, rate=2/2=1.0 > 0.2.
	require.NoError(t, s.RecordBlockedDecision("a", 0.9, "answer", "BLOCK", 0.9, nil, "r"))
	require.NoError(t, s.RecordBlockedDecision("b", 0.9, "answer", "BLOCK", 0.9, nil, "r"))
	require.NoError(t, s.RecordHumanOverride("BLOCK", "ALLOW", "reviewer", "a"))
	require.NoError(t, s.RecordHumanOverride("BLOCK", "ALLOW", "reviewer", "b"))

	thresholds := tuner.GetAdaptiveThresholds()
	assert.Greater(t, thresholds.ConfidenceThreshold, 0.6)
	assert.Greater(t, thresholds.RiskThresholdMedium, 0.6)
	assert.Contains(t, thresholds.AdjustmentReason, "Relaxing")
}

func TestTuner_ThresholdsClampAtBounds(t *testing.T) {
	s, err := NewState(nil, true)
	require.NoError(t, err)
	tuner := NewTuner(s, nil, true, 0.78, 0.78, 1, 100)

	require.NoError(t, s.RecordBlockedDecision("a", 0.9, "answer", "BLOCK", 0.9, nil, "r"))
	require.NoError(t, s.RecordHumanOverride("BLOCK", "ALLOW", "reviewer", "a"))

	thresholds := tuner.GetAdaptiveThresholds()
	assert.LessOrEqual(t, thresholds.ConfidenceThreshold, 0.8)
	assert.LessOrEqual(t, thresholds.RiskThresholdMedium, 0.8)
}
