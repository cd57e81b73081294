package firewall

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestValidator_AcceptsWellFormedPayload(t *testing.T) {
	v, err := NewRequestValidator()
	require.NoError(t, err)

	payload := map[string]interface{}{
		"ai_output":       "hello there",
		"confidence":      0.5,
		"intended_action": "answer",
	}
	assert.NoError(t, v.Validate(payload))
}

func TestRequestValidator_RejectsMissingRequiredField(t *testing.T) {
	v, err := NewRequestValidator()
	require.NoError(t, err)

	payload := map[string]interface{}{
		"confidence":      0.5,
		"intended_action": "answer",
	}
	err = v.Validate(payload)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestRequestValidator_AcceptsEmptyOutput(t *testing.T) {
	v, err := NewRequestValidator()
	require.NoError(t, err)

	payload := map[string]interface{}{
		"ai_output":       "",
		"confidence":      0.5,
		"intended_action": "answer",
	}
	assert.NoError(t, v.Validate(payload))
}

func TestRequestValidator_RejectsOutOfRangeConfidence(t *testing.T) {
	v, err := NewRequestValidator()
	require.NoError(t, err)

	payload := map[string]interface{}{
		"ai_output":       "hello there",
		"confidence":      1.5,
		"intended_action": "answer",
	}
	err = v.Validate(payload)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}
