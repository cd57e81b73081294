package firewall

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// PolicyMode selects an industry-specific governance configuration.
type PolicyMode string

const (
	PolicyGeneralAI          PolicyMode = "GENERAL_AI"
	PolicyFinancialServices  PolicyMode = "FINANCIAL_SERVICES"
	PolicyHealthcare         PolicyMode = "HEALTHCARE"
	PolicyLegal              PolicyMode = "LEGAL"
)

// modeConfig holds the governance parameters for one PolicyMode.
type modeConfig struct {
	mandatoryReviewActions        map[string]bool
	confidenceThresholdEvidence   float64
	riskThresholdMedium           float64
	description                   string
}

var policyModeTable = map[PolicyMode]modeConfig{
	PolicyGeneralAI: {
		mandatoryReviewActions:      map[string]bool{"trade": true, "execute_code": true},
		confidenceThresholdEvidence: 0.6,
		riskThresholdMedium:         0.6,
		description:                "General AI governance with conservative defaults",
	},
	PolicyFinancialServices: {
		mandatoryReviewActions:      map[string]bool{"trade": true, "execute_code": true},
		confidenceThresholdEvidence: 0.7,
		riskThresholdMedium:         0.5,
		description:                "Financial services compliance - all trades require human review",
	},
	PolicyHealthcare: {
		mandatoryReviewActions:      map[string]bool{"medical": true, "execute_code": true, "trade": true},
		confidenceThresholdEvidence: 0.8,
		riskThresholdMedium:         0.4,
		description:                "Healthcare compliance - medical actions require human review",
	},
	PolicyLegal: {
		mandatoryReviewActions:      map[string]bool{"legal": true, "execute_code": true, "trade": true},
		confidenceThresholdEvidence: 0.8,
		riskThresholdMedium:         0.4,
		description:                "Legal compliance - legal actions require human review",
	},
}

// governanceExpr is compiled once and evaluated against each mode's action
// set. It must remain behaviorally identical to a plain Go map lookup —
// governance supremacy does not depend on which form performs the check.
const governanceExpr = `intended_action in mandatory_review_actions`

// PackOverride is the subset of a loaded compliance PolicyPack that
// influences adjudication, declared here so pkg/firewall does not import
// pkg/compliance directly — the same consumer-defined-interface shape as
// AuditSink/MetricsSink/LearningSink in interceptor.go.
type PackOverride interface {
	RequiresEvidenceFor(action string) bool
	RequiresHumanReviewFor(action string) bool
	ActionImpactMultiplier(action string) float64
}

// PolicyManager holds the active governance configuration and a cached CEL
// program for the mandatory-review predicate. Mode swaps are atomic: a
// reader always observes either the old or the new mode in full, never a
// partially-updated one.
type PolicyManager struct {
	mu           sync.RWMutex
	mode         PolicyMode
	config       modeConfig
	env          *cel.Env
	program      cel.Program
	packOverride PackOverride
}

// NewPolicyManager constructs a PolicyManager in the given mode.
func NewPolicyManager(mode PolicyMode) (*PolicyManager, error) {
	env, err := cel.NewEnv(
		cel.Variable("intended_action", cel.StringType),
		cel.Variable("mandatory_review_actions", cel.ListType(cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("firewall: failed to create CEL env: %w", err)
	}

	ast, issues := env.Compile(governanceExpr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("firewall: governance predicate compile error: %w", issues.Err())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("firewall: governance predicate program error: %w", err)
	}

	config, ok := policyModeTable[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicyMode, mode)
	}

	return &PolicyManager{
		mode:    mode,
		config:  config,
		env:     env,
		program: program,
	}, nil
}

// SetMode atomically swaps the active policy mode. On an unknown mode the
// current mode is left unchanged and ErrUnknownPolicyMode is returned.
func (p *PolicyManager) SetMode(mode PolicyMode) error {
	config, ok := policyModeTable[mode]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPolicyMode, mode)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = mode
	p.config = config
	return nil
}

// Mode returns the currently active policy mode.
func (p *PolicyManager) Mode() PolicyMode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mode
}

// RequiresMandatoryReview evaluates the governance predicate for an action.
// This is a hard governance rule (§4.6): it overrides confidence, evidence
// and risk scoring entirely. On CEL evaluation failure, it falls back to a
// plain lookup of action in the mode's mandatory-review set.
func (p *PolicyManager) RequiresMandatoryReview(action IntendedAction) (bool, string) {
	p.mu.RLock()
	mode, config, program, pack := p.mode, p.config, p.program, p.packOverride
	p.mu.RUnlock()

	actions := make([]string, 0, len(config.mandatoryReviewActions))
	for a := range config.mandatoryReviewActions {
		actions = append(actions, a)
	}

	out, _, err := program.Eval(map[string]interface{}{
		"intended_action":          string(action),
		"mandatory_review_actions": actions,
	})

	required := config.mandatoryReviewActions[string(action)]
	if err == nil {
		if v, ok := out.Value().(bool); ok {
			required = v
		}
	}

	packReason := pack != nil && pack.RequiresHumanReviewFor(string(action))
	if packReason {
		required = true
	}

	if !required {
		return false, ""
	}

	if packReason {
		reason := fmt.Sprintf(
			"Governance rule: the active policy pack requires mandatory human review for %s actions. "+
				"This requirement cannot be overridden by high confidence or evidence presence.",
			action,
		)
		return true, reason
	}

	reason := fmt.Sprintf(
		"Governance rule: %s actions require mandatory human review in %s policy mode. "+
			"This requirement cannot be overridden by high confidence or evidence presence.",
		action, mode,
	)
	return true, reason
}

// ApplyPackOverride merges a loaded compliance policy pack's thresholds into
// mode's table entry and stores the pack itself so RequiresMandatoryReview,
// EvidenceThreshold, ActionImpactMultiplier and EvidenceRequiredOverride all
// consult it on every request. This is what makes loading a pack actually
// change adjudication instead of only appearing in a startup log line.
func (p *PolicyManager) ApplyPackOverride(mode PolicyMode, confidenceThresholdEvidence, riskThresholdMedium float64, pack PackOverride) error {
	config, ok := policyModeTable[mode]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPolicyMode, mode)
	}
	if confidenceThresholdEvidence > 0 {
		config.confidenceThresholdEvidence = confidenceThresholdEvidence
	}
	if riskThresholdMedium > 0 {
		config.riskThresholdMedium = riskThresholdMedium
	}
	policyModeTable[mode] = config

	p.mu.Lock()
	defer p.mu.Unlock()
	p.packOverride = pack
	if p.mode == mode {
		p.config = config
	}
	return nil
}

// EvidenceThreshold returns the confidence threshold above which a factual
// claim requires supporting evidence under the active mode, as overridden
// by any applied policy pack.
func (p *PolicyManager) EvidenceThreshold() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config.confidenceThresholdEvidence
}

// ActionImpactMultiplier returns the policy pack's impact multiplier for
// action, or 1.0 when no pack is applied.
func (p *PolicyManager) ActionImpactMultiplier(action IntendedAction) float64 {
	p.mu.RLock()
	pack := p.packOverride
	p.mu.RUnlock()
	if pack == nil {
		return 1.0
	}
	return pack.ActionImpactMultiplier(string(action))
}

// EvidenceRequiredOverride reports whether the applied policy pack mandates
// evidence for action regardless of claim confidence.
func (p *PolicyManager) EvidenceRequiredOverride(action IntendedAction) bool {
	p.mu.RLock()
	pack := p.packOverride
	p.mu.RUnlock()
	return pack != nil && pack.RequiresEvidenceFor(string(action))
}

// PolicyInfo describes the active policy configuration for diagnostics and
// the admin API.
type PolicyInfo struct {
	Mode                        PolicyMode `json:"mode"`
	MandatoryReviewActions      []string   `json:"mandatory_review_actions"`
	ConfidenceThresholdEvidence float64    `json:"confidence_threshold_evidence_required"`
	RiskThresholdMedium         float64    `json:"risk_threshold_medium"`
	Description                 string     `json:"description"`
}

// GetPolicyInfo returns a snapshot of the active configuration.
func (p *PolicyManager) GetPolicyInfo() PolicyInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()

	actions := make([]string, 0, len(p.config.mandatoryReviewActions))
	for a := range p.config.mandatoryReviewActions {
		actions = append(actions, a)
	}

	return PolicyInfo{
		Mode:                        p.mode,
		MandatoryReviewActions:      actions,
		ConfidenceThresholdEvidence: p.config.confidenceThresholdEvidence,
		RiskThresholdMedium:         p.config.riskThresholdMedium,
		Description:                 p.config.description,
	}
}
