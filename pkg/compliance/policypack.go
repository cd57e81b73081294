// Package compliance loads industry-specific PolicyPacks: bundles of
// threshold overrides and per-action requirements layered on top of the
// firewall's default governance configuration.
package compliance

import (
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// Industry enumerates the supported PolicyPack verticals.
type Industry string

const (
	IndustryFinance    Industry = "finance"
	IndustryHealthcare Industry = "healthcare"
	IndustryLegal      Industry = "legal"
	IndustryGeneral    Industry = "general"
)

// Strictness tunes a pack's thresholds up or down from its base values.
type Strictness string

const (
	StrictnessLow    Strictness = "low"
	StrictnessMedium Strictness = "medium"
	StrictnessHigh   Strictness = "high"
)

// PolicyPack is an industry-specific threshold and requirement bundle,
// typically loaded from YAML via Load.
type PolicyPack struct {
	Name       string     `yaml:"name"`
	Version    string     `yaml:"version"`
	Industry   Industry   `yaml:"industry"`
	Strictness Strictness `yaml:"strictness"`

	ConfidenceThreshold     float64            `yaml:"confidence_threshold"`
	RiskThresholdMedium     float64            `yaml:"risk_threshold_medium"`
	RiskThresholdHigh       float64            `yaml:"risk_threshold_high"`
	RequireEvidenceFor      []string           `yaml:"require_evidence_for"`
	MandatoryHumanReviewFor []string           `yaml:"mandatory_human_review_for"`
	ActionImpactMultipliers map[string]float64 `yaml:"action_impact_multipliers"`

	semVersion *semver.Version
}

// basePacks mirrors the pre-configured industry defaults; a loaded YAML
// document overrides these rather than replacing them wholesale.
var basePacks = map[Industry]PolicyPack{
	IndustryFinance: {
		ConfidenceThreshold:     0.7,
		RiskThresholdMedium:     0.5,
		RiskThresholdHigh:       0.75,
		RequireEvidenceFor:      []string{"trade", "execute_code"},
		MandatoryHumanReviewFor: []string{"trade"},
		ActionImpactMultipliers: map[string]float64{"trade": 1.2, "execute_code": 1.3},
	},
	IndustryHealthcare: {
		ConfidenceThreshold:     0.85,
		RiskThresholdMedium:     0.4,
		RiskThresholdHigh:       0.7,
		RequireEvidenceFor:      []string{"answer", "email"},
		MandatoryHumanReviewFor: []string{"answer"},
		ActionImpactMultipliers: map[string]float64{"answer": 1.5, "email": 1.2},
	},
	IndustryLegal: {
		ConfidenceThreshold:     0.8,
		RiskThresholdMedium:     0.5,
		RiskThresholdHigh:       0.75,
		RequireEvidenceFor:      []string{"answer", "email"},
		MandatoryHumanReviewFor: []string{"answer", "email"},
		ActionImpactMultipliers: map[string]float64{"answer": 1.4, "email": 1.3},
	},
	IndustryGeneral: {
		ConfidenceThreshold:     0.6,
		RiskThresholdMedium:     0.6,
		RiskThresholdHigh:       0.8,
		RequireEvidenceFor:      []string{},
		MandatoryHumanReviewFor: []string{},
		ActionImpactMultipliers: map[string]float64{},
	},
}

// NewPolicyPack builds a pack for industry at the given strictness,
// applying the same ±0.1 threshold nudge the base configuration uses.
func NewPolicyPack(industry Industry, strictness Strictness) PolicyPack {
	pack, ok := basePacks[industry]
	if !ok {
		pack = basePacks[IndustryGeneral]
	}
	pack.Industry = industry
	pack.Strictness = strictness

	switch strictness {
	case StrictnessHigh:
		pack.ConfidenceThreshold = min(0.9, pack.ConfidenceThreshold+0.1)
		pack.RiskThresholdMedium = max(0.3, pack.RiskThresholdMedium-0.1)
	case StrictnessLow:
		pack.ConfidenceThreshold = max(0.4, pack.ConfidenceThreshold-0.1)
		pack.RiskThresholdMedium = min(0.8, pack.RiskThresholdMedium+0.1)
	}

	return pack
}

// Load reads a PolicyPack definition from a YAML file. Any field the file
// sets overrides the built-in industry default for the same field; fields
// the file omits keep the industry base value.
func Load(path string) (*PolicyPack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("compliance: failed to read policy pack %q: %w", path, err)
	}

	var doc PolicyPack
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("compliance: failed to parse policy pack %q: %w", path, err)
	}

	base := NewPolicyPack(doc.Industry, doc.Strictness)
	merged := mergeOverrides(base, doc)

	if merged.Version != "" {
		v, err := semver.NewVersion(merged.Version)
		if err != nil {
			return nil, fmt.Errorf("compliance: invalid policy pack version %q: %w", merged.Version, err)
		}
		merged.semVersion = v
	}

	return &merged, nil
}

func mergeOverrides(base, override PolicyPack) PolicyPack {
	merged := base
	merged.Name = override.Name
	merged.Version = override.Version

	if override.ConfidenceThreshold != 0 {
		merged.ConfidenceThreshold = override.ConfidenceThreshold
	}
	if override.RiskThresholdMedium != 0 {
		merged.RiskThresholdMedium = override.RiskThresholdMedium
	}
	if override.RiskThresholdHigh != 0 {
		merged.RiskThresholdHigh = override.RiskThresholdHigh
	}
	if len(override.RequireEvidenceFor) > 0 {
		merged.RequireEvidenceFor = override.RequireEvidenceFor
	}
	if len(override.MandatoryHumanReviewFor) > 0 {
		merged.MandatoryHumanReviewFor = override.MandatoryHumanReviewFor
	}
	if len(override.ActionImpactMultipliers) > 0 {
		merged.ActionImpactMultipliers = override.ActionImpactMultipliers
	}
	return merged
}

// RequiresEvidenceFor reports whether action is in this pack's evidence
// requirement list.
func (p *PolicyPack) RequiresEvidenceFor(action string) bool {
	for _, a := range p.RequireEvidenceFor {
		if a == action {
			return true
		}
	}
	return false
}

// RequiresHumanReviewFor reports whether action is in this pack's mandatory
// review list.
func (p *PolicyPack) RequiresHumanReviewFor(action string) bool {
	for _, a := range p.MandatoryHumanReviewFor {
		if a == action {
			return true
		}
	}
	return false
}

// ActionImpactMultiplier returns the configured multiplier for action, or
// 1.0 (no adjustment) if none is configured.
func (p *PolicyPack) ActionImpactMultiplier(action string) float64 {
	if m, ok := p.ActionImpactMultipliers[action]; ok {
		return m
	}
	return 1.0
}

// IsNewerThan compares two packs' semantic versions. Packs without a
// parsed version are considered older than any versioned pack.
func (p *PolicyPack) IsNewerThan(other *PolicyPack) bool {
	if p.semVersion == nil {
		return false
	}
	if other.semVersion == nil {
		return true
	}
	return p.semVersion.GreaterThan(other.semVersion)
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
