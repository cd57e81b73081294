//go:build property
// +build property

package firewall

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// allActions is the universe intended_action is drawn from for property
// tests; "unknown" exercises the DefaultActionImpact fallback path.
var allActions = []IntendedAction{ActionAnswer, ActionEmail, ActionTrade, ActionExecuteCode, IntendedAction("unknown")}

func genAction() gopter.Gen {
	return gen.OneConstOf(
		interfaceSlice(allActions)...,
	)
}

func interfaceSlice(actions []IntendedAction) []interface{} {
	out := make([]interface{}, len(actions))
	for i, a := range actions {
		out[i] = a
	}
	return out
}

// Invariant 1: CalculateRiskScore always returns a value in [0, 1],
// regardless of confidence, action, claim volume or evidence presence.
func TestProperty_RiskScoreStaysInUnitInterval(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)
	scorer := NewRiskScorer(nil)

	properties.Property("risk score in [0,1]", prop.ForAll(
		func(confidence float64, action IntendedAction, numClaims int, hasEvidence bool) bool {
			claims := make([]Claim, numClaims)
			for i := range claims {
				claims[i] = Claim{Text: "claim", IsFactual: true, Confidence: confidence}
			}
			score := scorer.CalculateRiskScore(confidence, action, claims, hasEvidence)
			return score >= 0.0 && score <= 1.0
		},
		gen.Float64Range(0, 1),
		genAction(),
		gen.IntRange(0, 20),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// RiskScorer monotonicity: for a fixed action/evidence/claim set, risk score
// is non-increasing in confidence (since uncertainty = 1 - confidence is a
// strictly decreasing factor and every other term is held fixed).
func TestProperty_RiskScoreMonotonicInUncertainty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)
	scorer := NewRiskScorer(nil)

	properties.Property("higher confidence never increases risk", prop.ForAll(
		func(lowerConfidence, delta float64) bool {
			higherConfidence := lowerConfidence + delta
			if higherConfidence > 1.0 {
				return true // outside the domain we care about; skip
			}
			claims := []Claim{{Text: "claim", IsFactual: true, Confidence: lowerConfidence}}
			lowRisk := scorer.CalculateRiskScore(lowerConfidence, ActionAnswer, claims, true)
			highRisk := scorer.CalculateRiskScore(higherConfidence, ActionAnswer, claims, true)
			return highRisk <= lowRisk+1e-9
		},
		gen.Float64Range(0, 0.9),
		gen.Float64Range(0, 0.1),
	))

	properties.TestingRun(t)
}

// ClaimExtractor never panics on arbitrary text and never produces a claim
// from a blank or whitespace-only sentence.
func TestProperty_ClaimExtractorNeverPanicsOrClaimsBlank(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)
	extractor := NewClaimExtractor()

	properties.Property("extract is panic-free and never claims blank text", prop.ForAll(
		func(text string, confidence float64) bool {
			claims := extractor.Extract(text, confidence)
			for _, c := range claims {
				if len(c.Text) == 0 {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

// Governance supremacy: whenever the governance-review flag is set (as it is
// when RequiresMandatoryReview reports true), DetermineVerdict returns
// REQUIRE_HUMAN_REVIEW for any action, no matter what the other signals say.
func TestProperty_GovernanceSupremacyHoldsForAnyOtherSignal(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)
	verdictEngine := NewVerdictEngine()

	properties.Property("governance review always wins", prop.ForAll(
		func(evidencePassed, rulesPassed, confidenceAligned bool, riskScore float64, action IntendedAction) bool {
			verdict, _, _, _, _ := verdictEngine.DetermineVerdict(
				riskScore, evidencePassed, rulesPassed, confidenceAligned, action, 0.5, nil,
				false, "", true, "governance review required",
			)
			return verdict == VerdictRequireHumanReview
		},
		gen.Bool(),
		gen.Bool(),
		gen.Bool(),
		gen.Float64Range(0, 1),
		genAction(),
	))

	properties.TestingRun(t)
}

// Safety supremacy: whenever rulesPassed is false (and governance is not
// triggered), the verdict is always BLOCK, regardless of risk or evidence.
func TestProperty_FailedRulesAlwaysBlockWhenGovernanceSilent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)
	verdictEngine := NewVerdictEngine()

	properties.Property("failed rules always block", prop.ForAll(
		func(evidencePassed, confidenceAligned bool, riskScore float64, action IntendedAction) bool {
			verdict, _, _, _, _ := verdictEngine.DetermineVerdict(
				riskScore, evidencePassed, false /* rulesPassed */, confidenceAligned, action, 0.5, nil,
				false, "", false, "",
			)
			return verdict == VerdictBlock
		},
		gen.Bool(),
		gen.Bool(),
		gen.Float64Range(0, 1),
		genAction(),
	))

	properties.TestingRun(t)
}
