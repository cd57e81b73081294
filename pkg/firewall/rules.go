package firewall

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// unsafePatterns flag unsafe commands or code embedded directly in output.
var unsafePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:delete|drop|truncate|format|rm\s+-rf)\s+`),
	regexp.MustCompile(`(?i)\b(?:sudo|admin|root)\s+`),
	regexp.MustCompile(`(?i)\b(?:password|secret|key|token)\s*=\s*["']`),
	regexp.MustCompile(`(?i)<script[^>]*>`),
	regexp.MustCompile(`(?i)eval\s*\(`),
	regexp.MustCompile(`(?i)exec\s*\(`),
}

// harmfulPatterns flag output that describes a destructive or risky action.
var harmfulPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:kill|terminate|destroy|remove)\s+`),
	regexp.MustCompile(`(?i)\b(?:transfer|send|move)\s+\$\d+`),
	regexp.MustCompile(`(?i)\b(?:execute|run|call)\s+.*\b(?:dangerous|unsafe|risky)`),
}

var largeTradeAmount = regexp.MustCompile(`\$\s*\d{6,}`)
var systemLevelOps = regexp.MustCompile(`(?i)\b(?:system|os|subprocess|shell)\s*\.`)

// RulesEngine applies static safety and consistency rules to an output and
// its extracted claims.
type RulesEngine struct {
	log *slog.Logger
}

// NewRulesEngine returns a ready-to-use RulesEngine.
func NewRulesEngine(log *slog.Logger) *RulesEngine {
	if log == nil {
		log = slog.Default()
	}
	return &RulesEngine{log: log}
}

// CheckRules runs every rule against the output and claims, returning
// (passed, reason, names of failed rules).
func (r *RulesEngine) CheckRules(claims []Claim, output string, intendedAction IntendedAction) (bool, string, []string) {
	var failed []string

	if ok, reason := r.checkUnsafePatterns(output); !ok {
		failed = append(failed, "unsafe_patterns")
		r.log.Warn("unsafe patterns detected", "reason", reason)
	}

	if intendedAction == ActionTrade || intendedAction == ActionExecuteCode {
		if ok, reason := r.checkHarmfulActions(output, intendedAction); !ok {
			failed = append(failed, "harmful_actions")
			r.log.Warn("harmful actions detected", "reason", reason)
		}
	}

	if ok, reason := r.checkContradictions(claims); !ok {
		failed = append(failed, "contradictions")
		r.log.Warn("contradictions detected", "reason", reason)
	}

	if len(failed) > 0 {
		return false, fmt.Sprintf("Rules violated: %s", strings.Join(failed, ", ")), failed
	}
	return true, "All rules passed", []string{}
}

func (r *RulesEngine) checkUnsafePatterns(text string) (bool, string) {
	for _, p := range unsafePatterns {
		if p.MatchString(text) {
			return false, fmt.Sprintf("Unsafe pattern detected: %s", p.String())
		}
	}
	return true, "No unsafe patterns detected"
}

func (r *RulesEngine) checkHarmfulActions(text string, action IntendedAction) (bool, string) {
	for _, p := range harmfulPatterns {
		if p.MatchString(text) {
			return false, fmt.Sprintf("Potentially harmful action detected: %s", p.String())
		}
	}

	if action == ActionTrade && largeTradeAmount.MatchString(text) {
		return false, "Large trade amount detected without proper safeguards"
	}

	if action == ActionExecuteCode && systemLevelOps.MatchString(text) {
		return false, "System-level operations detected in code execution"
	}

	return true, "No harmful actions detected"
}

// checkContradictions is a deliberately coarse consistency check: duplicate
// factual claim text is treated as a sign of inconsistency. Richer
// contradiction detection is a non-goal.
func (r *RulesEngine) checkContradictions(claims []Claim) (bool, string) {
	seen := make(map[string]bool)
	factualCount := 0
	for _, c := range claims {
		if !c.IsFactual {
			continue
		}
		factualCount++
		seen[strings.ToLower(c.Text)] = true
	}

	if factualCount > 1 && len(seen) != factualCount {
		return false, "Duplicate claims detected"
	}
	return true, "No contradictions detected"
}

// RequiresHumanReviewForHighImpact implements the enterprise high-impact
// rule: trade/execute_code actions require human review unless confidence
// meets HighImpactConfidenceThreshold AND evidence is present.
func (r *RulesEngine) RequiresHumanReviewForHighImpact(action IntendedAction, confidence float64, hasEvidence bool) (bool, string) {
	if !HighImpactActions[action] {
		return false, "Not a high-impact action"
	}

	if confidence < HighImpactConfidenceThreshold || !hasEvidence {
		reason := fmt.Sprintf(
			"High-impact action (%s) requires human review. Confidence (%.2f) is below threshold (%.2f) or evidence is missing.",
			action, confidence, HighImpactConfidenceThreshold,
		)
		return true, reason
	}
	return false, "High-impact action meets confidence and evidence requirements"
}
