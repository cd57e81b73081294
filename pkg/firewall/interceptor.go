package firewall

import (
	"context"
	"fmt"
	"log/slog"
)

// AuditSink receives one adjudicated decision per Check call. It mirrors
// the shape pkg/audit.DecisionRecord expects without firewall importing
// pkg/audit directly, keeping the dependency pointed one way.
type AuditSink interface {
	Append(ctx context.Context, output string, confidence float64, intendedAction string, sourcesCount int, verdict string, riskScore float64, failedChecks []string, explanation string, confidenceAlignment bool) error
}

// MetricsSink records one completed adjudication for aggregate counters.
type MetricsSink interface {
	RecordRequest(ctx context.Context, verdict, intendedAction string, isHallucination bool) error
}

// LearningSink records blocked decisions for later false-positive/negative
// analysis.
type LearningSink interface {
	RecordBlockedDecision(ctx context.Context, output string, confidence float64, intendedAction, verdict string, riskScore float64, failedChecks []string, explanation string) error
}

// Telemetry emits ambient OpenTelemetry spans/metrics for one check. It is
// additive observability, never a source of verdict data.
type Telemetry interface {
	StartCheckSpan(ctx context.Context) (context.Context, func(intendedAction, verdict string, riskScore float64))
}

// Interceptor is the single orchestration entry point: it wires every
// analytical check into the priority ladder and fans the result out to the
// audit trail, metrics and learning memory.
type Interceptor struct {
	claimExtractor *ClaimExtractor
	confidence     *ConfidenceAnalyzer
	evidence       *EvidenceChecker
	rules          *RulesEngine
	risk           *RiskScorer
	verdict        *VerdictEngine
	policy         *PolicyManager

	audit     AuditSink
	metrics   MetricsSink
	learning  LearningSink
	telemetry Telemetry

	enterpriseMode          bool
	enterpriseReviewRisk    float64
	log                     *slog.Logger
}

// InterceptorOption configures optional Interceptor behavior.
type InterceptorOption func(*Interceptor)

// WithAudit attaches an audit sink; every Check call appends to it
// unconditionally once attached. Callers gate on enterprise mode by only
// passing this option when cfg.EnterpriseMode is set, matching the teacher
// system's enterprise-only audit logging.
func WithAudit(sink AuditSink) InterceptorOption {
	return func(i *Interceptor) { i.audit = sink }
}

// WithMetrics attaches a metrics sink.
func WithMetrics(sink MetricsSink) InterceptorOption {
	return func(i *Interceptor) { i.metrics = sink }
}

// WithLearning attaches a learning memory sink.
func WithLearning(sink LearningSink) InterceptorOption {
	return func(i *Interceptor) { i.learning = sink }
}

// WithTelemetry attaches an OTel span/metric emitter.
func WithTelemetry(t Telemetry) InterceptorOption {
	return func(i *Interceptor) { i.telemetry = t }
}

// WithEnterpriseMode enables the post-verdict high-risk override: any ALLOW
// with risk_score >= reviewRisk is escalated to REQUIRE_HUMAN_REVIEW.
func WithEnterpriseMode(reviewRisk float64) InterceptorOption {
	return func(i *Interceptor) {
		i.enterpriseMode = true
		i.enterpriseReviewRisk = reviewRisk
	}
}

// WithLogger overrides the default slog logger.
func WithLogger(log *slog.Logger) InterceptorOption {
	return func(i *Interceptor) { i.log = log }
}

// NewInterceptor constructs an Interceptor bound to policy.
func NewInterceptor(policy *PolicyManager, opts ...InterceptorOption) *Interceptor {
	log := slog.Default()
	i := &Interceptor{
		claimExtractor: NewClaimExtractor(),
		confidence:     NewConfidenceAnalyzer(),
		evidence:       NewEvidenceChecker(),
		rules:          NewRulesEngine(log),
		risk:           NewRiskScorer(log),
		verdict:        NewVerdictEngine(),
		policy:         policy,
		log:            log,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Check runs the full decision pipeline for req and returns the resulting
// Response. req is normalized in place.
func (i *Interceptor) Check(ctx context.Context, req *Request) (*Response, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}
	action := IntendedAction(req.IntendedAction)

	var recordTelemetry func(string, string, float64)
	if i.telemetry != nil {
		ctx, recordTelemetry = i.telemetry.StartCheckSpan(ctx)
	}

	i.log.Info("firewall check initiated", "action", action, "confidence", req.Confidence)

	claims := i.claimExtractor.Extract(req.Output, req.Confidence)

	confidenceAligned, confidenceReason := i.confidence.ValidateAlignment(req.Confidence, claims)
	confidenceCheck := CheckResult{Name: "confidence_alignment", Passed: confidenceAligned, Reason: confidenceReason}

	evidencePassed, evidenceReason, _ := i.evidence.CheckAt(claims, req.Sources, i.policy.EvidenceThreshold())
	if evidencePassed && i.policy.EvidenceRequiredOverride(action) && len(nonEmptySources(req.Sources)) == 0 {
		evidencePassed = false
		evidenceReason = fmt.Sprintf("Policy pack requires evidence for %s actions but no sources were provided", action)
	}
	evidenceCheck := CheckResult{Name: "evidence", Passed: evidencePassed, Reason: evidenceReason}

	rulesPassed, rulesReason, _ := i.rules.CheckRules(claims, req.Output, action)
	rulesCheck := CheckResult{Name: "rules", Passed: rulesPassed, Reason: rulesReason}

	riskScore := i.risk.CalculateRiskScoreWithMultiplier(req.Confidence, action, claims, evidencePassed, i.policy.ActionImpactMultiplier(action))

	governanceRequired, governanceReason := i.policy.RequiresMandatoryReview(action)

	highImpactRequired, highImpactReason := i.rules.RequiresHumanReviewForHighImpact(action, req.Confidence, evidencePassed)

	var failedChecks []string
	if !evidencePassed {
		failedChecks = append(failedChecks, "evidence")
	}
	if !rulesPassed {
		failedChecks = append(failedChecks, "rules")
	}
	if !confidenceAligned && !evidencePassed {
		failedChecks = append(failedChecks, "confidence_alignment")
	}
	if highImpactRequired {
		failedChecks = append(failedChecks, "high_impact_review_required")
	}
	if governanceRequired {
		failedChecks = append(failedChecks, "governance_mandatory_review")
	}

	verdict, reason, explanation, appliedPolicies, escalationReason := i.verdict.DetermineVerdict(
		riskScore, evidencePassed, rulesPassed, confidenceAligned, action, req.Confidence, claims,
		highImpactRequired, highImpactReason, governanceRequired, governanceReason,
	)

	details := i.verdict.BuildDetails(claims, riskScore, evidencePassed, rulesPassed, confidenceAligned,
		[]CheckResult{confidenceCheck, evidenceCheck, rulesCheck}, req.Sources)

	i.log.Info("firewall check completed", "verdict", verdict, "risk_score", riskScore, "failed_checks", failedChecks)

	response := &Response{
		Verdict:             verdict,
		Reason:              reason,
		RiskScore:           riskScore,
		FailedChecks:        failedChecks,
		Details:             details,
		Explanation:         explanation,
		ConfidenceAlignment: confidenceAligned,
		AppliedPolicies:     appliedPolicies,
		EscalationReason:    escalationReason,
	}

	if i.audit != nil {
		if err := i.audit.Append(ctx, req.Output, req.Confidence, req.IntendedAction, len(req.Sources),
			string(response.Verdict), response.RiskScore, response.FailedChecks, response.Explanation, response.ConfidenceAlignment); err != nil {
			i.log.Error("failed to append audit entry", "error", err)
		}
	}

	isHallucination := response.Verdict == VerdictBlock && contains(failedChecks, "evidence") && req.Confidence > 0.7
	if i.metrics != nil {
		if err := i.metrics.RecordRequest(ctx, string(response.Verdict), req.IntendedAction, isHallucination); err != nil {
			i.log.Error("failed to record metrics", "error", err)
		}
	}

	if response.Verdict == VerdictBlock && i.learning != nil {
		if err := i.learning.RecordBlockedDecision(ctx, req.Output, req.Confidence, req.IntendedAction,
			string(response.Verdict), response.RiskScore, response.FailedChecks, response.Explanation); err != nil {
			i.log.Error("failed to record learning memory", "error", err)
		}
	}

	if i.enterpriseMode && riskScore >= i.enterpriseReviewRisk && response.Verdict == VerdictAllow {
		response.Verdict = VerdictRequireHumanReview
		response.Reason = "Enterprise mode: High-risk decision requires human review"
		response.Explanation = fmt.Sprintf(
			"Enterprise mode requires human review for high-risk decisions (risk score: %.2f). Original verdict was ALLOW.",
			riskScore,
		)
	}

	if recordTelemetry != nil {
		recordTelemetry(req.IntendedAction, string(response.Verdict), riskScore)
	}

	return response, nil
}

func contains(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}
