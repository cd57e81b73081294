// Package server wires the firewall pipeline to HTTP: request decoding,
// admin authentication, and the sink adapters that bridge pkg/firewall's
// consumer-defined interfaces to the concrete audit/metrics/learning/otel
// packages.
package server

import (
	"context"

	"github.com/Mindburn-Labs/decision-firewall/pkg/audit"
	"github.com/Mindburn-Labs/decision-firewall/pkg/firewall"
	"github.com/Mindburn-Labs/decision-firewall/pkg/learning"
	"github.com/Mindburn-Labs/decision-firewall/pkg/metrics"
)

// auditAdapter satisfies firewall.AuditSink over an *audit.Log. The audit
// package has no notion of context cancellation, so ctx is accepted and
// ignored rather than threaded through - the hash chain append is a local,
// in-memory operation plus a synchronous store write.
type auditAdapter struct {
	log *audit.Log
}

// NewAuditSink adapts log to firewall.AuditSink.
func NewAuditSink(log *audit.Log) firewall.AuditSink {
	return &auditAdapter{log: log}
}

func (a *auditAdapter) Append(ctx context.Context, output string, confidence float64, intendedAction string, sourcesCount int, verdict string, riskScore float64, failedChecks []string, explanation string, confidenceAlignment bool) error {
	_, err := a.log.Append(audit.DecisionRecord{
		Output:              output,
		Confidence:          confidence,
		IntendedAction:      intendedAction,
		SourcesCount:        sourcesCount,
		Verdict:             verdict,
		RiskScore:           riskScore,
		FailedChecks:        failedChecks,
		Explanation:         explanation,
		ConfidenceAlignment: confidenceAlignment,
	})
	return err
}

// metricsAdapter satisfies firewall.MetricsSink over a *metrics.State.
type metricsAdapter struct {
	state *metrics.State
}

// NewMetricsSink adapts state to firewall.MetricsSink.
func NewMetricsSink(state *metrics.State) firewall.MetricsSink {
	return &metricsAdapter{state: state}
}

func (a *metricsAdapter) RecordRequest(ctx context.Context, verdict, intendedAction string, isHallucination bool) error {
	return a.state.RecordRequest(verdict, intendedAction, isHallucination)
}

// learningAdapter satisfies firewall.LearningSink over a *learning.State.
type learningAdapter struct {
	state *learning.State
}

// NewLearningSink adapts state to firewall.LearningSink.
func NewLearningSink(state *learning.State) firewall.LearningSink {
	return &learningAdapter{state: state}
}

func (a *learningAdapter) RecordBlockedDecision(ctx context.Context, output string, confidence float64, intendedAction, verdict string, riskScore float64, failedChecks []string, explanation string) error {
	return a.state.RecordBlockedDecision(output, confidence, intendedAction, verdict, riskScore, failedChecks, explanation)
}

// telemetryAdapter satisfies firewall.Telemetry over a *metrics.Telemetry,
// collapsing its two-call StartCheckSpan/RecordDecision shape into the
// single closure firewall.Interceptor expects.
type telemetryAdapter struct {
	telemetry *metrics.Telemetry
}

// NewTelemetrySink adapts t to firewall.Telemetry.
func NewTelemetrySink(t *metrics.Telemetry) firewall.Telemetry {
	return &telemetryAdapter{telemetry: t}
}

func (a *telemetryAdapter) StartCheckSpan(ctx context.Context) (context.Context, func(intendedAction, verdict string, riskScore float64)) {
	spanCtx, span := a.telemetry.StartCheckSpan(ctx)
	return spanCtx, func(intendedAction, verdict string, riskScore float64) {
		a.telemetry.RecordDecision(spanCtx, span, intendedAction, verdict, riskScore)
	}
}

var (
	_ firewall.AuditSink    = (*auditAdapter)(nil)
	_ firewall.MetricsSink  = (*metricsAdapter)(nil)
	_ firewall.LearningSink = (*learningAdapter)(nil)
	_ firewall.Telemetry    = (*telemetryAdapter)(nil)
)
