package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry wraps the OpenTelemetry instruments emitted alongside every
// decision. It is purely additive observability: nothing here feeds back
// into a verdict, and a nil Telemetry is always safe to call through.
type Telemetry struct {
	tracer       trace.Tracer
	requestsCtr  metric.Int64Counter
	riskHist     metric.Float64Histogram
}

// NewTelemetry builds a Telemetry instance from the global OTel providers.
// Call this once after otel.SetTracerProvider/SetMeterProvider have been
// configured by the adapter.
func NewTelemetry() (*Telemetry, error) {
	tracer := otel.Tracer("decision-firewall")
	meter := otel.Meter("decision-firewall")

	requestsCtr, err := meter.Int64Counter(
		"firewall.requests_total",
		metric.WithDescription("Total number of firewall adjudications, by verdict and action."),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: failed to create requests counter: %w", err)
	}

	riskHist, err := meter.Float64Histogram(
		"firewall.risk_score",
		metric.WithDescription("Distribution of computed risk scores."),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: failed to create risk histogram: %w", err)
	}

	return &Telemetry{tracer: tracer, requestsCtr: requestsCtr, riskHist: riskHist}, nil
}

// StartCheckSpan opens the "firewall.check" span for one adjudication.
func (t *Telemetry) StartCheckSpan(ctx context.Context) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, "firewall.check")
}

// RecordDecision annotates the active span and records the counter and
// histogram for one completed adjudication.
func (t *Telemetry) RecordDecision(ctx context.Context, span trace.Span, intendedAction, verdict string, riskScore float64) {
	if t == nil {
		return
	}

	span.SetAttributes(
		attribute.String("intended_action", intendedAction),
		attribute.String("verdict", verdict),
		attribute.Float64("risk_score", riskScore),
	)

	attrs := metric.WithAttributes(
		attribute.String("intended_action", intendedAction),
		attribute.String("verdict", verdict),
	)
	t.requestsCtr.Add(ctx, 1, attrs)
	t.riskHist.Record(ctx, riskScore, attrs)
}
