package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"jobpilot/internal/config"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the custom instruments. A nil *Metrics records nothing.
type Metrics struct {
	// Generation
	ApplyOutcomes metric.Int64Counter
	PollAttempts  metric.Int64Counter
	ApplyDuration metric.Float64Histogram

	// Backend traffic
	GatewayRequests metric.Int64Counter
	GatewayErrors   metric.Int64Counter

	// CV pipeline
	StepTransitions metric.Int64Counter

	toggles config.CustomMetricsConf
}

// NewMetrics creates all instruments on meter
func NewMetrics(meter metric.Meter, toggles config.CustomMetricsConf) (*Metrics, error) {
	m := &Metrics{toggles: toggles}
	var err error

	if m.ApplyOutcomes, err = meter.Int64Counter(
		"jobpilot_apply_outcomes_total",
		metric.WithDescription("Terminal outcomes of application generation sessions"),
	); err != nil {
		return nil, fmt.Errorf("failed to create apply outcome metric: %w", err)
	}

	if m.PollAttempts, err = meter.Int64Counter(
		"jobpilot_apply_poll_attempts_total",
		metric.WithDescription("Status polls issued while waiting for generation"),
	); err != nil {
		return nil, fmt.Errorf("failed to create poll attempt metric: %w", err)
	}

	if m.ApplyDuration, err = meter.Float64Histogram(
		"jobpilot_apply_duration_seconds",
		metric.WithDescription("Wall time from start request to terminal outcome"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create apply duration metric: %w", err)
	}

	if m.GatewayRequests, err = meter.Int64Counter(
		"jobpilot_gateway_requests_total",
		metric.WithDescription("Requests sent to the backend"),
	); err != nil {
		return nil, fmt.Errorf("failed to create gateway request metric: %w", err)
	}

	if m.GatewayErrors, err = meter.Int64Counter(
		"jobpilot_gateway_errors_total",
		metric.WithDescription("Backend requests that failed before a response"),
	); err != nil {
		return nil, fmt.Errorf("failed to create gateway error metric: %w", err)
	}

	if m.StepTransitions, err = meter.Int64Counter(
		"jobpilot_step_transitions_total",
		metric.WithDescription("CV pipeline state transitions"),
	); err != nil {
		return nil, fmt.Errorf("failed to create step transition metric: %w", err)
	}

	return m, nil
}

// RecordApplyOutcome records a terminal generation outcome
func (m *Metrics) RecordApplyOutcome(ctx context.Context, kind string, elapsed time.Duration) {
	if m == nil || !m.toggles.Apply.Enabled {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", kind))
	m.ApplyOutcomes.Add(ctx, 1, attrs)
	m.ApplyDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordPoll records one status poll and the status it returned
func (m *Metrics) RecordPoll(ctx context.Context, status string) {
	if m == nil || !m.toggles.Apply.Enabled {
		return
	}
	m.PollAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordGatewayRequest records a backend call; statusCode is 0 when no response arrived
func (m *Metrics) RecordGatewayRequest(ctx context.Context, endpoint string, statusCode int, err error) {
	if m == nil || !m.toggles.Gateway.Enabled {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("status", strconv.Itoa(statusCode)),
	)
	m.GatewayRequests.Add(ctx, 1, attrs)
	if err != nil {
		m.GatewayErrors.Add(ctx, 1, attrs)
	}
}

// RecordStepTransition records a pipeline state change
func (m *Metrics) RecordStepTransition(ctx context.Context, from, to string) {
	if m == nil || !m.toggles.Pipeline.Enabled {
		return
	}
	m.StepTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}
