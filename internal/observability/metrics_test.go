package observability

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"jobpilot/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func allEnabled() config.CustomMetricsConf {
	return config.CustomMetricsConf{
		Apply:    config.MetricToggle{Enabled: true},
		Gateway:  config.MetricToggle{Enabled: true},
		Pipeline: config.MetricToggle{Enabled: true},
	}
}

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	return sums
}

func TestMetricsRecording(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := NewMetrics(mp.Meter("test"), allEnabled())
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordPoll(ctx, "processing")
	m.RecordPoll(ctx, "done")
	m.RecordApplyOutcome(ctx, "done", 3*time.Second)
	m.RecordGatewayRequest(ctx, "/apply-job", 200, nil)
	m.RecordGatewayRequest(ctx, "/apply-status", 0, errors.New("dial tcp: refused"))
	m.RecordStepTransition(ctx, "upload", "analyzing")

	sums := collectSums(t, reader)
	assert.Equal(t, int64(2), sums["jobpilot_apply_poll_attempts_total"])
	assert.Equal(t, int64(1), sums["jobpilot_apply_outcomes_total"])
	assert.Equal(t, int64(2), sums["jobpilot_gateway_requests_total"])
	assert.Equal(t, int64(1), sums["jobpilot_gateway_errors_total"])
	assert.Equal(t, int64(1), sums["jobpilot_step_transitions_total"])
}

func TestMetricsToggles(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	toggles := allEnabled()
	toggles.Gateway.Enabled = false
	m, err := NewMetrics(mp.Meter("test"), toggles)
	require.NoError(t, err)

	m.RecordGatewayRequest(context.Background(), "/profile", 200, nil)
	m.RecordPoll(context.Background(), "processing")

	sums := collectSums(t, reader)
	assert.Zero(t, sums["jobpilot_gateway_requests_total"])
	assert.Equal(t, int64(1), sums["jobpilot_apply_poll_attempts_total"])
}

func TestNilMetricsAndDisabledManager(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordPoll(context.Background(), "processing")
		m.RecordApplyOutcome(context.Background(), "done", time.Second)
		m.RecordGatewayRequest(context.Background(), "/x", 500, nil)
		m.RecordStepTransition(context.Background(), "a", "b")
	})

	om, err := NewObservabilityManager(context.Background(), GetObservabilityConfig(nil, "test"))
	require.NoError(t, err)
	assert.Nil(t, om.Metrics())
	assert.Equal(t, http.DefaultTransport, om.Transport(http.DefaultTransport))

	_, span := om.Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, om.Shutdown(context.Background()))
}

func TestEnabledManagerWithoutExporters(t *testing.T) {
	cfg := GetObservabilityConfig(&config.Config{Observability: config.ObservabilityConfig{
		Enabled:       true,
		ServiceName:   "jobpilot-test",
		SampleRate:    1.0,
		CustomMetrics: allEnabled(),
	}}, "v0")

	om, err := NewObservabilityManager(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, om.Metrics())

	_, span := om.Tracer("test").Start(context.Background(), "apply")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	assert.NotEqual(t, http.DefaultTransport, om.Transport(http.DefaultTransport))
	assert.NoError(t, om.Shutdown(context.Background()))
}
