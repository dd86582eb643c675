package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestInitializeOTel_Disabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: "test",
		Environment:    "test",
		TraceExporter:  "none",
		MetricExporter: "none",
		EnableMetrics:  true,
		EnableTracing:  true,
	}, logger)
	require.NoError(t, err)

	assert.Nil(t, providers.TracerProvider)
	assert.Nil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestInitializeOTel_UnsupportedExporter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := InitializeOTel(&OTelConfig{
		TraceExporter: "jaeger",
		EnableTracing: true,
	}, logger)
	assert.Error(t, err)
}

func TestReportMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	m, err := CreateReportMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordSourceLoad(ctx, "registry", 12, 5*time.Millisecond, nil)
	m.RecordSourceLoad(ctx, "dispatch", 0, time.Millisecond, errors.New("boom"))
	m.RecordRowsDropped(ctx, "excluded_service", 2)
	m.RecordRowsDropped(ctx, "incomplete", 0)
	m.RecordReportBuild(ctx, 10*time.Millisecond, 1)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if data, ok := metric.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[metric.Name] += dp.Value
				}
			}
		}
	}

	assert.Equal(t, int64(2), sums["source_loads_total"])
	assert.Equal(t, int64(12), sums["source_rows_loaded_total"])
	assert.Equal(t, int64(2), sums["rows_dropped_total"])
	assert.Equal(t, int64(1), sums["reports_built_total"])
	assert.Equal(t, int64(1), sums["report_section_errors_total"])
}

func TestReportMetrics_NilSafe(t *testing.T) {
	var m *ReportMetrics
	assert.NotPanics(t, func() {
		m.RecordReportBuild(context.Background(), time.Second, 0)
		m.RecordRowsDropped(context.Background(), "x", 1)
		m.RecordSourceLoad(context.Background(), "x", 1, time.Second, nil)
		m.RecordHTTPRequest(context.Background(), "GET", "/", 200, time.Second)
	})
}

func TestStartSpan_NoopTracer(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "report.build")
	defer span.End()
	assert.NotNil(t, ctx)
	assert.NotPanics(t, func() { RecordError(ctx, errors.New("x")) })
}
