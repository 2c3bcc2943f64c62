package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func sumOf(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestMetricsRecord(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	m, err := NewMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordGameStarted(ctx, 7, 6)
	m.RecordMove(ctx, "accepted")
	m.RecordMove(ctx, "accepted")
	m.RecordMove(ctx, "column_full")
	m.RecordGameFinished(ctx, "win")
	m.SessionAttached(ctx)
	m.SessionAttached(ctx)
	m.SessionDetached(ctx)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	assert.EqualValues(t, 3, sumOf(t, rm, "connect4.moves"))
	assert.EqualValues(t, 1, sumOf(t, rm, "connect4.games.started"))
	assert.EqualValues(t, 1, sumOf(t, rm, "connect4.games.finished"))
	assert.EqualValues(t, 1, sumOf(t, rm, "connect4.sessions.active"))
}

func TestInitOtelDisabled(t *testing.T) {
	shutdown, err := InitOtel(context.Background(), Options{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
