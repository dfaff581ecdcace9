package otel

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	centralhub "github.com/haitrieu1811/central-hub-server"
)

type fakeSource struct {
	counters map[centralhub.MetricID]uint64
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() centralhub.MetricsSnapshot {
	return centralhub.MetricsSnapshot{Counters: f.counters}
}

func (f *fakeSource) AuditDropped() uint64 { return f.dropped }

func TestNewExporterValidation(t *testing.T) {
	source := &fakeSource{}

	_, err := NewExporterFromSource(nil, source)
	require.ErrorIs(t, err, ErrNilMeter)

	_, err = NewExporter(noop.NewMeterProvider().Meter("test"), nil)
	require.ErrorIs(t, err, ErrNilSource)
}

func TestExporterRegistersAndCloses(t *testing.T) {
	source := &fakeSource{
		counters: map[centralhub.MetricID]uint64{centralhub.MetricLoginSuccess: 1},
	}

	exporter, err := NewExporterFromSource(noop.NewMeterProvider().Meter("test"), source)
	require.NoError(t, err)
	require.NoError(t, exporter.Close())
}

func TestCloseNilSafe(t *testing.T) {
	var exporter *Exporter
	require.NoError(t, exporter.Close())
}
