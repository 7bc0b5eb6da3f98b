package testutil

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// ObservationCount returns how many observations the labelled child of vec
// has recorded
func ObservationCount(t testing.TB, vec *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()

	histogram, ok := vec.WithLabelValues(labels...).(prometheus.Histogram)
	require.True(t, ok, "child of %v is not a histogram", labels)

	var m dto.Metric
	require.NoError(t, histogram.Write(&m))
	return m.GetHistogram().GetSampleCount()
}
