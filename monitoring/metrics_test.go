package monitoring

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndGauges(t *testing.T) {
	mc := NewMetricsCollector()
	mc.IncrCounter("requests_total", 1, map[string]string{"label": "Normal Weight"})
	mc.IncrCounter("requests_total", 2, map[string]string{"label": "Normal Weight"})
	mc.IncrCounter("requests_total", 1, map[string]string{"label": "Obesity Type I"})
	mc.SetGauge("clients", 4, nil)
	mc.SetGauge("clients", 2, nil)

	assert.Equal(t, 3.0, mc.Value("requests_total", map[string]string{"label": "Normal Weight"}))
	assert.Equal(t, 1.0, mc.Value("requests_total", map[string]string{"label": "Obesity Type I"}))
	assert.Equal(t, 2.0, mc.Value("clients", nil))
	assert.Equal(t, 0.0, mc.Value("absent", nil))
	assert.Len(t, mc.Snapshot(), 3)
}

func TestHistogramBuckets(t *testing.T) {
	mc := NewMetricsCollector()
	for _, v := range []float64{0.5, 1.5, 3, 10} {
		mc.RecordHistogram("latency", v, nil, []float64{2, 1, 5})
	}

	h, ok := mc.Histogram("latency", nil)
	require.True(t, ok)
	assert.Equal(t, uint64(4), h.Count)
	assert.InDelta(t, 15.0, h.Sum, 1e-12)
	require.Len(t, h.Buckets, 4)
	counts := []uint64{1, 2, 3, 4}
	for i, b := range h.Buckets {
		assert.Equal(t, counts[i], b.Count, "bucket %v", b.UpperBound)
	}

	_, ok = mc.Histogram("missing", nil)
	assert.False(t, ok)
}

func TestExportPrometheus(t *testing.T) {
	mc := NewMetricsCollector()
	mc.Describe("predictions_total", "Predictions served")
	mc.IncrCounter("predictions_total", 1, map[string]string{"label": "Normal Weight"})
	mc.RecordHistogram("predict_seconds", 0.002, nil, []float64{0.001, 0.01})

	out := mc.ExportPrometheus()
	assert.Contains(t, out, "# HELP predictions_total Predictions served\n")
	assert.Contains(t, out, "# TYPE predictions_total counter\n")
	assert.Contains(t, out, `predictions_total{label="Normal Weight"} 1`+"\n")
	assert.Contains(t, out, "# TYPE predict_seconds histogram\n")
	assert.Contains(t, out, `predict_seconds_bucket{le="0.001"} 0`+"\n")
	assert.Contains(t, out, `predict_seconds_bucket{le="0.01"} 1`+"\n")
	assert.Contains(t, out, `predict_seconds_bucket{le="+Inf"} 1`+"\n")
	assert.Contains(t, out, "predict_seconds_count 1\n")
	assert.Equal(t, 1, strings.Count(out, "# TYPE predictions_total"))
}

func TestSnapshotEncodesInfiniteBucket(t *testing.T) {
	mc := NewMetricsCollector()
	mc.RecordHistogram("latency", 1, nil, []float64{0.5})

	raw, err := json.Marshal(mc.Snapshot())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"le":"+Inf"`)
}
