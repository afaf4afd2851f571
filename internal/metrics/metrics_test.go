package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, vec.WithLabelValues(labels...).Write(&m))
	return m.GetCounter().GetValue()
}

func TestSeriesOverSameEntityCountedApart(t *testing.T) {
	ObserveRefresh("sensor.shared", "0", OutcomeOK)
	ObserveRefresh("sensor.shared", "0", OutcomeOK)
	ObserveRefresh("sensor.shared", "1", OutcomeOK)
	ObserveFetched("sensor.shared", "1", 7)
	ObserveCacheLookup("sensor.shared", "0", "hit")
	ObservePersistFailure("sensor.shared", "1")

	assert.Equal(t, 2.0, counterValue(t, refreshTotal, "sensor.shared", "0", OutcomeOK))
	assert.Equal(t, 1.0, counterValue(t, refreshTotal, "sensor.shared", "1", OutcomeOK))
	assert.Equal(t, 7.0, counterValue(t, fetchedPoints, "sensor.shared", "1"))
	assert.Equal(t, 0.0, counterValue(t, fetchedPoints, "sensor.shared", "0"))
	assert.Equal(t, 1.0, counterValue(t, cacheLookups, "sensor.shared", "0", "hit"))
	assert.Equal(t, 1.0, counterValue(t, persistFailures, "sensor.shared", "1"))
}
