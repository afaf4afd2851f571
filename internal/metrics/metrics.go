package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeNoState = "no_state"
	OutcomeBusy    = "busy"
	OutcomeNoData  = "no_data"
)

var (
	refreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "historylens_refresh_total",
			Help: "Refresh attempts per entity and outcome.",
		},
		[]string{"entity_id", "index", "outcome"},
	)
	fetchedPoints = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "historylens_fetched_points_total",
			Help: "Points returned by the history source.",
		},
		[]string{"entity_id", "index"},
	)
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "historylens_cache_lookups_total",
			Help: "Cache lookups per entity and result (hit, miss, stale).",
		},
		[]string{"entity_id", "index", "result"},
	)
	persistFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "historylens_cache_persist_failures_total",
			Help: "Failed cache writes, each one wipes the store.",
		},
		[]string{"entity_id", "index"},
	)
	seriesPoints = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "historylens_series_points",
			Help: "Points in the served series after the last successful refresh.",
		},
		[]string{"entity_id", "index"},
	)
	seriesLastValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "historylens_series_last_value",
			Help: "Last non-null value of the served series.",
		},
		[]string{"entity_id", "index"},
	)
	publishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "historylens_publish_failures_total",
			Help: "Chart updates the sink failed to accept.",
		},
	)
)

// ObserveRefresh counts one refresh outcome. Series-scoped collectors carry the
// configured index next to the entity so two series over one entity stay apart.
func ObserveRefresh(entityID, index, outcome string) {
	refreshTotal.WithLabelValues(entityID, index, outcome).Inc()
}

func ObserveFetched(entityID, index string, n int) {
	fetchedPoints.WithLabelValues(entityID, index).Add(float64(n))
}

func ObserveCacheLookup(entityID, index, result string) {
	cacheLookups.WithLabelValues(entityID, index, result).Inc()
}

func ObservePersistFailure(entityID, index string) {
	persistFailures.WithLabelValues(entityID, index).Inc()
}

// ObserveSeries records the size of the served series and, when present, its last value.
func ObserveSeries(entityID, index string, points int, last float64, hasLast bool) {
	seriesPoints.WithLabelValues(entityID, index).Set(float64(points))
	if hasLast {
		seriesLastValue.WithLabelValues(entityID, index).Set(last)
	}
}

func ObservePublishFailure() {
	publishFailures.Inc()
}
