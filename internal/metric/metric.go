// Package metric holds the process-wide Prometheus collectors, served at
// /metrics.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"calgrid/internal/layout"
)

var (
	LayoutRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "calgrid",
		Name:      "layout_requests_total",
		Help:      "Layouts computed, by view mode.",
	}, []string{"view"})

	GroupColumns = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "calgrid",
		Name:      "group_columns",
		Help:      "Columns per overlap group in computed day layouts.",
		Buckets:   []float64{1, 2, 3, 4, 6, 8, 12},
	})

	DroppedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "calgrid",
		Name:      "dropped_events_total",
		Help:      "Selected events left out of a layout because their category is missing.",
	})

	StoredEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "calgrid",
		Name:      "stored_events",
		Help:      "Events currently in the store.",
	})

	SubscriptionRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "calgrid",
		Name:      "subscription_refreshes_total",
		Help:      "Subscription imports, by source and result.",
	}, []string{"source", "result"})

	Snapshots = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "calgrid",
		Name:      "snapshots_total",
		Help:      "Headless captures of the day view, by result.",
	}, []string{"result"})
)

// ObserveDay records the group sizes and dropped events of one day layout.
func ObserveDay(d layout.DayLayout) {
	for _, columns := range d.Groups {
		GroupColumns.Observe(float64(columns))
	}
	if d.Dropped > 0 {
		DroppedEvents.Add(float64(d.Dropped))
	}
}

// Result maps an error to the "result" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
