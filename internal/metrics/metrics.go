package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for registry and auth operations.
// A nil *Metrics is valid and records nothing, which keeps tests free of
// duplicate-registration issues with the default registry.
type Metrics struct {
	BelieversCreated    prometheus.Counter
	BelieversUpdated    prometheus.Counter
	BelieversDeleted    prometheus.Counter
	GridRowFailures     prometheus.Counter
	AuthFailures        prometheus.Counter
	ListingSize         prometheus.Gauge
	ReconcileDurationMs prometheus.Histogram
}

// New registers and returns the collectors on the default registry.
func New() *Metrics {
	return &Metrics{
		BelieversCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aapn_believers_created_total",
			Help: "Total number of believer records created",
		}),
		BelieversUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aapn_believers_updated_total",
			Help: "Total number of believer records updated",
		}),
		BelieversDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aapn_believers_deleted_total",
			Help: "Total number of believer records deleted",
		}),
		GridRowFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aapn_grid_row_failures_total",
			Help: "Total number of grid rows that failed during reconciliation",
		}),
		AuthFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aapn_auth_failures_total",
			Help: "Total number of failed login attempts",
		}),
		ListingSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "aapn_listing_size",
			Help: "Number of believer records in the cached listing",
		}),
		ReconcileDurationMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "aapn_reconcile_duration_ms",
			Help:    "Duration of grid reconciliation passes in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}),
	}
}

// RecordReconcile observes one reconciliation pass.
func (m *Metrics) RecordReconcile(updated, deleted, failed int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BelieversUpdated.Add(float64(updated))
	m.BelieversDeleted.Add(float64(deleted))
	m.GridRowFailures.Add(float64(failed))
	m.ReconcileDurationMs.Observe(float64(elapsed.Milliseconds()))
}

// RecordCreated counts one created record.
func (m *Metrics) RecordCreated() {
	if m == nil {
		return
	}
	m.BelieversCreated.Inc()
}

// RecordUpdated counts one updated record.
func (m *Metrics) RecordUpdated() {
	if m == nil {
		return
	}
	m.BelieversUpdated.Inc()
}

// RecordDeleted counts one deleted record.
func (m *Metrics) RecordDeleted() {
	if m == nil {
		return
	}
	m.BelieversDeleted.Inc()
}

// RecordAuthFailure counts one failed login.
func (m *Metrics) RecordAuthFailure() {
	if m == nil {
		return
	}
	m.AuthFailures.Inc()
}

// SetListingSize tracks the cached listing size.
func (m *Metrics) SetListingSize(n int) {
	if m == nil {
		return
	}
	m.ListingSize.Set(float64(n))
}
