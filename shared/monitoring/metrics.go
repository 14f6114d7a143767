package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	purchaseOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_purchase_operations_total",
			Help: "Total purchase operations by outcome",
		},
		[]string{"event_id", "status"},
	)

	mintedUnits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_minted_units_total",
			Help: "Total ticket units minted",
		},
		[]string{"event_id", "path"},
	)

	purchaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ticketing_purchase_duration_seconds",
			Help:    "Duration of the purchase pipeline",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"event_id"},
	)

	adminOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_admin_operations_total",
			Help: "Total admin lifecycle operations",
		},
		[]string{"operation", "status"},
	)

	issuanceResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_issuance_results_total",
			Help: "Token issuance confirmations by outcome",
		},
		[]string{"status"},
	)
)

// RecordPurchase records one purchase attempt and its latency
func RecordPurchase(eventID, status string, elapsed time.Duration) {
	purchaseOperations.WithLabelValues(eventID, status).Inc()
	purchaseDuration.WithLabelValues(eventID).Observe(elapsed.Seconds())
}

// RecordMint records minted units on the given path ("buy" or "giveaway")
func RecordMint(eventID, path string, quantity uint32) {
	mintedUnits.WithLabelValues(eventID, path).Add(float64(quantity))
}

// RecordAdminOp records an admin lifecycle operation
func RecordAdminOp(operation, status string) {
	adminOperations.WithLabelValues(operation, status).Inc()
}

// RecordIssuance records an issuance confirmation outcome
func RecordIssuance(status string) {
	issuanceResults.WithLabelValues(status).Inc()
}
