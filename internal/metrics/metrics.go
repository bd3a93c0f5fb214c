// Package metrics defines the worker's prometheus instruments.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ordersProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rate_shopper",
			Subsystem: "pipeline",
			Name:      "orders_processed_total",
			Help:      "Total number of orders with shipping successfully set",
		},
	)

	ordersSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rate_shopper",
			Subsystem: "pipeline",
			Name:      "orders_skipped_total",
			Help:      "Total number of orders excluded by business rules",
		},
	)

	ordersFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rate_shopper",
			Subsystem: "pipeline",
			Name:      "orders_failed_total",
			Help:      "Total number of orders that failed after the retry pass",
		},
		[]string{"reason"},
	)

	orderRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rate_shopper",
			Subsystem: "pipeline",
			Name:      "order_retries_total",
			Help:      "Total number of orders queued for the second pass",
		},
		[]string{"reason"},
	)

	carrierQuoteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rate_shopper",
			Subsystem: "carrier",
			Name:      "quote_duration_seconds",
			Help:      "Histogram of carrier quote round-trip durations",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"carrier"},
	)

	carrierQuoteFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rate_shopper",
			Subsystem: "carrier",
			Name:      "quote_failures_total",
			Help:      "Total number of failed carrier quote requests",
		},
		[]string{"carrier"},
	)

	championPrice = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rate_shopper",
			Subsystem: "pipeline",
			Name:      "champion_price_dollars",
			Help:      "Histogram of selected shipping prices in dollars",
			Buckets:   []float64{2, 4, 6, 8, 10, 15, 20, 30, 50, 100},
		},
	)
)

func Register() {
	prometheus.MustRegister(
		ordersProcessed,
		ordersSkipped,
		ordersFailed,
		orderRetries,
		carrierQuoteDuration,
		carrierQuoteFailures,
		championPrice,
	)
}

func OrderProcessed()            { ordersProcessed.Inc() }
func OrderSkipped()              { ordersSkipped.Inc() }
func OrderFailed(reason string)  { ordersFailed.WithLabelValues(reason).Inc() }
func OrderRetried(reason string) { orderRetries.WithLabelValues(reason).Inc() }
func CarrierQuoteFailed(carrier string) {
	carrierQuoteFailures.WithLabelValues(carrier).Inc()
}

func ObserveQuoteDuration(carrier string, d time.Duration) {
	carrierQuoteDuration.WithLabelValues(carrier).Observe(d.Seconds())
}

func ObserveChampionPrice(price float64) { championPrice.Observe(price) }
