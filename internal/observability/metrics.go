package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TripsCreated    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "hande", Name: "trips_created_total", Help: "Total trip requests created"})
	TripsCompleted  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "hande", Name: "trips_completed_total", Help: "Total trips completed"})
	TripsCancelled  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "hande", Name: "trips_cancelled_total", Help: "Total trips cancelled"})
	BidsPlaced      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "hande", Name: "bids_placed_total", Help: "Total bids placed by drivers"})
	BidsAccepted    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "hande", Name: "bids_accepted_total", Help: "Total bids accepted by riders"})
	FeesPaid        = promauto.NewCounter(prometheus.CounterOpts{Namespace: "hande", Name: "daily_fees_paid_total", Help: "Total daily fee payments"})
	LocationUpdates = promauto.NewCounter(prometheus.CounterOpts{Namespace: "hande", Name: "driver_location_updates_total", Help: "Total driver location updates received"})
	DriversOnline   = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "hande", Name: "drivers_online", Help: "Number of online drivers"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hande", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hande",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
