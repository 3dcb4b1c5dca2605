package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goldsave_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "goldsave_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goldsave_job_runs_total",
			Help: "Scheduled job runs by outcome",
		},
		[]string{"job", "outcome"},
	)

	JobItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goldsave_job_items_total",
			Help: "Items processed by scheduled jobs",
		},
		[]string{"job", "result"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "goldsave_job_duration_seconds",
			Help:    "Scheduled job duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"job"},
	)

	BonusPointsAwarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "goldsave_bonus_points_awarded_total",
			Help: "Bonus points posted by the bonus engine",
		},
	)

	BonusRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goldsave_bonus_runs_total",
			Help: "Bonus engine runs by outcome",
		},
		[]string{"outcome"},
	)

	PriceReplacementsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "goldsave_price_replacements_total",
			Help: "Gold prices replaced for a date that already had one",
		},
	)

	RedemptionDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goldsave_redemption_decisions_total",
			Help: "Redemption requests decided by type and status",
		},
		[]string{"type", "status"},
	)

	HTTPPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "goldsave_http_panics_total",
			Help: "Handler panics recovered by the HTTP middleware",
		},
	)

	PriceFeedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "goldsave_price_feed_clients",
			Help: "Connected price feed websocket clients",
		},
	)
)

func RecordHTTPRequest(method, route, status string, seconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// RecordJob records one job run with its per-item counts.
func RecordJob(job string, err error, succeeded, failed int, seconds float64) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	JobRunsTotal.WithLabelValues(job, outcome).Inc()
	JobItemsTotal.WithLabelValues(job, "succeeded").Add(float64(succeeded))
	JobItemsTotal.WithLabelValues(job, "failed").Add(float64(failed))
	JobDuration.WithLabelValues(job).Observe(seconds)
}
