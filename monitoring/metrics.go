package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ResponseTimeHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ReferralApplyTotal counts referral code applications by outcome kind.
	ReferralApplyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_apply_total",
			Help: "Referral code applications by outcome",
		},
		[]string{"outcome"},
	)

	ReferralBackfillTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_backfill_transactions_total",
			Help: "Legacy commission transactions seen by the backfill, by result",
		},
		[]string{"result"},
	)

	ReferralStatsRecomputations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "referral_stats_recomputations_total",
			Help: "Referral stats recomputed after cache invalidation",
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notifications by delivery channel and result",
		},
		[]string{"channel", "result"},
	)
)
