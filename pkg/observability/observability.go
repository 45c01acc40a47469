// Package observability exposes the workflow's Prometheus metrics and the
// metrics endpoint.
package observability

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	JobsPosted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scoutops_jobs_posted_total",
		Help: "The total number of jobs posted.",
	})

	JobsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scoutops_jobs_expired_total",
		Help: "The total number of posted jobs that expired unaccepted.",
	})

	SubmissionsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scoutops_submissions_recorded_total",
		Help: "The total number of field submissions recorded.",
	})

	ReviewsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scoutops_reviews_completed_total",
		Help: "The total number of completed reviews.",
	}, []string{"decision"})

	PayoutsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scoutops_payouts_issued_total",
		Help: "The total number of payouts issued.",
	}, []string{"payout_type"})

	VouchersIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scoutops_vouchers_issued_total",
		Help: "The total number of reward vouchers issued.",
	})

	PacketsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scoutops_evidence_packets_generated_total",
		Help: "The total number of evidence packets generated.",
	})
)

// StartMetricsServer runs an HTTP server exposing Prometheus metrics.
func StartMetricsServer(addr string) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("metrics server failed", "error", err)
		}
	}()
}
