package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SubmissionsTotal   *prometheus.CounterVec
	RetriesTotal       prometheus.Counter
	SubmissionDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		SubmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "taxpilot_filing_submissions_total",
			Help: "Total number of filing submissions by terminal outcome",
		}, []string{"outcome"}),
		RetriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taxpilot_filing_retries_total",
			Help: "Total number of filing submission retries after transient failures",
		}),
		SubmissionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "taxpilot_filing_submission_duration_seconds",
			Help:    "End-to-end duration of filing submissions including retries",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) ObserveSubmission(outcome string, elapsed time.Duration) {
	m.SubmissionsTotal.WithLabelValues(outcome).Inc()
	m.SubmissionDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRetry() {
	m.RetriesTotal.Inc()
}
