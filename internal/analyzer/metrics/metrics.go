package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	AnalysesTotal    prometheus.Counter
	CrossBorderTotal prometheus.Counter
	AnalysisDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		AnalysesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taxpilot_analyses_total",
			Help: "Total number of transaction tax analyses performed",
		}),
		CrossBorderTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taxpilot_analyses_cross_border_total",
			Help: "Total number of analyses that flagged a cross-border transaction",
		}),
		AnalysisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "taxpilot_analysis_duration_seconds",
			Help:    "Duration of transaction tax analyses",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) ObserveAnalysis(crossBorder bool, elapsed time.Duration) {
	m.AnalysesTotal.Inc()
	if crossBorder {
		m.CrossBorderTotal.Inc()
	}
	m.AnalysisDuration.Observe(elapsed.Seconds())
}
