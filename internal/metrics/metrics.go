package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "repozip"

var (
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Total number of submission runs, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	StageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage (seconds).",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage", "result"},
	)

	ArchiveBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "archive_bytes",
			Help:      "Size of the most recently built archive.",
		},
	)

	ArchiveEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "archive_entries",
			Help:      "Entries in the most recently built archive, labeled by kind.",
		},
		[]string{"kind"},
	)

	CheckRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "server_check_requests_total",
			Help:      "Eligibility checks served, labeled by competition and verdict.",
		},
		[]string{"competition", "approved"},
	)

	SubmissionsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "server_submissions_received_total",
			Help:      "Uploads received, labeled by competition and outcome.",
		},
		[]string{"competition", "outcome"},
	)

	RateLimitHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "server_rate_limit_hits_total",
			Help:      "Requests rejected by the per-key rate limiter, labeled by scope.",
		},
		[]string{"scope"},
	)

	ReceivedBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "server_received_bytes",
			Help:      "Size of accepted archives.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		},
	)
)

func init() {
	prometheus.MustRegister(
		SubmissionsTotal,
		StageDurationSeconds,
		ArchiveBytes,
		ArchiveEntries,
		CheckRequestsTotal,
		SubmissionsReceivedTotal,
		RateLimitHitsTotal,
		ReceivedBytes,
	)
}

// ObserveStage records how long a stage took since start.
func ObserveStage(stage string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	StageDurationSeconds.WithLabelValues(stage, result).Observe(time.Since(start).Seconds())
}

// WriteTextfile dumps the default registry in the text exposition format,
// for node_exporter's textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
