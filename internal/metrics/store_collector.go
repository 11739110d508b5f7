package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SubmissionCounter reports stored submissions per competition.
type SubmissionCounter interface {
	CountByCompetition(ctx context.Context) (map[string]int64, error)
}

type storeCollector struct {
	store  SubmissionCounter
	logger *slog.Logger

	storedDesc *prometheus.Desc
}

func newStoreCollector(store SubmissionCounter, logger *slog.Logger) *storeCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &storeCollector{
		store:  store,
		logger: logger,
		storedDesc: prometheus.NewDesc(
			"repozip_server_submissions_stored",
			"Submissions currently stored, by competition.",
			[]string{"competition"},
			nil,
		),
	}
}

func (c *storeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.storedDesc
}

func (c *storeCollector) Collect(ch chan<- prometheus.Metric) {
	if c.store == nil {
		return
	}
	// Keep store reads bounded so scrapes do not hang.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	counts, err := c.store.CountByCompetition(ctx)
	if err != nil {
		c.logger.Warn("prometheus store collector failed", "err", err)
		return
	}
	for competition, n := range counts {
		if competition == "" {
			competition = "default"
		}
		m, err := prometheus.NewConstMetric(c.storedDesc, prometheus.GaugeValue, float64(n), competition)
		if err != nil {
			continue
		}
		ch <- m
	}
}

var registerStoreCollectorOnce sync.Once

func RegisterStoreCollector(store SubmissionCounter, logger *slog.Logger) {
	registerStoreCollectorOnce.Do(func() {
		prometheus.MustRegister(newStoreCollector(store, logger))
	})
}
