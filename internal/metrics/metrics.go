// Package metrics defines the Prometheus collectors for the ingestion jobs.
// The jobs are batch runs, so metrics are pushed to a Pushgateway at the end
// of a run instead of being scraped.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds the collectors for one pipeline run.
type Metrics struct {
	UnitsFetched    *prometheus.CounterVec
	DocumentsSaved  prometheus.Counter
	DocumentsLoaded prometheus.Counter
	DocumentsPruned prometheus.Counter
	RunDuration     prometheus.Gauge
	RunSuccess      prometheus.Gauge

	registry *prometheus.Registry
	gateway  string
	job      string
}

// New creates the collectors on a private registry. An empty gateway
// disables pushing; the collectors still record so callers never branch.
func New(gateway, job string) *Metrics {
	m := &Metrics{
		UnitsFetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "menu_units_fetched_total",
				Help: "Fetch units processed by outcome (ok, closed, failed).",
			},
			[]string{"outcome"},
		),
		DocumentsSaved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "menu_documents_saved_total",
				Help: "Canonical documents written to the document store.",
			},
		),
		DocumentsLoaded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "menu_documents_loaded_total",
				Help: "Documents upserted into the index store.",
			},
		),
		DocumentsPruned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "menu_documents_pruned_total",
				Help: "Documents retired from the document store.",
			},
		),
		RunDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "menu_run_duration_seconds",
				Help: "Wall-clock duration of the last run.",
			},
		),
		RunSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "menu_run_success",
				Help: "1 if the last run completed, 0 if it failed.",
			},
		),
		registry: prometheus.NewRegistry(),
		gateway:  gateway,
		job:      job,
	}

	m.registry.MustRegister(
		m.UnitsFetched,
		m.DocumentsSaved,
		m.DocumentsLoaded,
		m.DocumentsPruned,
		m.RunDuration,
		m.RunSuccess,
	)
	return m
}

// ObserveRun records the run outcome and duration.
func (m *Metrics) ObserveRun(start time.Time, err error) {
	m.RunDuration.Set(time.Since(start).Seconds())
	if err == nil {
		m.RunSuccess.Set(1)
	} else {
		m.RunSuccess.Set(0)
	}
}

// Push sends the registry to the Pushgateway. A no-op when no gateway is
// configured.
func (m *Metrics) Push() error {
	if m.gateway == "" {
		return nil
	}
	if err := push.New(m.gateway, m.job).Gatherer(m.registry).Push(); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", m.gateway, err)
	}
	return nil
}
