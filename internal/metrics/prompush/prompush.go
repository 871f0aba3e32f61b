// Package prompush is a metrics.Backend that collects into a private
// Prometheus registry and pushes it to a Pushgateway on Flush. The tools
// are one-shot processes, so there is no scrape endpoint to expose.
package prompush

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"guacmigrate/internal/metrics"
)

// DefaultJob is the Pushgateway job name used when none is given.
const DefaultJob = "guacmigrate"

// Backend pushes step and record metrics to a Pushgateway.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	steps    *prometheus.CounterVec
	duration *prometheus.SummaryVec
	records  *prometheus.CounterVec
}

// NewBackend registers the collectors on a fresh registry. gatewayURL is
// the Pushgateway base URL, e.g. http://pushgateway:9091.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, errors.New("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = DefaultJob
	}

	reg := prometheus.NewRegistry()

	steps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metrics.StepTotal,
		Help: "Pipeline step executions by tool, step and status.",
	}, []string{"tool", "step", "status"})

	duration := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name:       metrics.StepDurationSeconds,
		Help:       "Pipeline step duration in seconds.",
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	}, []string{"tool", "step", "status"})

	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metrics.RecordsTotal,
		Help: "Records handled by tool and kind (rows, connections, skipped, concealed).",
	}, []string{"tool", "kind"})

	for _, c := range []struct {
		name string
		c    prometheus.Collector
	}{
		{"step counter", steps},
		{"step summary", duration},
		{"record counter", records},
	} {
		if err := reg.Register(c.c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", c.name, err)
		}
	}

	return &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        reg,
		steps:      steps,
		duration:   duration,
		records:    records,
	}, nil
}

// IncCounter implements metrics.Backend. Unknown names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.steps != nil {
			b.steps.WithLabelValues(labels["tool"], labels["step"], labels["status"]).Add(delta)
		}
	case metrics.RecordsTotal:
		if b.records != nil {
			b.records.WithLabelValues(labels["tool"], labels["kind"]).Add(delta)
		}
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDurationSeconds || b.duration == nil {
		return
	}
	b.duration.WithLabelValues(labels["tool"], labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the registry, replacing the job's previous group.
func (b *Backend) Flush() error {
	if err := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg).Push(); err != nil {
		return fmt.Errorf("prompush: push to %s: %w", b.gatewayURL, err)
	}
	return nil
}
