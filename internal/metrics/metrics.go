// Package metrics records run-level counters and step timings for the
// migration tools behind a pluggable Backend.
//
// The default backend is a no-op, so instrumented code never has to check
// whether metrics are enabled. Concrete systems live in subpackages
// (prompush, datadog) and are installed once from main via SetBackend.
package metrics

import (
	"sync"
	"time"
)

// Metric names shared by every backend.
const (
	StepTotal           = "guacmigrate_step_total"
	StepDurationSeconds = "guacmigrate_step_duration_seconds"
	RecordsTotal        = "guacmigrate_records_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface a metrics system has to provide.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a duration style value.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes buffered data, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b. Passing nil restores the no-op backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		b = nopBackend{}
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the installed backend.
func Flush() error {
	return current().Flush()
}

// RecordStep counts one execution of a pipeline step (read, fold, convert,
// write) and observes how long it took.
func RecordStep(tool, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"tool": tool, "step": step, "status": status}

	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordCount adds n to the records counter for kind, e.g. "rows",
// "connections", "skipped" or "concealed". Non-positive values are dropped.
func RecordCount(tool, kind string, n int) {
	if n <= 0 {
		return
	}
	current().IncCounter(RecordsTotal, float64(n), Labels{"tool": tool, "kind": kind})
}

// Timer starts timing a step; call the returned func with the step's
// error once it finishes.
func Timer(tool, step string) func(error) {
	start := time.Now()
	return func(err error) {
		RecordStep(tool, step, err, time.Since(start))
	}
}
