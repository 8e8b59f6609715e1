// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from the lake build.
//
// The package is intentionally minimal and opinionated:
//
//   - It exposes a narrow interface (Backend) focused on counters and timing
//     data (histograms).
//   - It provides a global, pluggable backend that defaults to a no-op
//     implementation, so metrics are always safe to call even when no real
//     backend is configured.
//   - It keeps concrete metric systems isolated in subpackages, allowing the
//     rest of the codebase to depend only on this interface.
//
// The primary use case is instrumentation of the build stages (reading the
// song and log datasets, deriving each table, writing parquet) without
// coupling the core logic to a specific metrics system such as Prometheus or
// Datadog.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
// It is intentionally generic so we can plug in Prometheus, Datadog, etc.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStage is a convenience for the common pattern:
// measure latency + success/failure per build stage.
//
// Typical stages: "read_songs", "read_logs", "songs", "artists", "users",
// "time", "songplays".
func RecordStage(job, stage string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"stage":  stage,
		"status": status,
	}

	backend.IncCounter("lake_stage_total", 1, lbls)
	backend.ObserveHistogram("lake_stage_duration_seconds", d.Seconds(), lbls)
}

// RecordRows counts rows written to a table.
func RecordRows(job, table string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("lake_rows_total", float64(delta), Labels{
		"job":   job,
		"table": table,
	})
}

// RecordFiles counts input files read from a dataset ("songs" or "logs").
func RecordFiles(job, dataset string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("lake_files_total", float64(delta), Labels{
		"job":     job,
		"dataset": dataset,
	})
}
