// Package metric collects run counters for the archive merger and writes
// them in the Prometheus text exposition format.
package metric

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cdm"

// Outcome label values.
const (
	OutcomeOK      = "ok"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Metrics contains the counters of one run. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	FilesTotal    *prometheus.CounterVec
	MembersTotal  *prometheus.CounterVec
	RowsTotal     *prometheus.CounterVec
	SessionsTotal prometheus.Counter
	GroupDuration *prometheus.HistogramVec
}

// New creates Metrics registered on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		FilesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "archive",
				Name:      "files_total",
				Help:      "Archive files processed by outcome",
			},
			[]string{"outcome"},
		),

		MembersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "archive",
				Name:      "members_total",
				Help:      "Archive members decoded by category and outcome",
			},
			[]string{"category", "outcome"},
		),

		RowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "output",
				Name:      "rows_total",
				Help:      "Rows written by table kind",
			},
			[]string{"table"},
		),

		SessionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "finalized_total",
				Help:      "Sessions kept after renumbering",
			},
		),

		GroupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "group",
				Name:      "duration_seconds",
				Help:      "Time spent decoding and segmenting one (folder, year) group",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"folder"},
		),
	}

	m.registry.MustRegister(
		m.FilesTotal,
		m.MembersTotal,
		m.RowsTotal,
		m.SessionsTotal,
		m.GroupDuration,
	)
	return m
}

// Registry returns the registry holding every metric of the run.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordFile increments the archive file counter
func (m *Metrics) RecordFile(outcome string) {
	if m == nil {
		return
	}
	m.FilesTotal.WithLabelValues(outcome).Inc()
}

// RecordMember increments the member counter
func (m *Metrics) RecordMember(category, outcome string) {
	if m == nil {
		return
	}
	m.MembersTotal.WithLabelValues(category, outcome).Inc()
}

// RecordRows adds written rows for a table kind
func (m *Metrics) RecordRows(table string, n int) {
	if m == nil {
		return
	}
	m.RowsTotal.WithLabelValues(table).Add(float64(n))
}

// RecordSessions adds kept sessions
func (m *Metrics) RecordSessions(n int) {
	if m == nil {
		return
	}
	m.SessionsTotal.Add(float64(n))
}

// RecordGroupDuration records processing time of one group
func (m *Metrics) RecordGroupDuration(folder string, d time.Duration) {
	if m == nil {
		return
	}
	m.GroupDuration.WithLabelValues(folder).Observe(d.Seconds())
}

// WriteToTextfile writes every metric to path for the node exporter
// textfile collector.
func (m *Metrics) WriteToTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
