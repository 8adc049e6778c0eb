package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/stagefs/stagefs/pkg/txn"
)

// txnMetrics is the Prometheus implementation of txn.Metrics.
type txnMetrics struct {
	stagedOps      *prometheus.CounterVec
	commits        *prometheus.CounterVec
	rollbacks      *prometheus.CounterVec
	commitDuration prometheus.Histogram
}

// NewTxnMetrics creates a Prometheus-backed transaction metrics recorder.
//
// Returns nil if metrics are not enabled (InitRegistry not called). A nil
// recorder passed to txn.WithMetrics results in zero overhead.
func NewTxnMetrics() txn.Metrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &txnMetrics{
		stagedOps: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "stagefs_operations_staged_total",
				Help: "Total number of staged file operations by kind",
			},
			[]string{"kind"},
		),
		commits: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "stagefs_commits_total",
				Help: "Total number of commit attempts by status",
			},
			[]string{"status"}, // "success", "failure"
		),
		rollbacks: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "stagefs_rollbacks_total",
				Help: "Total number of rollbacks by phase",
			},
			[]string{"phase"}, // "discard", "restore", "restore_failed"
		),
		commitDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stagefs_commit_duration_seconds",
				Help:    "Time spent materializing staged state to disk",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// RecordStaged records one staged operation by kind.
func (m *txnMetrics) RecordStaged(kind txn.OperationKind) {
	m.stagedOps.WithLabelValues(string(kind)).Inc()
}

// RecordCommit records a commit attempt with its outcome and duration.
func (m *txnMetrics) RecordCommit(status string, duration time.Duration) {
	m.commits.WithLabelValues(status).Inc()
	if status == "success" {
		m.commitDuration.Observe(duration.Seconds())
	}
}

// RecordRollback records a rollback by phase.
func (m *txnMetrics) RecordRollback(phase string) {
	m.rollbacks.WithLabelValues(phase).Inc()
}
