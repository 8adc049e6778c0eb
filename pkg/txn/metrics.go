package txn

import "time"

// Metrics records transaction measurements. Implementations live outside
// this package (see pkg/metrics for the Prometheus-backed one). A nil
// Metrics disables recording with zero overhead.
type Metrics interface {
	// RecordStaged records one staged operation by kind.
	RecordStaged(kind OperationKind)

	// RecordCommit records a commit attempt with its outcome and duration.
	// status is "success" or "failure".
	RecordCommit(status string, duration time.Duration)

	// RecordRollback records a rollback by phase: "discard" for
	// pre-commit rollbacks, "restore" for post-commit restorations.
	RecordRollback(phase string)
}

func (t *Transaction) recordStaged(kind OperationKind) {
	if t.metrics != nil {
		t.metrics.RecordStaged(kind)
	}
}

func (t *Transaction) recordCommit(status string, duration time.Duration) {
	if t.metrics != nil {
		t.metrics.RecordCommit(status, duration)
	}
}

func (t *Transaction) recordRollback(phase string) {
	if t.metrics != nil {
		t.metrics.RecordRollback(phase)
	}
}
