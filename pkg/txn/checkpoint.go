package txn

import (
	"maps"
	"slices"
)

// Checkpoint is an immutable deep snapshot of the in-memory transaction
// state: queue, projection, original-state store, and operation counter.
// It snapshots nothing on disk. Restoring replaces the live state with a
// fresh copy, so a checkpoint can be restored more than once.
type Checkpoint struct {
	tx         *Transaction
	ops        []FileOperation
	nextID     uint64
	projection map[string]fileState
	originals  map[string]originalState
}

// CreateCheckpoint captures a deep snapshot of the current transaction
// state. Callers can speculatively stage operations, inspect the result,
// and back out via Restore without a full filesystem rollback.
func (t *Transaction) CreateCheckpoint() *Checkpoint {
	t.log.Debug("checkpoint created", "ops", len(t.ops))
	return &Checkpoint{
		tx:         t,
		ops:        slices.Clone(t.ops),
		nextID:     t.nextID,
		projection: maps.Clone(t.projection),
		originals:  maps.Clone(t.originals),
	}
}

// Restore replaces the live queue, projection, original-state store, and
// counter with the snapshot. The original-state store must be reset too:
// paths first touched after the checkpoint would otherwise keep a stale
// capture. A checkpoint predates any commit by construction, so the
// committed flag is cleared; the disk-touched flag is not, since a commit
// between snapshot and restore has already mutated the project and a later
// Rollback must still restore it.
func (c *Checkpoint) Restore() {
	t := c.tx
	t.ops = slices.Clone(c.ops)
	t.nextID = c.nextID
	t.projection = maps.Clone(c.projection)
	t.originals = maps.Clone(c.originals)
	t.committed = false

	t.log.Debug("checkpoint restored", "ops", len(t.ops))
}
