package txn

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	txnerrors "github.com/stagefs/stagefs/pkg/txn/errors"
)

// Commit materializes the projection onto the real filesystem. It runs at
// most once per transaction; a second call fails with AlreadyCommitted.
//
// Writes are performed per final projected state, never by replaying the
// raw operation log: the queue is the audit trail, the projection is the
// materialization source, and the two are kept equal by construction.
// Distinct files are written in parallel, bounded by the configured
// parallelism; no two writes ever target the same path.
//
// Each file is written atomically via a temporary file plus rename when
// atomic writes are enabled. Cross-file atomicity is best effort only: if
// a write fails mid-commit, directories and earlier files may already have
// been applied. Callers should invoke Rollback on commit failure.
func (t *Transaction) Commit(ctx context.Context) error {
	if t.committed {
		return txnerrors.NewAlreadyCommittedError()
	}

	start := time.Now()
	keys := t.stagedKeys()

	t.diskTouched = true
	if err := t.createDirectories(keys); err != nil {
		t.recordCommit("failure", time.Since(start))
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(t.parallelism)

	for _, key := range keys {
		st := t.projection[key]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return txnerrors.NewCommitFailedError(key, err)
			}
			if st.Exists {
				return t.materializeFile(key, st)
			}
			return t.removeFile(key)
		})
	}

	if err := g.Wait(); err != nil {
		t.recordCommit("failure", time.Since(start))
		t.log.Error("commit failed", "error", err)
		return err
	}

	t.committed = true
	t.recordCommit("success", time.Since(start))
	t.log.Info("transaction committed", "files", len(keys), "duration_ms", logDuration(start))
	return nil
}

// stagedKeys returns the canonical keys of every path touched by a staged
// operation, in deterministic order. Paths that were only read are cached
// in the projection but never captured, and are excluded: commit must not
// rewrite files the transaction never mutated.
func (t *Transaction) stagedKeys() []string {
	keys := make([]string, 0, len(t.originals))
	for key := range t.originals {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// createDirectories creates the directory set implied by the projected
// paths. MkdirAll is idempotent and recursive, so existing directories are
// no-ops.
func (t *Transaction) createDirectories(keys []string) error {
	dirs := make(map[string]struct{})
	for _, key := range keys {
		if st := t.projection[key]; st.Exists {
			dirs[filepath.Dir(t.fullPath(key))] = struct{}{}
		}
	}

	for dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return txnerrors.NewCommitFailedError(dir, fmt.Errorf("create directory: %w", err))
		}
	}
	return nil
}

// materializeFile writes the final projected content for key to disk,
// preserving the original file mode when one was captured.
func (t *Transaction) materializeFile(key string, st fileState) error {
	full := t.fullPath(key)
	mode := fs.FileMode(0644)
	if orig, ok := t.originals[key]; ok && orig.Existed && orig.Mode.IsRegular() {
		mode = orig.Mode.Perm()
	}

	if !t.atomicWrites {
		if err := os.WriteFile(full, []byte(st.Content), mode); err != nil {
			return txnerrors.NewCommitFailedError(key, err)
		}
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), "."+filepath.Base(full)+".*.tmp")
	if err != nil {
		return txnerrors.NewCommitFailedError(key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(st.Content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return txnerrors.NewCommitFailedError(key, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return txnerrors.NewCommitFailedError(key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return txnerrors.NewCommitFailedError(key, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return txnerrors.NewCommitFailedError(key, err)
	}
	return nil
}

// removeFile removes a path whose projected state is absent, covering
// staged deletions. Already-absent paths are not an error.
func (t *Transaction) removeFile(key string) error {
	if err := os.Remove(t.fullPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, syscall.ENOTDIR) {
		return txnerrors.NewCommitFailedError(key, err)
	}
	return nil
}

// logDuration returns milliseconds elapsed since start for log fields.
func logDuration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
