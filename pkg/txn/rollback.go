package txn

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	txnerrors "github.com/stagefs/stagefs/pkg/txn/errors"
)

// Rollback undoes the transaction. Before commit has touched disk it
// simply discards the queue and projection. After a commit (including a
// partially failed one) it restores
// every captured path to its pre-transaction state: paths that existed get
// their original content and mode rewritten, paths that did not exist are
// removed (already-absent paths are ignored). Files never touched by the
// transaction are never touched by rollback.
//
// Rollback on a transaction with zero staged operations is a no-op. After
// a post-commit restore all in-memory state is reset, including the
// committed flag, so the transaction object can be reused.
func (t *Transaction) Rollback(ctx context.Context) error {
	if !t.committed && !t.diskTouched {
		t.log.Debug("rollback discarding staged operations", "ops", len(t.ops))
		t.reset()
		t.recordRollback("discard")
		return nil
	}

	var errs []error
	for key, orig := range t.originals {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := t.restorePath(key, orig); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		t.log.Error("rollback failed", "error", err)
		t.recordRollback("restore_failed")
		return err
	}

	restored := len(t.originals)
	t.reset()
	t.recordRollback("restore")
	t.log.Info("transaction rolled back", "restored", restored)
	return nil
}

// restorePath puts one captured path back to its pre-transaction state.
func (t *Transaction) restorePath(key string, orig originalState) error {
	full := t.fullPath(key)

	if !orig.Existed {
		// ENOTDIR means a parent component is not a directory, so the
		// path cannot exist either.
		if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, syscall.ENOTDIR) {
			return txnerrors.NewRollbackFailedError(key, err)
		}
		return nil
	}

	// Non-regular originals (directories, symlinks) carry no content and
	// are left as they are on disk.
	if !orig.Mode.IsRegular() {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return txnerrors.NewRollbackFailedError(key, err)
	}
	if err := os.WriteFile(full, []byte(orig.Content), orig.Mode.Perm()); err != nil {
		return txnerrors.NewRollbackFailedError(key, err)
	}
	return nil
}

// reset clears the queue, projection, original-state store, counter, and
// committed flag.
func (t *Transaction) reset() {
	t.ops = nil
	t.nextID = 0
	t.projection = make(map[string]fileState)
	t.originals = make(map[string]originalState)
	t.committed = false
	t.diskTouched = false
}
