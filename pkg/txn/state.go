package txn

import (
	"errors"
	"io/fs"
	"os"
	"time"

	txnerrors "github.com/stagefs/stagefs/pkg/txn/errors"
)

// fileState is one projection entry: the current virtual content and
// existence of a path after folding every staged operation for it, starting
// from the real filesystem state.
type fileState struct {
	Content string
	Exists  bool
}

// originalState is the filesystem's truth for a path the instant it was
// first staged. It is the rollback anchor: captured at most once per path
// and never overwritten for the life of the transaction.
type originalState struct {
	Existed bool
	Content string
	Mode    fs.FileMode
	ModTime time.Time
}

// captureOriginal records the pre-transaction state of key if it has not
// been captured yet. Idempotent: later calls for the same key are no-ops.
// This must run before the first staged operation on a path, since it is
// the only chance to observe pre-transaction truth.
func (t *Transaction) captureOriginal(key string) error {
	if _, ok := t.originals[key]; ok {
		return nil
	}

	full := t.fullPath(key)
	info, err := os.Lstat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			t.originals[key] = originalState{Existed: false}
			return nil
		}
		return txnerrors.NewReadFailedError("capture", key, err)
	}

	orig := originalState{
		Existed: true,
		Mode:    info.Mode(),
		ModTime: info.ModTime(),
	}

	// Content is only captured for regular files; directories, symlinks
	// and devices are recorded as existing without content.
	if info.Mode().IsRegular() {
		data, err := os.ReadFile(full)
		if err != nil {
			return txnerrors.NewReadFailedError("capture", key, err)
		}
		orig.Content = string(data)
	}

	t.originals[key] = orig
	return nil
}

// currentState returns the projection entry for key, lazily reading the
// real filesystem exactly once for paths that have never been staged or
// read. Subsequent lookups are O(1) cache hits.
func (t *Transaction) currentState(key string) (fileState, error) {
	if st, ok := t.projection[key]; ok {
		return st, nil
	}

	full := t.fullPath(key)
	info, err := os.Lstat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			st := fileState{Exists: false}
			t.projection[key] = st
			return st, nil
		}
		return fileState{}, txnerrors.NewReadFailedError("read", key, err)
	}

	// Only regular files participate in the projection. A directory at
	// the key is treated as absent for file operations.
	if !info.Mode().IsRegular() {
		st := fileState{Exists: false}
		t.projection[key] = st
		return st, nil
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return fileState{}, txnerrors.NewReadFailedError("read", key, err)
	}

	st := fileState{Content: string(data), Exists: true}
	t.projection[key] = st
	return st, nil
}
