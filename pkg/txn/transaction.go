// Package txn implements a transactional staging layer over a real
// filesystem. Callers queue file mutations against a project root; nothing
// touches disk until an explicit Commit, and a committed transaction can be
// rolled back to the exact pre-transaction state.
//
// A Transaction gives callers an illusion of immediate, consistent file
// state: every ReadFile and FileExists answers from a projection that folds
// all staged operations over the pre-transaction content. The queue of
// staged operations is the audit trail; the projection is the
// materialization source for Commit.
//
// A Transaction is not safe for concurrent use. Exactly one transaction
// should be active against a given root at a time; this is a documented
// constraint, not an enforced one.
package txn

import (
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/stagefs/stagefs/internal/logger"
	txnerrors "github.com/stagefs/stagefs/pkg/txn/errors"
)

const defaultParallelism = 4

// TransformFunc rewrites file content. Implementations must be pure and
// synchronous: staging calls from inside a transform would observe the
// projection mid-update.
type TransformFunc func(content string) string

// Transaction is an owned, non-shared staging transaction against one
// project root. All fields are reset by Initialize and discarded when the
// transaction goes out of scope.
type Transaction struct {
	id   uuid.UUID
	root string
	log  *slog.Logger

	ops        []FileOperation
	nextID     uint64
	projection map[string]fileState
	originals  map[string]originalState
	committed  bool

	// diskTouched is set the moment Commit starts mutating disk, so a
	// rollback after a failed (partial) commit restores instead of
	// merely discarding the queue.
	diskTouched bool

	atomicWrites bool
	parallelism  int
	metrics      Metrics
}

// Option configures a Transaction at construction time.
type Option func(*Transaction)

// WithMetrics attaches a metrics recorder. A nil recorder is allowed and
// disables recording.
func WithMetrics(m Metrics) Option {
	return func(t *Transaction) { t.metrics = m }
}

// WithAtomicWrites controls whether commit writes each file via a temporary
// file plus rename (the default) or writes in place. Atomic writes give
// per-file atomicity; cross-file atomicity is best effort either way.
func WithAtomicWrites(enabled bool) Option {
	return func(t *Transaction) { t.atomicWrites = enabled }
}

// WithParallelism bounds the number of concurrent per-file writes during
// commit. Values below one fall back to the default.
func WithParallelism(n int) Option {
	return func(t *Transaction) {
		if n >= 1 {
			t.parallelism = n
		}
	}
}

// New creates a transaction for the project rooted at rootDir. The root
// must be an absolute path. Callers must call Initialize before staging;
// New does so once on their behalf.
func New(rootDir string, opts ...Option) (*Transaction, error) {
	if rootDir == "" {
		return nil, txnerrors.NewInvalidPathError(rootDir, "project root must not be empty")
	}
	if !filepath.IsAbs(rootDir) {
		return nil, txnerrors.NewInvalidPathError(rootDir, "project root must be an absolute path")
	}

	t := &Transaction{
		root:         filepath.Clean(rootDir),
		atomicWrites: true,
		parallelism:  defaultParallelism,
	}
	for _, opt := range opts {
		opt(t)
	}

	t.Initialize()
	return t, nil
}

// Initialize resets all internal state, discarding any staged operations,
// captured originals, and the committed flag. It may be called again to
// reuse the transaction object for a fresh transaction.
func (t *Transaction) Initialize() {
	t.id = uuid.New()
	t.ops = nil
	t.nextID = 0
	t.projection = make(map[string]fileState)
	t.originals = make(map[string]originalState)
	t.committed = false
	t.diskTouched = false
	t.log = logger.With("txn_id", t.id.String(), "root", t.root)

	t.log.Debug("transaction initialized")
}

// ID returns the transaction identifier, regenerated on every Initialize.
func (t *Transaction) ID() uuid.UUID {
	return t.id
}

// Root returns the absolute project root the transaction operates on.
func (t *Transaction) Root() string {
	return t.root
}

// IsCommitted reports whether Commit has completed for this transaction.
func (t *Transaction) IsCommitted() bool {
	return t.committed
}

// fullPath maps a canonical key back to an absolute path under the root.
func (t *Transaction) fullPath(key string) string {
	return filepath.Join(t.root, filepath.FromSlash(key))
}

// appendOp appends one operation to the queue and assigns its sequence ID.
func (t *Transaction) appendOp(kind OperationKind, key, content string) {
	t.nextID++
	t.ops = append(t.ops, FileOperation{
		ID:      t.nextID,
		Path:    key,
		Kind:    kind,
		Content: content,
	})
	t.recordStaged(kind)
	t.log.Debug("operation staged", "op", string(kind), "path", key, "seq", t.nextID)
}

// ============================================================================
// Read surface
// ============================================================================

// ReadFile returns the projected content of path: the result of applying
// every staged operation for it, in order, to the pre-transaction content.
// Reads are O(1) once a path is cached; a path never staged or read before
// is read from disk exactly once.
func (t *Transaction) ReadFile(path string) (string, error) {
	key, err := resolvePath(t.root, path)
	if err != nil {
		return "", err
	}
	st, err := t.currentState(key)
	if err != nil {
		return "", err
	}
	if !st.Exists {
		return "", txnerrors.NewNotFoundError("read", key)
	}
	return st.Content, nil
}

// FileExists reports whether path exists in the projected state. Like
// ReadFile it never touches disk once the path is cached.
func (t *Transaction) FileExists(path string) (bool, error) {
	key, err := resolvePath(t.root, path)
	if err != nil {
		return false, err
	}
	st, err := t.currentState(key)
	if err != nil {
		return false, err
	}
	return st.Exists, nil
}

// ============================================================================
// Write surface (staging)
// ============================================================================

// CreateFile stages the creation of a new file. It fails with a
// CreateConflict error if the path already exists in the projected state;
// re-creation after a staged delete is allowed.
func (t *Transaction) CreateFile(path, content string) error {
	key, err := resolvePath(t.root, path)
	if err != nil {
		return err
	}
	if err := t.captureOriginal(key); err != nil {
		return err
	}
	st, err := t.currentState(key)
	if err != nil {
		return err
	}
	if st.Exists {
		return txnerrors.NewCreateConflictError(key)
	}

	t.appendOp(OpCreate, key, content)
	t.projection[key] = fileState{Content: content, Exists: true}
	return nil
}

// ModifyFile stages a full content replacement of an existing file.
func (t *Transaction) ModifyFile(path, content string) error {
	key, err := resolvePath(t.root, path)
	if err != nil {
		return err
	}
	if err := t.captureOriginal(key); err != nil {
		return err
	}
	st, err := t.currentState(key)
	if err != nil {
		return err
	}
	if !st.Exists {
		return txnerrors.NewMissingFileError("modify", key)
	}

	t.appendOp(OpModify, key, content)
	t.projection[key] = fileState{Content: content, Exists: true}
	return nil
}

// AppendToFile stages appending content to an existing file.
func (t *Transaction) AppendToFile(path, content string) error {
	key, err := resolvePath(t.root, path)
	if err != nil {
		return err
	}
	if err := t.captureOriginal(key); err != nil {
		return err
	}
	st, err := t.currentState(key)
	if err != nil {
		return err
	}
	if !st.Exists {
		return txnerrors.NewMissingFileError("append", key)
	}

	t.appendOp(OpAppend, key, content)
	t.projection[key] = fileState{Content: st.Content + content, Exists: true}
	return nil
}

// PrependToFile stages prepending content to an existing file.
func (t *Transaction) PrependToFile(path, content string) error {
	key, err := resolvePath(t.root, path)
	if err != nil {
		return err
	}
	if err := t.captureOriginal(key); err != nil {
		return err
	}
	st, err := t.currentState(key)
	if err != nil {
		return err
	}
	if !st.Exists {
		return txnerrors.NewMissingFileError("prepend", key)
	}

	t.appendOp(OpPrepend, key, content)
	t.projection[key] = fileState{Content: content + st.Content, Exists: true}
	return nil
}

// DeleteFile stages the deletion of an existing file.
func (t *Transaction) DeleteFile(path string) error {
	key, err := resolvePath(t.root, path)
	if err != nil {
		return err
	}
	if err := t.captureOriginal(key); err != nil {
		return err
	}
	st, err := t.currentState(key)
	if err != nil {
		return err
	}
	if !st.Exists {
		return txnerrors.NewMissingFileError("delete", key)
	}

	t.appendOp(OpDelete, key, "")
	t.projection[key] = fileState{Content: "", Exists: false}
	return nil
}

// OverwriteFile stages a create if the path does not exist in the projected
// state, or a modify if it does.
func (t *Transaction) OverwriteFile(path, content string) error {
	exists, err := t.FileExists(path)
	if err != nil {
		return err
	}
	if exists {
		return t.ModifyFile(path, content)
	}
	return t.CreateFile(path, content)
}

// TransformFile reads the current projected content, applies fn, and stages
// the result as a modify. Unreadable paths fall back to empty input; the
// modify precondition still applies, so transforming a nonexistent file
// fails with a MissingFile error.
func (t *Transaction) TransformFile(path string, fn TransformFunc) error {
	content, err := t.ReadFile(path)
	if err != nil {
		content = ""
	}
	return t.ModifyFile(path, fn(content))
}

// ============================================================================
// Transaction control
// ============================================================================

// Preview returns a copy of the staged operation queue in append order,
// suitable for display before commit.
func (t *Transaction) Preview() []FileOperation {
	ops := make([]FileOperation, len(t.ops))
	copy(ops, t.ops)
	return ops
}
