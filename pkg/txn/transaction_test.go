package txn_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagefs/stagefs/pkg/txn"
	txnerrors "github.com/stagefs/stagefs/pkg/txn/errors"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

// newTestTxn creates a transaction rooted at a fresh temp directory.
func newTestTxn(t *testing.T, opts ...txn.Option) (*txn.Transaction, string) {
	t.Helper()

	root := t.TempDir()
	tx, err := txn.New(root, opts...)
	require.NoError(t, err)
	return tx, root
}

// seedFile writes a file under root before the transaction touches it.
func seedFile(t *testing.T, root, rel, content string) {
	t.Helper()

	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

// readDisk reads a file directly from disk, bypassing the transaction.
func readDisk(t *testing.T, root, rel string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func diskExists(t *testing.T, root, rel string) bool {
	t.Helper()

	_, err := os.Lstat(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		require.ErrorIs(t, err, os.ErrNotExist)
		return false
	}
	return true
}

// ============================================================================
// Construction
// ============================================================================

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("RejectsEmptyRoot", func(t *testing.T) {
		t.Parallel()

		_, err := txn.New("")
		require.Error(t, err)
		assert.True(t, txnerrors.IsInvalidPathError(err))
	})

	t.Run("RejectsRelativeRoot", func(t *testing.T) {
		t.Parallel()

		_, err := txn.New("projects/demo")
		require.Error(t, err)
		assert.True(t, txnerrors.IsInvalidPathError(err))
	})

	t.Run("AcceptsAbsoluteRoot", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		tx, err := txn.New(root)
		require.NoError(t, err)
		assert.Equal(t, root, tx.Root())
		assert.False(t, tx.IsCommitted())
		assert.Empty(t, tx.Preview())
	})
}

func TestInitializeResetsState(t *testing.T) {
	t.Parallel()

	tx, _ := newTestTxn(t)
	require.NoError(t, tx.CreateFile("a.txt", "hello"))

	firstID := tx.ID()
	tx.Initialize()

	assert.NotEqual(t, firstID, tx.ID())
	assert.Empty(t, tx.Preview())

	exists, err := tx.FileExists("a.txt")
	require.NoError(t, err)
	assert.False(t, exists, "staged create must not survive Initialize")
}

// ============================================================================
// Staging and projection
// ============================================================================

func TestQueueRecordsEveryOperation(t *testing.T) {
	t.Parallel()

	tx, _ := newTestTxn(t)
	require.NoError(t, tx.CreateFile("a.txt", "hello"))
	require.NoError(t, tx.ModifyFile("a.txt", "world"))
	require.NoError(t, tx.AppendToFile("a.txt", "!"))

	ops := tx.Preview()
	require.Len(t, ops, 3)

	assert.Equal(t, txn.OpCreate, ops[0].Kind)
	assert.Equal(t, txn.OpModify, ops[1].Kind)
	assert.Equal(t, txn.OpAppend, ops[2].Kind)
	for i, op := range ops {
		assert.Equal(t, uint64(i+1), op.ID, "sequence IDs must be strictly increasing")
		assert.Equal(t, "a.txt", op.Path)
	}

	content, err := tx.ReadFile("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "world!", content)
}

func TestProjectionIsFoldOfQueue(t *testing.T) {
	t.Parallel()

	tx, root := newTestTxn(t)
	seedFile(t, root, "notes.txt", "middle")

	require.NoError(t, tx.PrependToFile("notes.txt", "start-"))
	require.NoError(t, tx.AppendToFile("notes.txt", "-end"))

	content, err := tx.ReadFile("notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "start-middle-end", content)

	// Nothing may touch disk before commit.
	assert.Equal(t, "middle", readDisk(t, root, "notes.txt"))
}

func TestCreateConflicts(t *testing.T) {
	t.Parallel()

	t.Run("FileOnDisk", func(t *testing.T) {
		t.Parallel()

		tx, root := newTestTxn(t)
		seedFile(t, root, "a.txt", "existing")

		err := tx.CreateFile("a.txt", "new")
		require.Error(t, err)
		assert.True(t, txnerrors.IsCreateConflictError(err))
	})

	t.Run("StagedCreate", func(t *testing.T) {
		t.Parallel()

		tx, _ := newTestTxn(t)
		require.NoError(t, tx.CreateFile("a.txt", "one"))

		err := tx.CreateFile("a.txt", "two")
		require.Error(t, err)
		assert.True(t, txnerrors.IsCreateConflictError(err))
	})

	t.Run("AllowedAfterStagedDelete", func(t *testing.T) {
		t.Parallel()

		tx, root := newTestTxn(t)
		seedFile(t, root, "a.txt", "old")

		require.NoError(t, tx.DeleteFile("a.txt"))
		require.NoError(t, tx.CreateFile("a.txt", "reborn"))

		content, err := tx.ReadFile("a.txt")
		require.NoError(t, err)
		assert.Equal(t, "reborn", content)
	})
}

func TestMutationsRequireExistingFile(t *testing.T) {
	t.Parallel()

	tx, _ := newTestTxn(t)

	tests := []struct {
		name string
		op   func() error
	}{
		{"Modify", func() error { return tx.ModifyFile("ghost.txt", "x") }},
		{"Append", func() error { return tx.AppendToFile("ghost.txt", "x") }},
		{"Prepend", func() error { return tx.PrependToFile("ghost.txt", "x") }},
		{"Delete", func() error { return tx.DeleteFile("ghost.txt") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op()
			require.Error(t, err)
			assert.True(t, txnerrors.IsMissingFileError(err))
		})
	}

	assert.Empty(t, tx.Preview(), "failed operations must not enter the queue")
}

func TestDeleteHidesFileFromReads(t *testing.T) {
	t.Parallel()

	tx, root := newTestTxn(t)
	seedFile(t, root, "a.txt", "content")

	require.NoError(t, tx.DeleteFile("a.txt"))

	exists, err := tx.FileExists("a.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = tx.ReadFile("a.txt")
	require.Error(t, err)
	assert.True(t, txnerrors.IsNotFoundError(err))

	// The file itself is untouched until commit.
	assert.Equal(t, "content", readDisk(t, root, "a.txt"))
}

func TestOverwriteFile(t *testing.T) {
	t.Parallel()

	tx, root := newTestTxn(t)
	seedFile(t, root, "old.txt", "v1")

	require.NoError(t, tx.OverwriteFile("old.txt", "v2"))
	require.NoError(t, tx.OverwriteFile("new.txt", "v1"))

	ops := tx.Preview()
	require.Len(t, ops, 2)
	assert.Equal(t, txn.OpModify, ops[0].Kind)
	assert.Equal(t, txn.OpCreate, ops[1].Kind)
}

func TestTransformFile(t *testing.T) {
	t.Parallel()

	t.Run("RewritesProjectedContent", func(t *testing.T) {
		t.Parallel()

		tx, root := newTestTxn(t)
		seedFile(t, root, "pkg.json", `{"name":"demo","version":"1.0.0"}`)

		require.NoError(t, tx.TransformFile("pkg.json", func(content string) string {
			return content + "\n"
		}))

		content, err := tx.ReadFile("pkg.json")
		require.NoError(t, err)
		assert.Equal(t, `{"name":"demo","version":"1.0.0"}`+"\n", content)
		assert.Equal(t, `{"name":"demo","version":"1.0.0"}`, readDisk(t, root, "pkg.json"))
	})

	t.Run("SeesEarlierStagedOps", func(t *testing.T) {
		t.Parallel()

		tx, _ := newTestTxn(t)
		require.NoError(t, tx.CreateFile("a.txt", "abc"))
		require.NoError(t, tx.TransformFile("a.txt", func(content string) string {
			return content + content
		}))

		content, err := tx.ReadFile("a.txt")
		require.NoError(t, err)
		assert.Equal(t, "abcabc", content)
	})

	t.Run("MissingFileFails", func(t *testing.T) {
		t.Parallel()

		tx, _ := newTestTxn(t)
		err := tx.TransformFile("ghost.txt", func(content string) string { return content })
		require.Error(t, err)
		assert.True(t, txnerrors.IsMissingFileError(err))
	})
}

func TestReadFallsThroughToDisk(t *testing.T) {
	t.Parallel()

	tx, root := newTestTxn(t)
	seedFile(t, root, "deep/nested/file.txt", "on disk")

	content, err := tx.ReadFile("deep/nested/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "on disk", content)

	_, err = tx.ReadFile("deep/nested/missing.txt")
	require.Error(t, err)
	assert.True(t, txnerrors.IsNotFoundError(err))
}

func TestPathsAreNormalized(t *testing.T) {
	t.Parallel()

	tx, _ := newTestTxn(t)
	require.NoError(t, tx.CreateFile("dir/../a.txt", "hello"))

	// The same file under its clean name.
	content, err := tx.ReadFile("./a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", content)

	ops := tx.Preview()
	require.Len(t, ops, 1)
	assert.Equal(t, "a.txt", ops[0].Path)
}

func TestPathEscapesRejected(t *testing.T) {
	t.Parallel()

	tx, _ := newTestTxn(t)

	for _, path := range []string{"", "  ", ".", "..", "../evil.txt", "a/../../evil.txt", "/etc/passwd"} {
		_, err := tx.ReadFile(path)
		require.Error(t, err, "path %q must be rejected", path)
		assert.True(t, txnerrors.IsInvalidPathError(err), "path %q: got %v", path, err)
	}
}
