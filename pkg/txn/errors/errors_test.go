package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessageFormat(t *testing.T) {
	t.Parallel()

	t.Run("CodeAndMessage", func(t *testing.T) {
		t.Parallel()

		err := NewInvalidPathError("../evil", "path escapes the project root")
		assert.Equal(t, "InvalidPath: path escapes the project root (path: ../evil)", err.Error())
	})

	t.Run("IncludesOp", func(t *testing.T) {
		t.Parallel()

		err := NewMissingFileError("modify", "a.txt")
		assert.Equal(t, "MissingFile: file does not exist (op: modify) (path: a.txt)", err.Error())
	})

	t.Run("IncludesCause", func(t *testing.T) {
		t.Parallel()

		err := NewCommitFailedError("a.txt", fs.ErrPermission)
		assert.Contains(t, err.Error(), "CommitFailed")
		assert.Contains(t, err.Error(), "permission denied")
	})
}

func TestUnwrap(t *testing.T) {
	t.Parallel()

	cause := fs.ErrPermission
	err := NewReadFailedError("read", "a.txt", cause)

	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestCodeCheckers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"InvalidPath", NewInvalidPathError("", "empty"), IsInvalidPathError},
		{"NotFound", NewNotFoundError("read", "a.txt"), IsNotFoundError},
		{"CreateConflict", NewCreateConflictError("a.txt"), IsCreateConflictError},
		{"MissingFile", NewMissingFileError("delete", "a.txt"), IsMissingFileError},
		{"AlreadyCommitted", NewAlreadyCommittedError(), IsAlreadyCommittedError},
		{"CommitFailed", NewCommitFailedError("a.txt", fs.ErrPermission), IsCommitFailedError},
		{"RollbackFailed", NewRollbackFailedError("a.txt", fs.ErrPermission), IsRollbackFailedError},
		{"ReadFailed", NewReadFailedError("read", "a.txt", fs.ErrPermission), IsReadFailedError},
		{"InvalidUpdate", NewInvalidUpdateError("a.txt", "unknown kind"), IsInvalidUpdateError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.True(t, tt.check(tt.err))
			assert.False(t, tt.check(errors.New("unrelated")))
			assert.False(t, tt.check(nil))
		})
	}
}

func TestCheckersSeeThroughWrapping(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("staging plan: %w", NewCreateConflictError("a.txt"))
	assert.True(t, IsCreateConflictError(err))
	assert.False(t, IsMissingFileError(err))

	var txErr *TxError
	require.True(t, errors.As(err, &txErr))
	assert.Equal(t, ErrCreateConflict, txErr.Code)
}

func TestErrorCodeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "AlreadyCommitted", ErrAlreadyCommitted.String())
	assert.Equal(t, "Unknown(99)", ErrorCode(99).String())
}
