package txn

import (
	"path/filepath"
	"strings"

	txnerrors "github.com/stagefs/stagefs/pkg/txn/errors"
)

// resolvePath normalizes a caller-supplied path against the project root
// into the canonical key used by the queue, projection, and original-state
// store: a cleaned, slash-separated path relative to root.
//
// Both relative and absolute inputs are accepted. Paths that are empty or
// resolve outside the root fail with an InvalidPath error.
func resolvePath(root, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", txnerrors.NewInvalidPathError(path, "path must not be empty")
	}

	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, abs)
	}
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", txnerrors.NewInvalidPathError(path, "path cannot be resolved against the project root")
	}

	if rel == "." {
		return "", txnerrors.NewInvalidPathError(path, "path must name a file inside the project root")
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", txnerrors.NewInvalidPathError(path, "path escapes the project root")
	}

	return filepath.ToSlash(rel), nil
}
