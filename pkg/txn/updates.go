package txn

import (
	txnerrors "github.com/stagefs/stagefs/pkg/txn/errors"
)

// FsUpdate is the flat interchange shape for bulk import and export of
// staged state. Downstream writers and code-generation tooling consume and
// produce it instead of depending on the transaction internals.
type FsUpdate struct {
	// Path is relative to the project root.
	Path string

	// Content is the full projected content. Ignored for delete.
	Content []byte

	// Kind is create, modify, or delete.
	Kind OperationKind
}

// ToFsUpdates serializes the current projection of every staged path into
// a flat update list, ordered by path. Paths absent in the projection
// export as delete; new paths as create; pre-existing paths as modify.
func (t *Transaction) ToFsUpdates() []FsUpdate {
	keys := t.stagedKeys()
	updates := make([]FsUpdate, 0, len(keys))

	for _, key := range keys {
		st := t.projection[key]
		if !st.Exists {
			updates = append(updates, FsUpdate{Path: key, Kind: OpDelete})
			continue
		}

		kind := OpCreate
		if orig := t.originals[key]; orig.Existed {
			kind = OpModify
		}
		updates = append(updates, FsUpdate{
			Path:    key,
			Content: []byte(st.Content),
			Kind:    kind,
		})
	}
	return updates
}

// FromFsUpdates stages the equivalent operations for a bulk update list.
// Create and modify kinds stage create-or-overwrite, so importers need not
// know whether a path already exists; delete kinds stage a delete. Each
// update is validated and staged in order; a failing update stops the
// import with nothing further staged.
func (t *Transaction) FromFsUpdates(updates []FsUpdate) error {
	for _, u := range updates {
		switch u.Kind {
		case OpCreate, OpModify:
			if err := t.OverwriteFile(u.Path, string(u.Content)); err != nil {
				return err
			}
		case OpAppend:
			if err := t.AppendToFile(u.Path, string(u.Content)); err != nil {
				return err
			}
		case OpPrepend:
			if err := t.PrependToFile(u.Path, string(u.Content)); err != nil {
				return err
			}
		case OpDelete:
			if err := t.DeleteFile(u.Path); err != nil {
				return err
			}
		default:
			return txnerrors.NewInvalidUpdateError(u.Path, "unknown update kind "+string(u.Kind))
		}
	}
	return nil
}
