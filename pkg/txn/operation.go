package txn

// OperationKind identifies the type of a staged file operation.
type OperationKind string

const (
	// OpCreate stages a new file with the given content.
	OpCreate OperationKind = "create"

	// OpModify replaces the content of an existing file.
	OpModify OperationKind = "modify"

	// OpDelete removes an existing file.
	OpDelete OperationKind = "delete"

	// OpAppend adds content to the end of an existing file.
	OpAppend OperationKind = "append"

	// OpPrepend adds content to the beginning of an existing file.
	OpPrepend OperationKind = "prepend"
)

// Valid reports whether the kind is one of the staged operation kinds.
func (k OperationKind) Valid() bool {
	switch k {
	case OpCreate, OpModify, OpDelete, OpAppend, OpPrepend:
		return true
	default:
		return false
	}
}

// FileOperation is a single staged mutation in the transaction queue.
// Operations are immutable once appended and their queue order is
// significant: the projection for a path is the in-order fold of every
// operation staged for it over the pre-transaction content.
type FileOperation struct {
	// ID is a monotonically increasing counter scoped to one transaction.
	ID uint64

	// Path is the canonical key relative to the project root.
	Path string

	// Kind is the type of mutation.
	Kind OperationKind

	// Content is the operation payload. Empty for delete.
	Content string
}
