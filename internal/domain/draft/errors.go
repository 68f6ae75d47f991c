package draft

import "errors"

// Domain errors for draft editing

var (
	ErrEmptyText       = errors.New("text is empty after sanitizing")
	ErrIndexOutOfRange = errors.New("item index out of range")
	ErrUnknownItemKind = errors.New("unknown item kind")
	ErrNotEditable     = errors.New("tags cannot be edited in place")

	ErrProtectedTag = errors.New("the 'AI generate' tag cannot be deleted")
	ErrReservedTag  = errors.New("the 'AI generate' tag is reserved")
	ErrDuplicateTag = errors.New("tag already exists")

	ErrIncomplete = errors.New("parsed data is incomplete")
)
