package knowledge

import "errors"

var (
	// ErrNotFound is returned when a file or collection does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedFileType is returned when a file extension has no loader.
	ErrUnsupportedFileType = errors.New("unsupported file type")
)
