package media

import "errors"

// Common errors
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
)
