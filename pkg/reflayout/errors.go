package reflayout

import "errors"

// ErrInvalidName is returned by ValidateWriter and ValidateGraph when a
// name fails validation (empty, path traversal, length, forbidden
// character).
var ErrInvalidName = errors.New("reflayout: invalid name")
