package mines

import "errors"

// ErrOutOfRange is returned for cell ids or positions that are not on the
// board. Disallowed moves on valid cells are not errors.
var ErrOutOfRange = errors.New("out of range")
