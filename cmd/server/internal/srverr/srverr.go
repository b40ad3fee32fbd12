package srverr

import "errors"

// Returned when a value placed on the echo context by a middleware has the wrong type
var ErrTypeAssertMismatch = errors.New("type assertion mismatch")
