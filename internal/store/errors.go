package store

import "errors"

// ErrConflict is returned when a conditional write loses to a concurrent
// writer: the token was already consumed, the rating record changed since it
// was read, or the limbo candidate already exists.
var ErrConflict = errors.New("conditional write conflict")
