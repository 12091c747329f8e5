package store

import "errors"

// ErrNotFound is returned by lookups for records that do not exist.
// Callers distinguish missing records from query failures with errors.Is.
var ErrNotFound = errors.New("store: record not found")
