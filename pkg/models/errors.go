package models

import "errors"

// ErrStatusTransition is returned when a report row is asked to make an
// illegal status transition. The only legal transitions are
// pending -> success and pending -> error; terminal states never change.
var ErrStatusTransition = errors.New("models: invalid report status transition")
