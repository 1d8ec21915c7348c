package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique field (user email, vehicle
// number) would collide with an existing record.
var ErrDuplicate = errors.New("duplicate record")
