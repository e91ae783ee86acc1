package memory

import "errors"

// ErrNotFound is returned when a claim, action or review item does not exist.
var ErrNotFound = errors.New("memory record not found")

// ErrDuplicateID is returned when CreateAction is given an ID that is
// already stored.
var ErrDuplicateID = errors.New("memory record id already exists")
