package repository

import "errors"

// Sentinel error kinds for this package. These allow errors.Is from callers.
var (
	ErrResultNotFound = errors.New("result not found")
	ErrEmptyCaseID    = errors.New("case id must not be empty")
)
