package service

import "errors"

// Sentinel error kinds for this package. These allow errors.Is from callers.
var (
	ErrNotStarted      = errors.New("service not started")
	ErrInvalidFeatures = errors.New("invalid case features")
)
