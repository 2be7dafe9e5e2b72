package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
)

// errMissingField reports a missing required field in a request body.
func errMissingField(section string, index int, field string) error {
	return fmt.Errorf("%w: %s[%d] missing %s", ErrBadRequest, section, index, field)
}

// errUnknownOutcome reports an invalid outcome label in a training record.
func errUnknownOutcome(index int, label string) error {
	return fmt.Errorf("%w: records[%d] has unknown outcome %q", ErrBadRequest, index, label)
}
