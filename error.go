package aoa

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrDone is returned by a role's HandleEvent when the session has
// nothing left to do.
var ErrDone = errors.New("session done")

// StatusError is a non-zero status returned by the host stack or the
// controller for one operation.
type StatusError struct {
	Op     string
	Status uint8
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status 0x%02X", e.Op, e.Status)
}

// Status returns the numeric stack status carried by err, 0 if err is
// nil, or -1 if err carries no status.
func Status(err error) int {
	if err == nil {
		return 0
	}
	if se, ok := errors.Cause(err).(*StatusError); ok {
		return int(se.Status)
	}
	return -1
}
