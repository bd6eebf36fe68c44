package aoa

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// A Step is one configuration call in a sequence.
type Step struct {
	Name string // logged on success, e.g. "Advertising set created"
	Op   string // operation named on failure, e.g. "create advertising set"
	Do   func(ctx context.Context) error
}

// StepError is returned by Sequence.Run for the step that failed.
type StepError struct {
	Index int
	Op    string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("failed to %s (err %d): %v", e.Op, Status(e.Err), e.Err)
}

// Cause returns the stack error, so errors.Cause reaches a *StatusError.
func (e *StepError) Cause() error { return e.Err }

// Unwrap supports errors.Is and errors.As.
func (e *StepError) Unwrap() error { return e.Err }

// Sequence is an ordered list of configuration steps.
type Sequence []Step

// Run executes the steps in order and stops at the first failure. Steps
// that already succeeded are not undone.
func (q Sequence) Run(ctx context.Context, log *logrus.Entry) error {
	for i, s := range q {
		if err := ctx.Err(); err != nil {
			return &StepError{Index: i, Op: s.Op, Err: err}
		}
		if err := s.Do(ctx); err != nil {
			log.WithFields(logrus.Fields{"op": s.Op, "status": Status(err)}).
				Errorf("Failed to %s (err %d)", s.Op, Status(err))
			return &StepError{Index: i, Op: s.Op, Err: err}
		}
		log.Info(s.Name)
	}
	return nil
}
