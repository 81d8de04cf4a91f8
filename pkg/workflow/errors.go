package workflow

import (
	"errors"
	"fmt"
)

// ErrorList accumulates errors across a phase so the user sees everything
// wrong with a config file in one pass instead of fixing errors one at a
// time.
type ErrorList struct {
	errs []error
}

// Add appends an error. Nil errors are ignored.
func (l *ErrorList) Add(err error) {
	if err != nil {
		l.errs = append(l.errs, err)
	}
}

// Addf appends a formatted error.
func (l *ErrorList) Addf(format string, args ...any) {
	l.errs = append(l.errs, fmt.Errorf(format, args...))
}

// Len reports the number of accumulated errors.
func (l *ErrorList) Len() int {
	return len(l.errs)
}

// Errors returns the accumulated errors.
func (l *ErrorList) Errors() []error {
	return l.errs
}

// Err returns nil if the list is empty, otherwise a single error naming the
// phase and joining every accumulated error.
func (l *ErrorList) Err(phase string) error {
	if len(l.errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s failed with %d error(s): %w", phase, len(l.errs), errors.Join(l.errs...))
}
