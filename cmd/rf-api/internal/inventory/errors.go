package inventory

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	errNotFound           = fmt.Errorf("NotFound")
	errConflict           = fmt.Errorf("Conflict")
	errInternal           = fmt.Errorf("Internal")
	errIntegrityViolation = fmt.Errorf("IntegrityViolation")
)

// NotFound creates a new notfound error with a given error message.
func NotFound(format string, args ...interface{}) error {
	return errors.Wrapf(errNotFound, format, args...)
}

// IsNotFound checks if an error is a notfound error.
func IsNotFound(e error) bool {
	return errors.Cause(e) == errNotFound
}

// Conflict creates a new conflict error with a given error message.
func Conflict(format string, args ...interface{}) error {
	return errors.Wrapf(errConflict, format, args...)
}

// IsConflict checks if an error is a conflict error.
func IsConflict(e error) bool {
	return errors.Cause(e) == errConflict
}

// Internal creates a new Internal error with a given error message and the original error.
func Internal(err error, format string, args ...interface{}) error {
	if err == nil {
		return errors.Wrapf(errInternal, format, args...)
	}
	return errors.Wrap(errInternal, errors.Wrapf(err, format, args...).Error())
}

// IsInternal checks if an error is a Internal error.
func IsInternal(e error) bool {
	return errors.Cause(e) == errInternal
}

// IntegrityViolation creates an error that signals corrupted identity data in
// the registry, e.g. two managed entities sharing one serial number. Such
// errors must never be resolved silently.
func IntegrityViolation(format string, args ...interface{}) error {
	return errors.Wrapf(errIntegrityViolation, format, args...)
}

// IsIntegrityViolation checks if an error is an integrity violation error.
func IsIntegrityViolation(e error) bool {
	return errors.Cause(e) == errIntegrityViolation
}

// InvalidTransitionError is returned when a lifecycle transition is attempted
// that is not present in the transition table of the entity kind. No
// persistent state is touched when this error is returned.
type InvalidTransitionError struct {
	EntityID string
	Old      string
	New      string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %q to %q for entity %q", e.Old, e.New, e.EntityID)
}

// IsInvalidTransition checks if an error is an invalid transition error.
func IsInvalidTransition(e error) bool {
	var i *InvalidTransitionError
	return errors.As(e, &i)
}
