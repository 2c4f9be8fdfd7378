package stepper

import (
	"errors"
	"fmt"
)

// ValidationError reports that the external system rejected the supplied
// answers or options. It names the offending step and field because that
// is usually the operator's only diagnostic signal; the reconciler
// surfaces it verbatim.
type ValidationError struct {
	Platform string
	Step     int
	Field    string
	Err      error
}

// NewValidationError creates a ValidationError for the given platform.
func NewValidationError(platform string, step int, field string, err error) *ValidationError {
	return &ValidationError{Platform: platform, Step: step, Field: field, Err: err}
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("platform %q rejected step %d", e.Platform, e.Step)
	if e.Field != "" {
		msg += fmt.Sprintf(" (field %q)", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ValidationError) Unwrap() error { return e.Err }

// Is matches any other ValidationError.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// NotFoundError reports that the target instance no longer exists in the
// external system, e.g. it was removed out-of-band through a different
// interface.
type NotFoundError struct {
	Handle string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("instance %q not found", e.Handle)
}

// Is matches any other NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// TransientError reports a network or host failure that a later pass (or
// a retrying wrapper) may succeed on.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransientError) Unwrap() error { return e.Err }

// Is matches any other TransientError.
func (e *TransientError) Is(target error) bool {
	_, ok := target.(*TransientError)
	return ok
}

// ConflictError reports that the external system already tracks an
// equivalent instance outside this engine's state. It is never treated as
// success: convergence requires manual resolution (adopt or remove the
// out-of-band instance), which is an operator policy decision.
type ConflictError struct {
	Platform string
	Detail   string
}

func (e *ConflictError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("platform %q already configured out-of-band: %s", e.Platform, e.Detail)
	}
	return fmt.Sprintf("platform %q already configured out-of-band", e.Platform)
}

// Is matches any other ConflictError.
func (e *ConflictError) Is(target error) bool {
	_, ok := target.(*ConflictError)
	return ok
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsTransient reports whether err is a TransientError.
func IsTransient(err error) bool {
	var tr *TransientError
	return errors.As(err, &tr)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var cf *ConflictError
	return errors.As(err, &cf)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
