package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports missing or invalid input. It is surfaced to the caller and never retried.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return fmt.Sprintf("%s: %s", err.Fields[0].Field, err.Fields[0].Error)
		}
		return ""
	}
	return err.Err.Error()
}

// StateConflictError reports an operation refused because of the current state:
// a closed round, an already submitted round, a no-op rename...
type StateConflictError struct {
	Msg string
}

func NewStateConflictError(format string, args ...interface{}) error {
	return &StateConflictError{Msg: fmt.Sprintf(format, args...)}
}

func (err StateConflictError) Error() string { return err.Msg }

// AuthorizationError reports an identity acting outside of its own scope.
type AuthorizationError struct {
	Msg string
}

func NewAuthorizationError(msg string) error {
	return &AuthorizationError{Msg: msg}
}

func (err AuthorizationError) Error() string { return err.Msg }

// NotFoundError reports an unknown targeted resource.
type NotFoundError struct {
	Resource string
}

func NewNotFoundError(resource string) error {
	return &NotFoundError{Resource: resource}
}

func (err NotFoundError) Error() string { return err.Resource + " not found" }

// PartialBatchFailure reports that some rows of a bulk operation failed.
// The batch itself ran to completion.
type PartialBatchFailure struct {
	Total  int
	Failed int
}

func (err PartialBatchFailure) Error() string {
	return fmt.Sprintf("%d of %d rows failed", err.Failed, err.Total)
}

func IsValidation(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

func IsStateConflict(err error) bool {
	_, ok := errors.Cause(err).(*StateConflictError)
	return ok
}

func IsAuthorization(err error) bool {
	_, ok := errors.Cause(err).(*AuthorizationError)
	return ok
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
