// Package apperr defines the error taxonomy shared by the note store, the search engine and the API.
package apperr

import (
	"errors"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrValidation marks bad input: empty content, malformed vector, invalid top-k.
	ErrValidation = goerr.New("validation error")
	// ErrNotFound marks an operation on an unknown note id.
	ErrNotFound = goerr.New("not found")
	// ErrDependency marks an external service that is unavailable or returned unusable data.
	ErrDependency = goerr.New("dependency error")
	// ErrSchema marks a persistence inconsistency such as a corrupt stored vector.
	ErrSchema = goerr.New("schema error")
)

// Validation wraps ErrValidation with a message and optional values.
func Validation(msg string, opts ...goerr.Option) error {
	return goerr.Wrap(ErrValidation, msg, opts...)
}

// NotFound wraps ErrNotFound with a message and optional values.
func NotFound(msg string, opts ...goerr.Option) error {
	return goerr.Wrap(ErrNotFound, msg, opts...)
}

// Dependency wraps cause so that it matches ErrDependency as well as the original error.
func Dependency(cause error, msg string, opts ...goerr.Option) error {
	if cause == nil {
		return goerr.Wrap(ErrDependency, msg, opts...)
	}
	return goerr.Wrap(&dependencyError{cause: cause}, msg, opts...)
}

// Schema wraps cause so that it matches ErrSchema.
func Schema(cause error, msg string, opts ...goerr.Option) error {
	if cause == nil {
		return goerr.Wrap(ErrSchema, msg, opts...)
	}
	return goerr.Wrap(&schemaError{cause: cause}, msg, opts...)
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsDependency reports whether err is a dependency error.
func IsDependency(err error) bool { return errors.Is(err, ErrDependency) }

// IsSchema reports whether err is a schema error.
func IsSchema(err error) bool { return errors.Is(err, ErrSchema) }

// HTTPStatus maps the taxonomy to an HTTP status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsValidation(err):
		return http.StatusBadRequest
	case IsNotFound(err):
		return http.StatusNotFound
	case IsDependency(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// dependencyError keeps both the sentinel and the underlying cause reachable through errors.Is.
type dependencyError struct{ cause error }

func (e *dependencyError) Error() string   { return ErrDependency.Error() + ": " + e.cause.Error() }
func (e *dependencyError) Unwrap() []error { return []error{ErrDependency, e.cause} }

type schemaError struct{ cause error }

func (e *schemaError) Error() string   { return ErrSchema.Error() + ": " + e.cause.Error() }
func (e *schemaError) Unwrap() []error { return []error{ErrSchema, e.cause} }
