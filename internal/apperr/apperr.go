// Package apperr defines the error classes shared by services, sockets and
// HTTP handlers. Wrap a sentinel with fmt.Errorf("...: %w", ErrNotFound) and
// test with errors.Is.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation marks missing or malformed input. Nothing was mutated.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an absent row, including rows owned by another user.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a uniqueness clash the caller must resolve.
	ErrConflict = errors.New("already exists")

	// ErrForbidden marks an authenticated caller acting outside their scope.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthorized marks a missing or invalid session.
	ErrUnauthorized = errors.New("unauthorized")
)

// HTTPStatus maps an error to the response status handlers should use.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
