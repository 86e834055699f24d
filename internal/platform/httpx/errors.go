// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for the domain layer. Services wrap these with context;
// handlers map them to the response taxonomy below.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrConflict      = errors.New("conflict")
	ErrValidation    = errors.New("validation failed")
	ErrForbidden     = errors.New("forbidden")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrUnprocessable = errors.New("unprocessable entity")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Unexpected errors collapse to a generic 500 without leaking internals.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict):
		Problem(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrUnprocessable):
		Problem(w, http.StatusUnprocessableEntity, err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "internal error")
	}
}
