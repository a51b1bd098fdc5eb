package handlers

import (
	"errors"
	"net/http"

	"github.com/codyseavey/tcg-signals/internal/services"
)

// statusForError maps pipeline errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, services.ErrEmptyFeatures):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrTransientFetch), errors.Is(err, services.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
