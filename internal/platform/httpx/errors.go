package httpx

import (
	"errors"
	"net/http"

	"github.com/meridian-erp/meridian/internal/shared"
)

// RespondError maps core error kinds to HTTP responses using RFC7807.
// Unknown errors are reported as a generic persistence failure without
// leaking storage details.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrStateConflict):
		Problem(w, http.StatusConflict, "State Conflict", err.Error())
	case errors.Is(err, shared.ErrLimitExceeded):
		Problem(w, http.StatusUnprocessableEntity, "Limit Exceeded", err.Error())
	case errors.Is(err, shared.ErrConfiguration):
		Problem(w, http.StatusUnprocessableEntity, "Configuration Incomplete", err.Error())
	case errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrArithmetic):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
