package httpx

import (
	"errors"
	"net/http"

	"github.com/meridian-procure/meridian-procure/internal/shared"
)

// RespondError maps the engine error taxonomy to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrPolicy):
		Problem(w, http.StatusUnprocessableEntity, "Policy Violation", err.Error())
	case errors.Is(err, shared.ErrTransient):
		Problem(w, http.StatusServiceUnavailable, "Dependency Unavailable", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
