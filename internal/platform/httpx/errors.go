package httpx

import (
	"errors"
	"net/http"

	"github.com/locafrota/locafrota/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// The four sentinels in internal/shared cover the whole taxonomy; anything
// else is treated as an internal failure and the detail is withheld.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrInvalidState):
		Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
