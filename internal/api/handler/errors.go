package handler

import (
	"errors"
	"net/http"

	"github.com/scoutops/scoutops/internal/api/response"
	"github.com/scoutops/scoutops/pkg/errs"
)

// respondError maps a service error to the wire error envelope. Sentinel
// wrapping in the services means the message already names the entity, so
// it goes out verbatim.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, errs.ErrUnauthorized):
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", err.Error(), nil)
	case errors.Is(err, errs.ErrForbidden):
		response.Error(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	case errors.Is(err, errs.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, errs.ErrConflict):
		response.Error(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, errs.ErrStorage):
		response.Error(w, http.StatusInternalServerError, "STORAGE_ERROR",
			"Evidence storage is unavailable, try again", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}
