package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/crossingdelta/timeline/internal/domain"
	"github.com/crossingdelta/timeline/internal/security/middleware"
	"github.com/crossingdelta/timeline/pkg/api"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, api.ErrorResponse{Error: message})
}

// writeServiceError maps a domain error to a status code. Unexpected errors
// are logged and answered with the generic fallback message only.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, domain.ErrInvalidCredentials.Error())
	case errors.Is(err, domain.ErrMissingToken):
		writeError(w, http.StatusUnauthorized, domain.ErrMissingToken.Error())
	case errors.Is(err, domain.ErrInvalidToken):
		writeError(w, http.StatusForbidden, domain.ErrInvalidToken.Error())
	default:
		log.Error(fallback,
			slog.String("path", r.URL.Path),
			slog.String("tenant_id", string(middleware.GetTenantFromContext(r.Context()))),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(domain.ErrValidation, errors.New("invalid JSON body"))
	}
	return nil
}
