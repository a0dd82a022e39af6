package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"wanderbook/internal/domain"
)

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps the error taxonomy onto a status and a client-safe detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *domain.InvalidInputError
	var unsupported *domain.UnsupportedDestinationError

	switch {
	case errors.As(err, &unsupported):
		writeProblem(w, http.StatusBadRequest, "Unsupported Destination", unsupported.Error())
	case errors.As(err, &invalid):
		writeProblem(w, http.StatusBadRequest, "Invalid Input", invalid.Msg)
	case errors.Is(err, domain.ErrWebhookVerificationFailed):
		writeProblem(w, http.StatusBadRequest, "Webhook Verification Failed", "signature verification failed")
	case errors.Is(err, domain.ErrSessionExpired):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "session expired")
	case errors.Is(err, domain.ErrNotAuthenticated):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "not authenticated")
	case errors.Is(err, domain.ErrNotAuthorized):
		writeProblem(w, http.StatusForbidden, "Forbidden", "not authorized")
	case errors.Is(err, domain.ErrHotelNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "hotel not found")
	case errors.Is(err, domain.ErrBookingNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "booking not found")
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "not found")
	case errors.Is(err, domain.ErrProviderUnavailable):
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("upstream provider unavailable")
		writeProblem(w, http.StatusBadGateway, "Bad Gateway", "upstream provider unavailable")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "internal error")
	}
}
