package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"wanderbook/internal/app"
	"wanderbook/internal/domain"
)

// Upper bound for a provider event body.
const maxWebhookBody = 1 << 20

type Handlers struct {
	Hotels   *app.HotelService
	Bookings *app.BookingService
	Payments *app.PaymentService
	Identity *app.IdentityService

	Status        func() app.StatusReport
	Ready         func(ctx context.Context) error
	SessionTTL    time.Duration
	SecureCookies bool
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", h.healthz)

	s.mux.Route("/api", func(r chi.Router) {
		r.Get("/status", h.status)
		r.Post("/hotels/search", h.searchHotels)
		r.Get("/hotels/{id}", h.getHotel)
		r.Get("/payments/checkout/status/{session_id}", h.checkoutStatus)
		r.Post("/webhook/stripe", h.webhook)
		r.Post("/auth/session", h.createSession)

		r.Group(func(r chi.Router) {
			r.Use(Identity(h.Identity))
			r.Post("/bookings/create", h.createBooking)
			r.Get("/bookings", h.listBookings)
			r.Post("/payments/checkout/session", h.createCheckout)
			r.Get("/auth/me", h.me)
			r.Post("/auth/logout", h.logout)
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return domain.NewInvalidInput("request body must be valid JSON")
	}
	return nil
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		// Log but don't fail the whole response; return empty ETag and best-effort body.
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func (h *Handlers) healthz(w http.ResponseWriter, r *http.Request) {
	if h.Ready != nil {
		if err := h.Ready(r.Context()); err != nil {
			log.Warn().Err(err).Msg("readiness check failed")
			writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "store unreachable")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Status())
}

// ---- hotels ----

func (h *Handlers) searchHotels(w http.ResponseWriter, r *http.Request) {
	var q domain.SearchQuery
	if err := decodeJSON(r, &q); err != nil {
		writeError(w, r, err)
		return
	}
	hotels, err := h.Hotels.Search(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hotels)
}

func (h *Handlers) getHotel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	hotel, err := h.Hotels.GetHotel(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	etag, body := calcETagAndBody(hotel)
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write getHotel body")
	}
}

// ---- bookings ----

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var req domain.BookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.Bookings.Create(r.Context(), resolutionFrom(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b.Response())
}

func (h *Handlers) listBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Bookings.List(r.Context(), resolutionFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]domain.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, b.Response())
	}
	writeJSON(w, http.StatusOK, out)
}

// ---- payments ----

func (h *Handlers) createCheckout(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckoutSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.Payments.CreateCheckout(r.Context(), resolutionFrom(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handlers) checkoutStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.Payments.CheckoutStatus(r.Context(), chi.URLParam(r, "session_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		log.Warn().Int64("limit", tooLarge.Limit).Msg("webhook body too large")
		writeProblem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", "webhook body exceeds the size limit")
		return
	case err != nil:
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "could not read request body")
		return
	}
	if err := h.Payments.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// ---- auth ----

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

type sessionResponse struct {
	domain.UserResponse
	SessionToken string `json:"session_token"`
}

func (h *Handlers) createSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, sess, err := h.Identity.ExchangeSession(r.Context(), req.SessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.SetCookie(w, h.sessionCookie(sess.SessionToken, int(h.SessionTTL.Seconds())))
	writeJSON(w, http.StatusOK, sessionResponse{UserResponse: u.Response(), SessionToken: sess.SessionToken})
}

func (h *Handlers) me(w http.ResponseWriter, r *http.Request) {
	u, err := resolutionFrom(r.Context()).Require()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u.Response())
}

func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	res := resolutionFrom(r.Context())
	if _, err := res.Require(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Identity.Logout(r.Context(), res.Session.SessionToken); err != nil {
		writeError(w, r, err)
		return
	}
	http.SetCookie(w, h.sessionCookie("", -1))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *Handlers) sessionCookie(value string, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     sessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	// cross-site frontends need SameSite=None, which browsers only accept with Secure
	if h.SecureCookies {
		c.SameSite = http.SameSiteNoneMode
	}
	return c
}
