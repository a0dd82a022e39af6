package app

import (
	"context"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"wanderbook/internal/adapters/observability"
	"wanderbook/internal/domain"
)

const checkoutCurrency = "usd"

// PaymentService drives the booking/payment state machine.
type PaymentService struct {
	users     domain.UserRepository
	bookings  domain.BookingRepository
	payments  domain.PaymentRepository
	checkout  domain.CheckoutProvider
	publisher domain.EventPublisher
	now       func() time.Time
}

func NewPaymentService(u domain.UserRepository, b domain.BookingRepository, p domain.PaymentRepository, c domain.CheckoutProvider, pub domain.EventPublisher) *PaymentService {
	return &PaymentService{users: u, bookings: b, payments: p, checkout: c, publisher: pub, now: time.Now}
}

func (s *PaymentService) Backend() string { return s.checkout.Name() }

// CreateCheckout opens a provider checkout for a pending booking and records
// an initiated transaction for it.
func (s *PaymentService) CreateCheckout(ctx context.Context, who Resolution, req domain.CheckoutSessionRequest) (domain.CheckoutSession, error) {
	req.BookingID = strings.TrimSpace(req.BookingID)
	if req.BookingID == "" {
		return domain.CheckoutSession{}, domain.NewInvalidInput("booking_id is required")
	}
	origin, err := parseOrigin(req.OriginURL)
	if err != nil {
		return domain.CheckoutSession{}, err
	}

	b, err := s.bookings.GetBooking(ctx, req.BookingID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.CheckoutSession{}, errors.Wrapf(domain.ErrBookingNotFound, "booking %s", req.BookingID)
	}
	if err != nil {
		return domain.CheckoutSession{}, errors.Wrap(err, "load booking")
	}
	if err := s.authorizeBooking(ctx, who, b, req.GuestEmail); err != nil {
		return domain.CheckoutSession{}, err
	}
	if b.Status.IsTerminal() {
		return domain.CheckoutSession{}, domain.NewInvalidInput("booking is already " + b.Status.String())
	}

	sess, err := s.checkout.CreateCheckoutSession(ctx, domain.CheckoutRequest{
		Amount:      b.TotalPrice,
		Currency:    checkoutCurrency,
		Description: b.HotelName + " " + b.CheckIn + " to " + b.CheckOut,
		SuccessURL:  origin + "/payment-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   origin + "/bookings",
		Metadata: map[string]string{
			"booking_id": b.BookingID,
			"user_id":    b.UserID,
			"hotel_name": b.HotelName,
		},
	})
	if err != nil {
		return domain.CheckoutSession{}, err
	}

	p := domain.PaymentTransaction{
		PaymentID:     newID("payment"),
		SessionID:     sess.SessionID,
		BookingID:     b.BookingID,
		UserID:        b.UserID,
		Amount:        b.TotalPrice,
		Currency:      checkoutCurrency,
		PaymentStatus: domain.PaymentPending,
		Status:        domain.TransactionInitiated,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.payments.CreatePayment(ctx, p); err != nil {
		return domain.CheckoutSession{}, errors.Wrap(err, "store payment transaction")
	}
	log.Info().Str("booking_id", b.BookingID).Str("session_id", sess.SessionID).
		Str("backend", s.checkout.Name()).Msg("checkout session created")
	return sess, nil
}

// CheckoutStatus asks the provider and applies the paid transition when it reports paid.
// A provider that reports no amount gets it from the stored transaction.
func (s *PaymentService) CheckoutStatus(ctx context.Context, sessionID string) (domain.CheckoutStatus, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.CheckoutStatus{}, domain.NewInvalidInput("session_id is required")
	}
	st, err := s.checkout.GetCheckoutStatus(ctx, sessionID)
	if err != nil {
		return domain.CheckoutStatus{}, err
	}
	if st.AmountTotal == 0 {
		p, err := s.payments.GetPaymentBySession(ctx, sessionID)
		switch {
		case err == nil:
			st.AmountTotal = int64(math.Round(p.Amount * 100))
			st.Currency = p.Currency
		case !errors.Is(err, domain.ErrNotFound):
			return domain.CheckoutStatus{}, errors.Wrap(err, "load payment transaction")
		}
	}
	if st.Currency == "" {
		st.Currency = checkoutCurrency
	}
	if st.Paid() {
		if _, err := s.MarkPaid(ctx, sessionID, "status"); err != nil {
			return domain.CheckoutStatus{}, err
		}
	}
	return st, nil
}

// HandleWebhook verifies a provider notification and applies it. Verification
// failures map to ErrWebhookVerificationFailed; anything after that surfaces as is.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.checkout.HandleWebhook(ctx, payload, signature)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "verify webhook"), domain.ErrWebhookVerificationFailed)
	}
	if !ev.Settles() {
		log.Debug().Str("event", ev.EventType).Str("session_id", ev.SessionID).
			Str("payment_status", ev.PaymentStatus).Msg("ignoring webhook event")
		return nil
	}
	_, err = s.MarkPaid(ctx, ev.SessionID, "webhook")
	return err
}

// MarkPaid moves the transaction to paid/completed and its booking to confirmed.
// Both writes are conditional, so concurrent or repeated calls change each
// record at most once. It reports whether this call moved the transaction.
func (s *PaymentService) MarkPaid(ctx context.Context, sessionID, source string) (bool, error) {
	p, err := s.payments.GetPaymentBySession(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		observability.ObservePayment(source, "unknown")
		log.Warn().Str("session_id", sessionID).Str("source", source).Msg("paid notification for unknown checkout session")
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "load payment transaction")
	}

	moved, err := s.payments.MarkPaid(ctx, sessionID)
	if err != nil {
		return false, errors.Wrap(err, "mark payment paid")
	}

	b, err := s.bookings.GetBooking(ctx, p.BookingID)
	if err != nil {
		return moved, errors.Wrap(err, "load booking")
	}
	// Re-applied even when the transaction was already paid, which repairs a
	// booking left pending by an interrupted earlier call.
	confirmed := false
	if b.Status.CanTransitionTo(domain.BookingConfirmed) {
		if confirmed, err = s.bookings.ConfirmBooking(ctx, p.BookingID); err != nil {
			return moved, errors.Wrap(err, "confirm booking")
		}
	}

	switch {
	case moved:
		observability.ObservePayment(source, "transitioned")
	default:
		observability.ObservePayment(source, "noop")
	}
	if confirmed {
		log.Info().Str("booking_id", p.BookingID).Str("session_id", sessionID).Str("source", source).Msg("booking confirmed")
		s.publishConfirmed(ctx, p, b)
	}
	return moved, nil
}

func (s *PaymentService) publishConfirmed(ctx context.Context, p domain.PaymentTransaction, b domain.Booking) {
	if s.publisher == nil {
		return
	}
	ev := domain.BookingConfirmedEvent{
		BookingID:   p.BookingID,
		HotelID:     b.HotelID,
		HotelName:   b.HotelName,
		UserID:      p.UserID,
		SessionID:   p.SessionID,
		Amount:      p.Amount,
		Currency:    p.Currency,
		ConfirmedAt: s.now().UTC(),
	}
	if err := s.publisher.PublishBookingConfirmed(ctx, ev); err != nil {
		log.Warn().Err(err).Str("booking_id", p.BookingID).Msg("publish booking.confirmed failed")
	}
}

// authorizeBooking allows the owner, or an anonymous caller quoting the guest
// email of a booking that belongs to a guest user. Bookings of registered
// accounts need that account's session.
func (s *PaymentService) authorizeBooking(ctx context.Context, who Resolution, b domain.Booking, guestEmail string) error {
	switch who.Kind {
	case Authenticated:
		if who.User.UserID != b.UserID {
			return domain.ErrNotAuthorized
		}
		return nil
	case Unauthenticated:
		email := domain.NormalizeEmail(guestEmail)
		if email == "" {
			return domain.ErrNotAuthenticated
		}
		if email != domain.NormalizeEmail(b.GuestEmail) {
			return domain.ErrNotAuthorized
		}
		u, err := s.users.GetUser(ctx, b.UserID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotAuthorized
		}
		if err != nil {
			return errors.Wrap(err, "load booking owner")
		}
		if !u.Guest {
			return domain.ErrNotAuthenticated
		}
		return nil
	}
	_, err := who.Require()
	return err
}

func parseOrigin(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", domain.NewInvalidInput("origin_url must be an absolute http(s) URL")
	}
	return strings.TrimRight(u.Scheme+"://"+u.Host+u.Path, "/"), nil
}
