package domain

import (
	"context"
	"time"
)

// HotelProvider is the outbound hotel-search API.
type HotelProvider interface {
	// Configured reports whether real credentials are present.
	Configured() bool
	SearchHotels(ctx context.Context, q SearchQuery) ([]Hotel, error)
	GetHotelDetails(ctx context.Context, id int64) (Hotel, error)
	SupportedDestinations() []string
	Mode() string
	BaseURL() string
}

// HotelCatalog is the static fallback inventory.
type HotelCatalog interface {
	All() []Hotel
	Get(id int64) (Hotel, bool)
	Search(destination string) []Hotel
}

// HotelCache holds provider results; reads only ever see unexpired entries.
type HotelCache interface {
	GetSearch(ctx context.Context, key SearchKey) ([]Hotel, bool, error)
	PutSearch(ctx context.Context, key SearchKey, hotels []Hotel, ttl time.Duration) error
	GetDetail(ctx context.Context, id int64) (Hotel, bool, error)
	PutDetail(ctx context.Context, id int64, h Hotel, ttl time.Duration) error
}

type UserRepository interface {
	GetUser(ctx context.Context, userID string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	// CreateUser fails with ErrConflict when the email is already taken.
	CreateUser(ctx context.Context, u User) error
	// UpsertUser inserts by email or refreshes name and picture, returning the stored user.
	UpsertUser(ctx context.Context, u User) (User, error)
}

type SessionRepository interface {
	CreateSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, token string) (Session, error)
	DeleteSession(ctx context.Context, token string) error
}

type BookingRepository interface {
	CreateBooking(ctx context.Context, b Booking) error
	GetBooking(ctx context.Context, bookingID string) (Booking, error)
	ListBookingsByUser(ctx context.Context, userID string, limit int) ([]Booking, error)
	// ConfirmBooking moves pending_payment -> confirmed and reports whether this call changed it.
	ConfirmBooking(ctx context.Context, bookingID string) (bool, error)
}

type PaymentRepository interface {
	CreatePayment(ctx context.Context, p PaymentTransaction) error
	GetPaymentBySession(ctx context.Context, sessionID string) (PaymentTransaction, error)
	// MarkPaid is a conditional write matching only while payment_status != paid.
	// It reports whether this call performed the transition.
	MarkPaid(ctx context.Context, sessionID string) (bool, error)
}

// Sweeper removes expired cache entries and sessions.
type Sweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// CheckoutProvider is the payment-checkout capability; real and mock backends implement it.
type CheckoutProvider interface {
	Name() string
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	GetCheckoutStatus(ctx context.Context, sessionID string) (CheckoutStatus, error)
	// HandleWebhook verifies and decodes a provider notification; fails with ErrInvalidSignature.
	HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookEvent, error)
}

// IdentityProvider exchanges a one-time session id for a user identity.
type IdentityProvider interface {
	ExchangeSession(ctx context.Context, sessionID string) (ExternalIdentity, error)
}

type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error
}
