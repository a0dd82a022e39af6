package domain

import (
	"encoding/json"
	"time"
)

// PaymentStatus and TransactionStatus advance together: pending/initiated -> paid/completed.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

type TransactionStatus string

const (
	TransactionInitiated TransactionStatus = "initiated"
	TransactionCompleted TransactionStatus = "completed"
)

type PaymentTransaction struct {
	PaymentID     string            `json:"payment_id" bson:"payment_id"`
	SessionID     string            `json:"session_id" bson:"session_id"`
	BookingID     string            `json:"booking_id" bson:"booking_id"`
	UserID        string            `json:"user_id" bson:"user_id"`
	Amount        float64           `json:"amount" bson:"amount"`
	Currency      string            `json:"currency" bson:"currency"`
	PaymentStatus PaymentStatus     `json:"payment_status" bson:"payment_status"`
	Status        TransactionStatus `json:"status" bson:"status"`
	CreatedAt     time.Time         `json:"created_at" bson:"created_at"`
}

func (p PaymentTransaction) IsPaid() bool { return p.PaymentStatus == PaymentPaid }

// CheckoutRequest is what the payment provider needs to open a hosted checkout.
type CheckoutRequest struct {
	Amount      float64
	Currency    string
	Description string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

type CheckoutSession struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

// MarshalJSON also writes the redirect under "url", the key hosted-checkout clients read.
func (s CheckoutSession) MarshalJSON() ([]byte, error) {
	type plain CheckoutSession
	return json.Marshal(struct {
		plain
		URL string `json:"url"`
	}{plain(s), s.RedirectURL})
}

// CheckoutStatus is the provider's view of a checkout session.
type CheckoutStatus struct {
	SessionID     string `json:"session_id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	AmountTotal   int64  `json:"amount_total"`
	Currency      string `json:"currency"`
}

func (s CheckoutStatus) Paid() bool { return s.PaymentStatus == string(PaymentPaid) }

const (
	EventCheckoutCompleted     = "checkout.session.completed"
	EventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
)

// WebhookEvent is a verified provider notification. PaymentStatus is the
// session's payment_status at the time the event was sent.
type WebhookEvent struct {
	EventType     string
	SessionID     string
	PaymentStatus string
}

// Settles reports whether the event says the session's money has arrived.
// A completed session can still be unpaid for delayed payment methods.
func (e WebhookEvent) Settles() bool {
	switch e.EventType {
	case EventCheckoutCompleted, EventAsyncPaymentSucceeded:
		return e.PaymentStatus == string(PaymentPaid)
	}
	return false
}

// CheckoutSessionRequest is the client payload for starting a checkout.
type CheckoutSessionRequest struct {
	BookingID  string `json:"booking_id"`
	OriginURL  string `json:"origin_url"`
	GuestEmail string `json:"guest_email,omitempty"`
}
