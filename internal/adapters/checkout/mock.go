package checkout

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"wanderbook/internal/domain"
)

// Mock completes every checkout immediately. It is selected when no Stripe key
// is configured so the booking flow still runs end to end. It keeps no state;
// amounts come from the stored payment transaction.
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) Name() string { return "mock" }

func (m *Mock) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutSession, error) {
	id := uuid.New()
	sid := "mock_cs_" + hex.EncodeToString(id[:8])
	return domain.CheckoutSession{
		SessionID:   sid,
		RedirectURL: strings.ReplaceAll(req.SuccessURL, "{CHECKOUT_SESSION_ID}", sid),
	}, nil
}

// GetCheckoutStatus reports paid for any session id, known or not.
func (m *Mock) GetCheckoutStatus(ctx context.Context, sessionID string) (domain.CheckoutStatus, error) {
	return domain.CheckoutStatus{
		SessionID:     sessionID,
		Status:        "complete",
		PaymentStatus: string(domain.PaymentPaid),
	}, nil
}

type mockEvent struct {
	Type          string `json:"type"`
	SessionID     string `json:"session_id"`
	PaymentStatus string `json:"payment_status"`
}

// HandleWebhook accepts an unsigned JSON body {"type", "session_id", "payment_status"}.
// payment_status defaults to paid.
func (m *Mock) HandleWebhook(ctx context.Context, payload []byte, signature string) (domain.WebhookEvent, error) {
	var ev mockEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return domain.WebhookEvent{}, errors.Mark(errors.Wrap(err, "decode mock webhook"), domain.ErrInvalidSignature)
	}
	if ev.Type == "" {
		return domain.WebhookEvent{}, errors.Wrap(domain.ErrInvalidSignature, "mock webhook without type")
	}
	if ev.PaymentStatus == "" {
		ev.PaymentStatus = string(domain.PaymentPaid)
	}
	return domain.WebhookEvent{EventType: ev.Type, SessionID: ev.SessionID, PaymentStatus: ev.PaymentStatus}, nil
}
