package checkout

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"wanderbook/internal/adapters/observability"
	"wanderbook/internal/domain"
)

// Stripe opens hosted checkout sessions and verifies signed webhooks.
type Stripe struct {
	sc            *client.API
	webhookSecret string
}

// NewStripe builds a client for the live API. backends may be nil; tests point
// it at an httptest server.
func NewStripe(apiKey, webhookSecret string, backends *stripe.Backends) *Stripe {
	sc := &client.API{}
	sc.Init(apiKey, backends)
	return &Stripe{sc: sc, webhookSecret: webhookSecret}
}

func (s *Stripe) Name() string { return "stripe" }

func (s *Stripe) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(req.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.Description),
				},
				UnitAmount: stripe.Int64(toMinorUnits(req.Amount)),
			},
			Quantity: stripe.Int64(1),
		}},
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	start := time.Now()
	sess, err := s.sc.CheckoutSessions.New(params)
	observability.ObserveExternal("stripe", "create_session", statusOf(err), time.Since(start))
	if err != nil {
		return domain.CheckoutSession{}, classify(err, "create checkout session")
	}
	return domain.CheckoutSession{SessionID: sess.ID, RedirectURL: sess.URL}, nil
}

func (s *Stripe) GetCheckoutStatus(ctx context.Context, sessionID string) (domain.CheckoutStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	start := time.Now()
	sess, err := s.sc.CheckoutSessions.Get(sessionID, params)
	observability.ObserveExternal("stripe", "get_session", statusOf(err), time.Since(start))
	if err != nil {
		return domain.CheckoutStatus{}, classify(err, "get checkout session")
	}
	return domain.CheckoutStatus{
		SessionID:     sess.ID,
		Status:        string(sess.Status),
		PaymentStatus: string(sess.PaymentStatus),
		AmountTotal:   sess.AmountTotal,
		Currency:      string(sess.Currency),
	}, nil
}

// HandleWebhook verifies the Stripe-Signature header against the endpoint secret.
func (s *Stripe) HandleWebhook(ctx context.Context, payload []byte, signature string) (domain.WebhookEvent, error) {
	if s.webhookSecret == "" {
		return domain.WebhookEvent{}, errors.Wrap(domain.ErrInvalidSignature, "webhook secret not configured")
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return domain.WebhookEvent{}, errors.Mark(errors.Wrap(err, "construct event"), domain.ErrInvalidSignature)
	}

	out := domain.WebhookEvent{EventType: string(ev.Type)}
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return out, nil
	}
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
		log.Warn().Err(err).Str("event", out.EventType).Msg("webhook payload is not a checkout session")
		return out, nil
	}
	out.SessionID = sess.ID
	out.PaymentStatus = string(sess.PaymentStatus)
	return out, nil
}

func toMinorUnits(amount float64) int64 { return int64(math.Round(amount * 100)) }

func classify(err error, op string) error {
	var se *stripe.Error
	if errors.As(err, &se) && se.HTTPStatusCode == http.StatusNotFound {
		return errors.Mark(errors.Wrap(err, op), domain.ErrNotFound)
	}
	return errors.Mark(errors.Wrap(err, op), domain.ErrProviderUnavailable)
}

func statusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var se *stripe.Error
	if errors.As(err, &se) && se.HTTPStatusCode != 0 {
		return se.HTTPStatusCode
	}
	return 0
}
