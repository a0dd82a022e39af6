package domain_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"

	"wanderbook/internal/domain"
)

func TestBookingStatus_Transitions(t *testing.T) {
	if !domain.BookingPendingPayment.CanTransitionTo(domain.BookingConfirmed) {
		t.Fatal("pending_payment must move to confirmed")
	}
	if domain.BookingConfirmed.CanTransitionTo(domain.BookingPendingPayment) {
		t.Fatal("confirmed must not move back")
	}
	if !domain.BookingConfirmed.IsTerminal() || domain.BookingPendingPayment.IsTerminal() {
		t.Fatal("only confirmed is terminal")
	}
	if _, err := domain.ParseBookingStatus("cancelled"); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if st, err := domain.ParseBookingStatus("confirmed"); err != nil || st != domain.BookingConfirmed {
		t.Fatalf("parse confirmed: %v %v", st, err)
	}
}

func TestValidateStay(t *testing.T) {
	tests := []struct {
		in, out string
		ok      bool
	}{
		{"2026-01-01", "2026-01-02", true},
		{"2026-01-02", "2026-01-02", false},
		{"2026-01-03", "2026-01-02", false},
		{"01/01/2026", "2026-01-02", false},
		{"2026-01-01", "", false},
	}
	for _, tt := range tests {
		err := domain.ValidateStay(tt.in, tt.out)
		if (err == nil) != tt.ok {
			t.Fatalf("ValidateStay(%q,%q) = %v", tt.in, tt.out, err)
		}
		if err != nil && !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	}
}

func TestSearchQuery_ValidateAndKey(t *testing.T) {
	q := domain.SearchQuery{Destination: "  Miami Beach ", CheckIn: "2026-05-01", CheckOut: "2026-05-03", NumChildren: -2}
	if err := q.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if q.NumAdults != 1 || q.NumRooms != 1 || q.NumChildren != 0 {
		t.Fatalf("defaults not applied: %+v", q)
	}
	if got := q.Key().String(); got != "miami beach:2026-05-01:2026-05-03" {
		t.Fatalf("unexpected key %q", got)
	}

	empty := domain.SearchQuery{Destination: " ", CheckIn: "2026-05-01", CheckOut: "2026-05-03"}
	if err := empty.Validate(); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestBookingRequest_Validate(t *testing.T) {
	base := func() domain.BookingRequest {
		return domain.BookingRequest{HotelID: 1, CheckIn: "2026-05-01", CheckOut: "2026-05-02",
			GuestFirstName: " Ann ", GuestLastName: "Lee", GuestEmail: " Ann@Example.COM ", NumAdults: 1}
	}
	r := base()
	if err := r.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if r.GuestEmail != "ann@example.com" || r.GuestFirstName != "Ann" {
		t.Fatalf("not normalized: %+v", r)
	}

	bad := []func(*domain.BookingRequest){
		func(r *domain.BookingRequest) { r.HotelID = 0 },
		func(r *domain.BookingRequest) { r.GuestLastName = " " },
		func(r *domain.BookingRequest) { r.GuestEmail = "not-an-email" },
		func(r *domain.BookingRequest) { r.NumAdults = 0 },
		func(r *domain.BookingRequest) { r.NumChildren = -1 },
		func(r *domain.BookingRequest) { r.TotalPrice = -5 },
		func(r *domain.BookingRequest) { r.CheckOut = r.CheckIn },
	}
	for i, mutate := range bad {
		r := base()
		mutate(&r)
		if err := r.Validate(); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}
}

func TestHotel_Normalize(t *testing.T) {
	h := domain.Hotel{
		Price:       -1,
		Description: strings.Repeat("é", 250),
		ImageURLs:   []string{"1", "2", "3", "4", "5"},
		Amenities:   []string{"a", "b", "c", "d", "e", "f", "g"},
	}
	n := h.Normalize()
	if n.Price != 0 || n.Currency != domain.DefaultCurrency {
		t.Fatalf("price/currency not normalized: %+v", n)
	}
	if len(n.ImageURLs) != domain.MaxImages || len(n.Amenities) != domain.MaxAmenities {
		t.Fatalf("lists not capped: %d %d", len(n.ImageURLs), len(n.Amenities))
	}
	if got := []rune(n.Description); len(got) != domain.MaxDescriptionLen+3 || !strings.HasSuffix(n.Description, "...") {
		t.Fatalf("description not truncated by runes: %d", len(got))
	}

	n.ImageURLs[0] = "changed"
	if h.ImageURLs[0] != "1" {
		t.Fatal("normalize must not share slices with the input")
	}
	if empty := (domain.Hotel{}).Clone(); empty.ImageURLs == nil || empty.Amenities == nil {
		t.Fatal("clone should return empty, non-nil lists")
	}
}

func TestSession_Expired(t *testing.T) {
	exp := time.Date(2026, 1, 8, 12, 0, 0, 0, time.UTC)
	s := domain.Session{ExpiresAt: exp}
	if s.Expired(exp.Add(-time.Second)) {
		t.Fatal("session should be live before expires_at")
	}
	if !s.Expired(exp) {
		t.Fatal("session should be expired at expires_at")
	}
	// offsets don't matter; comparison happens in UTC
	ist := time.FixedZone("IST", 5*3600+1800)
	if !s.Expired(exp.In(ist).Add(time.Minute)) {
		t.Fatal("expected expiry across zones")
	}
}

func TestValidEmail(t *testing.T) {
	for _, ok := range []string{"a@b.com", "first.last+tag@example.co"} {
		if !domain.ValidEmail(ok) {
			t.Fatalf("%q should be valid", ok)
		}
	}
	for _, bad := range []string{"", "plain", "Ann <ann@example.com>", "a@"} {
		if domain.ValidEmail(bad) {
			t.Fatalf("%q should be invalid", bad)
		}
	}
}

func TestErrorTypes_MatchSentinels(t *testing.T) {
	err := errors.Wrap(&domain.UnsupportedDestinationError{Destination: "Atlantis", Supported: []string{"miami"}}, "search")
	if !errors.Is(err, domain.ErrUnsupportedDestination) {
		t.Fatal("unsupported destination should match its sentinel")
	}
	if !strings.Contains(err.Error(), "Atlantis") || !strings.Contains(err.Error(), "miami") {
		t.Fatalf("message should name destination and hints: %s", err)
	}
}

func TestCheckoutSession_JSON(t *testing.T) {
	b, err := json.Marshal(domain.CheckoutSession{SessionID: "cs_1", RedirectURL: "https://pay.test/cs_1"})
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]string
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got["session_id"] != "cs_1" || got["redirect_url"] != "https://pay.test/cs_1" || got["url"] != "https://pay.test/cs_1" {
		t.Fatalf("unexpected body %s", b)
	}
}

func TestWebhookEvent_Settles(t *testing.T) {
	tests := []struct {
		ev   domain.WebhookEvent
		want bool
	}{
		{domain.WebhookEvent{EventType: domain.EventCheckoutCompleted, PaymentStatus: "paid"}, true},
		{domain.WebhookEvent{EventType: domain.EventCheckoutCompleted, PaymentStatus: "unpaid"}, false},
		{domain.WebhookEvent{EventType: domain.EventAsyncPaymentSucceeded, PaymentStatus: "paid"}, true},
		{domain.WebhookEvent{EventType: "checkout.session.async_payment_failed", PaymentStatus: "unpaid"}, false},
		{domain.WebhookEvent{EventType: "payment_intent.succeeded", PaymentStatus: "paid"}, false},
	}
	for _, tt := range tests {
		if got := tt.ev.Settles(); got != tt.want {
			t.Fatalf("%+v: Settles() = %v, want %v", tt.ev, got, tt.want)
		}
	}
}
