package app

import "wanderbook/internal/domain"

// StatusReport is the configuration introspection served on /status.
type StatusReport struct {
	BookingAPIConfigured bool   `json:"booking_api_configured"`
	BookingAPIMode       string `json:"booking_api_mode"`
	BookingAPIURL        string `json:"booking_api_url"`
	SupportedCities      int    `json:"supported_cities"`
	PaymentBackend       string `json:"payment_backend"`
	StripeConfigured     bool   `json:"stripe_configured"`
	GuestBookings        bool   `json:"guest_bookings"`
	Message              string `json:"message"`
}

func BuildStatus(p domain.HotelProvider, payments *PaymentService, guestBookings bool) StatusReport {
	r := StatusReport{
		BookingAPIConfigured: p.Configured(),
		BookingAPIMode:       p.Mode(),
		BookingAPIURL:        "N/A",
		SupportedCities:      len(p.SupportedDestinations()),
		PaymentBackend:       payments.Backend(),
		StripeConfigured:     payments.Backend() == "stripe",
		GuestBookings:        guestBookings,
		Message:              "Using mock hotel data. Add BOOKING_API_KEY and BOOKING_AFFILIATE_ID to enable the real API",
	}
	if r.BookingAPIConfigured {
		r.BookingAPIURL = p.BaseURL()
		r.Message = "Booking.com API credentials configured"
	}
	return r
}
