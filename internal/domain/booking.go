package domain

import (
	"fmt"
	"strings"
	"time"
)

type BookingStatus string

const (
	BookingPendingPayment BookingStatus = "pending_payment"
	BookingConfirmed      BookingStatus = "confirmed"
)

// Bookings only ever move forward; there is no cancellation state.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPendingPayment: {BookingConfirmed},
	BookingConfirmed:      {},
}

func (s BookingStatus) IsValid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range bookingTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsTerminal() bool { return len(bookingTransitions[s]) == 0 }

func (s BookingStatus) String() string { return string(s) }

func ParseBookingStatus(s string) (BookingStatus, error) {
	st := BookingStatus(s)
	if !st.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return st, nil
}

type Booking struct {
	BookingID      string        `json:"booking_id" bson:"booking_id"`
	UserID         string        `json:"user_id" bson:"user_id"`
	HotelID        int64         `json:"hotel_id" bson:"hotel_id"`
	HotelName      string        `json:"hotel_name" bson:"hotel_name"`
	CheckIn        string        `json:"check_in" bson:"check_in"`
	CheckOut       string        `json:"check_out" bson:"check_out"`
	GuestFirstName string        `json:"guest_first_name" bson:"guest_first_name"`
	GuestLastName  string        `json:"guest_last_name" bson:"guest_last_name"`
	GuestEmail     string        `json:"guest_email" bson:"guest_email"`
	NumAdults      int           `json:"num_adults" bson:"num_adults"`
	NumChildren    int           `json:"num_children" bson:"num_children"`
	TotalPrice     float64       `json:"total_price" bson:"total_price"`
	Status         BookingStatus `json:"status" bson:"status"`
	CreatedAt      time.Time     `json:"created_at" bson:"created_at"`
}

// BookingRequest is the client payload for creating a booking.
type BookingRequest struct {
	HotelID        int64   `json:"hotel_id"`
	CheckIn        string  `json:"check_in"`
	CheckOut       string  `json:"check_out"`
	GuestFirstName string  `json:"guest_first_name"`
	GuestLastName  string  `json:"guest_last_name"`
	GuestEmail     string  `json:"guest_email"`
	NumAdults      int     `json:"num_adults"`
	NumChildren    int     `json:"num_children"`
	TotalPrice     float64 `json:"total_price"`
}

func (r *BookingRequest) Validate() error {
	r.GuestEmail = NormalizeEmail(r.GuestEmail)
	r.GuestFirstName = strings.TrimSpace(r.GuestFirstName)
	r.GuestLastName = strings.TrimSpace(r.GuestLastName)
	switch {
	case r.HotelID <= 0:
		return NewInvalidInput("hotel_id is required")
	case r.GuestFirstName == "" || r.GuestLastName == "":
		return NewInvalidInput("guest_first_name and guest_last_name are required")
	case !ValidEmail(r.GuestEmail):
		return NewInvalidInput("guest_email must be a valid email address")
	case r.NumAdults <= 0:
		return NewInvalidInput("num_adults must be at least 1")
	case r.NumChildren < 0:
		return NewInvalidInput("num_children cannot be negative")
	case r.TotalPrice < 0:
		return NewInvalidInput("total_price cannot be negative")
	}
	return ValidateStay(r.CheckIn, r.CheckOut)
}

// BookingResponse is the public view of a booking.
type BookingResponse struct {
	BookingID  string  `json:"booking_id"`
	HotelID    int64   `json:"hotel_id"`
	HotelName  string  `json:"hotel_name"`
	Status     string  `json:"status"`
	CheckIn    string  `json:"check_in"`
	CheckOut   string  `json:"check_out"`
	TotalPrice float64 `json:"total_price"`
	CreatedAt  string  `json:"created_at"`
}

func (b Booking) Response() BookingResponse {
	return BookingResponse{
		BookingID:  b.BookingID,
		HotelID:    b.HotelID,
		HotelName:  b.HotelName,
		Status:     b.Status.String(),
		CheckIn:    b.CheckIn,
		CheckOut:   b.CheckOut,
		TotalPrice: b.TotalPrice,
		CreatedAt:  b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// BookingConfirmedEvent is published once a booking leaves pending_payment.
type BookingConfirmedEvent struct {
	BookingID   string    `json:"booking_id"`
	UserID      string    `json:"user_id"`
	HotelID     int64     `json:"hotel_id"`
	HotelName   string    `json:"hotel_name"`
	SessionID   string    `json:"session_id"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}
