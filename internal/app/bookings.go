package app

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"wanderbook/internal/adapters/observability"
	"wanderbook/internal/domain"
)

// ListLimit caps GET /bookings.
const ListLimit = 100

type HotelLookup interface {
	GetHotel(ctx context.Context, id int64) (domain.Hotel, error)
}

type BookingService struct {
	bookings    domain.BookingRepository
	hotels      HotelLookup
	identity    *IdentityService
	allowGuests bool
	now         func() time.Time
}

func NewBookingService(b domain.BookingRepository, h HotelLookup, id *IdentityService, allowGuests bool) *BookingService {
	return &BookingService{bookings: b, hotels: h, identity: id, allowGuests: allowGuests, now: time.Now}
}

// Create stores a pending_payment booking. Without an identity the booking is
// attached to the guest user for req.GuestEmail, when guest bookings are enabled.
func (s *BookingService) Create(ctx context.Context, who Resolution, req domain.BookingRequest) (domain.Booking, error) {
	if err := req.Validate(); err != nil {
		return domain.Booking{}, err
	}

	var owner domain.User
	identity := "user"
	switch who.Kind {
	case Authenticated:
		owner = who.User
	case Unauthenticated:
		if !s.allowGuests {
			return domain.Booking{}, domain.ErrNotAuthenticated
		}
		u, err := s.identity.GuestUser(ctx, req.GuestEmail, req.GuestFirstName, req.GuestLastName)
		if err != nil {
			return domain.Booking{}, err
		}
		owner, identity = u, "guest"
	default:
		_, err := who.Require()
		return domain.Booking{}, err
	}

	hotel, err := s.hotels.GetHotel(ctx, req.HotelID)
	if err != nil {
		return domain.Booking{}, err
	}

	b := domain.Booking{
		BookingID:      newID("booking"),
		UserID:         owner.UserID,
		HotelID:        req.HotelID,
		HotelName:      hotel.Name,
		CheckIn:        req.CheckIn,
		CheckOut:       req.CheckOut,
		GuestFirstName: req.GuestFirstName,
		GuestLastName:  req.GuestLastName,
		GuestEmail:     req.GuestEmail,
		NumAdults:      req.NumAdults,
		NumChildren:    req.NumChildren,
		TotalPrice:     req.TotalPrice,
		Status:         domain.BookingPendingPayment,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.bookings.CreateBooking(ctx, b); err != nil {
		return domain.Booking{}, errors.Wrap(err, "store booking")
	}
	observability.ObserveBooking(identity)
	log.Info().Str("booking_id", b.BookingID).Str("user_id", b.UserID).Int64("hotel_id", b.HotelID).
		Str("identity", identity).Msg("booking created")
	return b, nil
}

// List returns the caller's bookings, newest first.
func (s *BookingService) List(ctx context.Context, who Resolution) ([]domain.Booking, error) {
	u, err := who.Require()
	if err != nil {
		return nil, err
	}
	return s.bookings.ListBookingsByUser(ctx, u.UserID, ListLimit)
}
