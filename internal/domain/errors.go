package domain

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	ErrNotFound                  = errors.New("not found")
	ErrHotelNotFound             = errors.New("hotel not found")
	ErrBookingNotFound           = errors.New("booking not found")
	ErrNotAuthenticated          = errors.New("not authenticated")
	ErrSessionExpired            = errors.New("session expired")
	ErrNotAuthorized             = errors.New("not authorized")
	ErrInvalidInput              = errors.New("invalid input")
	ErrConflict                  = errors.New("conflict")
	ErrUnsupportedDestination    = errors.New("unsupported destination")
	ErrProviderNotConfigured     = errors.New("provider not configured")
	ErrProviderUnavailable       = errors.New("provider unavailable")
	ErrUnexpectedResponse        = errors.New("unexpected provider response")
	ErrInvalidSignature          = errors.New("invalid webhook signature")
	ErrWebhookVerificationFailed = errors.New("webhook verification failed")
)

// InvalidInputError carries a client-facing message and matches ErrInvalidInput.
type InvalidInputError struct{ Msg string }

func NewInvalidInput(msg string) error { return &InvalidInputError{Msg: msg} }

func (e *InvalidInputError) Error() string { return e.Msg }
func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// UnsupportedDestinationError lists a sample of destinations the provider knows.
type UnsupportedDestinationError struct {
	Destination string
	Supported   []string
}

func (e *UnsupportedDestinationError) Error() string {
	return fmt.Sprintf("destination %q is not supported; supported destinations include: %s",
		e.Destination, strings.Join(e.Supported, ", "))
}

func (e *UnsupportedDestinationError) Unwrap() error { return ErrUnsupportedDestination }
