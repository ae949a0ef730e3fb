package services

import (
	"errors"
	"fmt"
	"strings"
)

// validation
var (
	ErrInvalidDates          = errors.New("check-out date must be after check-in date")
	ErrPastCheckIn           = errors.New("check-in date cannot be in the past")
	ErrAlreadyConfirmed      = errors.New("booking is already confirmed")
	ErrNotConfirmed          = errors.New("booking is not confirmed")
	ErrInvoiceNotCreated     = errors.New("invoice has not been generated")
	ErrInvoiceAlreadyCreated = errors.New("invoice already generated")
	ErrNoFieldsToUpdate      = errors.New("no fields to update")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrInvalidReading        = errors.New("meter end value must not be below start value")
	ErrDuplicateEmail        = errors.New("email already registered")
	ErrInvalidEmail          = errors.New("invalid email address")
	ErrInvalidPrice          = errors.New("invalid unit price")
)

// not found
var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrGuestNotFound   = errors.New("guest not found")
	ErrTokenInvalid    = errors.New("invalid or expired token")
)

// precondition not met: a staff reminder was sent instead
var (
	ErrReadingsIncomplete = errors.New("meter readings incomplete")
	ErrKurkartenPending   = errors.New("kurkarten email not sent yet")
)

// collaborator
var (
	ErrNotificationFailed = errors.New("notification could not be sent")
	ErrRegistrationURL    = errors.New("could not obtain kurkarten registration url")
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Conflict describes one existing booking colliding with a candidate range.
type Conflict struct {
	BookingID uint   `json:"booking_id"`
	GuestName string `json:"guest_name"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
}

// OverlapError is returned when a candidate range collides with existing bookings.
type OverlapError struct {
	Conflicts []Conflict
}

func (e *OverlapError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("%s (%s - %s)", c.GuestName, c.CheckIn, c.CheckOut))
	}
	return "booking overlaps with existing bookings: " + strings.Join(parts, ", ")
}

func IsValidation(err error) bool {
	var oe *OverlapError
	if errors.As(err, &oe) {
		return true
	}
	for _, target := range []error{
		ErrInvalidDates, ErrPastCheckIn, ErrAlreadyConfirmed, ErrNotConfirmed,
		ErrInvoiceNotCreated, ErrInvoiceAlreadyCreated, ErrNoFieldsToUpdate, ErrInvalidAmount, ErrInvalidReading,
		ErrDuplicateEmail, ErrInvalidEmail, ErrInvalidPrice,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrBookingNotFound) || errors.Is(err, ErrGuestNotFound) || errors.Is(err, ErrTokenInvalid)
}

func IsPrecondition(err error) bool {
	return errors.Is(err, ErrReadingsIncomplete) || errors.Is(err, ErrKurkartenPending)
}

func IsCollaborator(err error) bool {
	return errors.Is(err, ErrNotificationFailed) || errors.Is(err, ErrRegistrationURL)
}
