// Package repository holds the persistence contract used by the booking
// services together with its GORM and in-memory implementations.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nilsrambow/amrum-be/models"
)

// ErrNotFound is returned by every single-row lookup that matches nothing.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique constraint (guest email, token) is hit.
var ErrDuplicate = errors.New("duplicate record")

// Store is the persistence contract. Implementations must make Transaction
// all-or-nothing: when fn returns an error nothing written through tx survives.
type Store interface {
	Transaction(ctx context.Context, fn func(tx Store) error) error

	// bookings
	GetBooking(ctx context.Context, id uint) (*models.Booking, error)
	// GetBookingForUpdate locks the row until the surrounding transaction ends.
	GetBookingForUpdate(ctx context.Context, id uint) (*models.Booking, error)
	ListBookings(ctx context.Context) ([]models.Booking, error)
	ListBookingsByGuest(ctx context.Context, guestID uint) ([]models.Booking, error)
	ListBookingsOverlapping(ctx context.Context, from, to time.Time) ([]models.Booking, error)
	ListUnconfirmedModifiedBefore(ctx context.Context, cutoff time.Time) ([]models.Booking, error)
	ListConfirmedArrivingBetween(ctx context.Context, after, until time.Time) ([]models.Booking, error)
	ListConfirmedDepartedBefore(ctx context.Context, day time.Time) ([]models.Booking, error)
	CreateBooking(ctx context.Context, b *models.Booking) error
	SaveBooking(ctx context.Context, b *models.Booking) error
	DeleteBooking(ctx context.Context, id uint) error

	// guests
	GetGuest(ctx context.Context, id uint) (*models.Guest, error)
	GetGuestByEmail(ctx context.Context, email string) (*models.Guest, error)
	ListGuests(ctx context.Context) ([]models.Guest, error)
	CreateGuest(ctx context.Context, g *models.Guest) error
	SaveGuest(ctx context.Context, g *models.Guest) error

	// meter readings (1:1 with booking)
	GetMeterReading(ctx context.Context, bookingID uint) (*models.MeterReading, error)
	SaveMeterReading(ctx context.Context, m *models.MeterReading) error
	DeleteMeterReading(ctx context.Context, bookingID uint) error

	// payments (N:1 with booking)
	ListPayments(ctx context.Context, bookingID uint) ([]models.Payment, error)
	CreatePayment(ctx context.Context, p *models.Payment) error
	DeletePayments(ctx context.Context, bookingID uint) error
	ListPaymentsBetween(ctx context.Context, from, to time.Time) ([]models.Payment, error)

	// unit prices
	CreateUnitPrice(ctx context.Context, p *models.UnitPrice) error
	ListUnitPrices(ctx context.Context, priceType models.PriceType) ([]models.UnitPrice, error)
	// EffectiveUnitPrice returns the covering row with the latest effective_from.
	EffectiveUnitPrice(ctx context.Context, priceType models.PriceType, day time.Time) (*models.UnitPrice, error)

	// access tokens
	CreateToken(ctx context.Context, t *models.BookingToken) error
	FindValidToken(ctx context.Context, token string, now time.Time) (*models.BookingToken, error)
	LatestValidToken(ctx context.Context, bookingID uint, now time.Time) (*models.BookingToken, error)
	TouchToken(ctx context.Context, id uint, at time.Time) error
	DeleteTokens(ctx context.Context, bookingID uint) error

	// communication log
	CreateCommunicationLog(ctx context.Context, l *models.CommunicationLog) error
	ListCommunicationLogs(ctx context.Context, bookingID uint) ([]models.CommunicationLog, error)
}
