// services/booking_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/datatypes"

	"github.com/nilsrambow/amrum-be/models"
	"github.com/nilsrambow/amrum-be/repository"
	"github.com/nilsrambow/amrum-be/utils"
)

// BookingService coordinates the booking lifecycle. Every state change runs
// inside a store transaction on a locked booking row; notifications are sent
// only after the state they depend on has committed.
type BookingService struct {
	Store     repository.Store
	Tokens    *TokenService
	Comms     Communicator
	Kurkarten RegistrationProvider
	Invoices  *InvoiceCalculator
	Policy    Policy
	Now       func() time.Time
}

func NewBookingService(
	store repository.Store,
	tokens *TokenService,
	comms Communicator,
	kurkarten RegistrationProvider,
	invoices *InvoiceCalculator,
	policy Policy,
	now func() time.Time,
) *BookingService {
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		Store:     store,
		Tokens:    tokens,
		Comms:     comms,
		Kurkarten: kurkarten,
		Invoices:  invoices,
		Policy:    policy,
		Now:       now,
	}
}

func (s *BookingService) today() time.Time {
	return utils.DateOnly(s.Now())
}

func bookingErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrBookingNotFound
	}
	return err
}

func hasReadings(ctx context.Context, st repository.Store, bookingID uint) (bool, error) {
	_, err := st.GetMeterReading(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// applyStatus stores status and bumps modified_at only when it changed.
func (s *BookingService) applyStatus(b *models.Booking, status models.BookingStatus) bool {
	if b.Status == status {
		return false
	}
	log.Printf("booking %d status %s -> %s", b.ID, b.Status, status)
	b.Status = status
	b.ModifiedAt = s.Now()
	return true
}

func (s *BookingService) recompute(ctx context.Context, st repository.Store, b *models.Booking) (bool, error) {
	readings, err := hasReadings(ctx, st, b.ID)
	if err != nil {
		return false, err
	}
	return s.applyStatus(b, ComputeStatus(FactsFor(b, readings), s.today())), nil
}

// mutate runs fn on the locked booking inside a transaction and saves it.
func (s *BookingService) mutate(ctx context.Context, id uint, fn func(tx repository.Store, b *models.Booking) error) (*models.Booking, error) {
	var out *models.Booking
	err := s.Store.Transaction(ctx, func(tx repository.Store) error {
		b, err := tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			return bookingErr(err)
		}
		if err := fn(tx, b); err != nil {
			return err
		}
		if err := tx.SaveBooking(ctx, b); err != nil {
			return err
		}
		out = b
		return nil
	})
	return out, err
}

// ---------------- queries ----------------

func (s *BookingService) Get(ctx context.Context, id uint) (*models.Booking, error) {
	b, err := s.Store.GetBooking(ctx, id)
	if err != nil {
		return nil, bookingErr(err)
	}
	return b, nil
}

func (s *BookingService) List(ctx context.Context) ([]models.Booking, error) {
	return s.Store.ListBookings(ctx)
}

func (s *BookingService) ListByGuest(ctx context.Context, guestID uint) ([]models.Booking, error) {
	if _, err := s.Store.GetGuest(ctx, guestID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGuestNotFound
		}
		return nil, err
	}
	return s.Store.ListBookingsByGuest(ctx, guestID)
}

// ---------------- create / update ----------------

type CreateBookingInput struct {
	GuestID       uint
	CheckIn       time.Time
	CheckOut      time.Time
	KurtaxeAmount *float64
	Notes         *string
}

func (s *BookingService) validateRange(checkIn, checkOut time.Time) error {
	if err := ValidateDates(checkIn, checkOut); err != nil {
		return err
	}
	if s.Policy.RejectPastCheckIn && utils.DateOnly(checkIn).Before(s.today()) {
		return ErrPastCheckIn
	}
	return nil
}

func checkOverlapIn(ctx context.Context, st repository.Store, checkIn, checkOut time.Time, excludeID uint) error {
	existing, err := st.ListBookingsOverlapping(ctx, checkIn, checkOut)
	if err != nil {
		return err
	}
	if conflicts := CheckOverlap(checkIn, checkOut, existing, excludeID); len(conflicts) > 0 {
		return &OverlapError{Conflicts: conflicts}
	}
	return nil
}

// CreateBooking validates and stores a new booking, then issues a guest token.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*models.Booking, error) {
	log.Printf("➡️ CreateBooking guest=%d %s..%s", in.GuestID, in.CheckIn.Format(utils.DateLayout), in.CheckOut.Format(utils.DateLayout))

	checkIn, checkOut := utils.DateOnly(in.CheckIn), utils.DateOnly(in.CheckOut)
	if err := s.validateRange(checkIn, checkOut); err != nil {
		return nil, err
	}

	var created *models.Booking
	err := s.Store.Transaction(ctx, func(tx repository.Store) error {
		guest, err := tx.GetGuest(ctx, in.GuestID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrGuestNotFound
			}
			return err
		}
		if err := checkOverlapIn(ctx, tx, checkIn, checkOut, 0); err != nil {
			return err
		}

		now := s.Now()
		b := &models.Booking{
			GuestID:       guest.ID,
			CheckIn:       checkIn,
			CheckOut:      checkOut,
			KurtaxeAmount: in.KurtaxeAmount,
			Notes:         in.Notes,
			CreatedAt:     now,
			ModifiedAt:    now,
		}
		b.Status = ComputeStatus(FactsFor(b, false), s.today())
		if err := tx.CreateBooking(ctx, b); err != nil {
			return err
		}
		b.Guest = *guest
		created = b
		return nil
	})
	if err != nil {
		log.Printf("⬅️ CreateBooking rejected: %v", err)
		return nil, err
	}

	if _, err := s.issueToken(ctx, created); err != nil {
		log.Printf("⚠️ booking %d created without access token: %v", created.ID, err)
	}
	log.Printf("✅ booking %d created status=%s", created.ID, created.Status)
	return created, nil
}

// UpdateBookingInput carries the fields staff may change without a reset.
type UpdateBookingInput struct {
	KurtaxeAmount *float64
	Notes         *string
}

func (s *BookingService) UpdateBooking(ctx context.Context, id uint, in UpdateBookingInput) (*models.Booking, error) {
	if in.KurtaxeAmount == nil && in.Notes == nil {
		return nil, ErrNoFieldsToUpdate
	}
	if in.KurtaxeAmount != nil && *in.KurtaxeAmount < 0 {
		return nil, ErrInvalidAmount
	}
	return s.mutate(ctx, id, func(tx repository.Store, b *models.Booking) error {
		if in.KurtaxeAmount != nil {
			if b.InvoiceCreated {
				return ErrInvoiceAlreadyCreated
			}
			b.KurtaxeAmount = in.KurtaxeAmount
		}
		if in.Notes != nil {
			b.Notes = in.Notes
		}
		b.ModifiedAt = s.Now()
		_, err := s.recompute(ctx, tx, b)
		return err
	})
}

// UpdateBookingDates moves a booking and restarts its workflow: flags,
// staff values, meter readings and payments are cleared atomically.
func (s *BookingService) UpdateBookingDates(ctx context.Context, id uint, checkIn, checkOut time.Time) (*models.Booking, error) {
	log.Printf("➡️ UpdateBookingDates id=%d %s..%s", id, checkIn.Format(utils.DateLayout), checkOut.Format(utils.DateLayout))

	checkIn, checkOut = utils.DateOnly(checkIn), utils.DateOnly(checkOut)
	if err := s.validateRange(checkIn, checkOut); err != nil {
		return nil, err
	}

	b, err := s.mutate(ctx, id, func(tx repository.Store, b *models.Booking) error {
		if err := checkOverlapIn(ctx, tx, checkIn, checkOut, b.ID); err != nil {
			return err
		}
		if err := tx.DeleteMeterReading(ctx, b.ID); err != nil {
			return err
		}
		if err := tx.DeletePayments(ctx, b.ID); err != nil {
			return err
		}
		b.CheckIn, b.CheckOut = checkIn, checkOut
		b.ResetWorkflow()
		b.Status = ComputeStatus(FactsFor(b, false), s.today())
		b.ModifiedAt = s.Now()
		return nil
	})
	if err != nil {
		log.Printf("⬅️ UpdateBookingDates rejected: %v", err)
		return nil, err
	}

	// token expiry follows the departure date
	if err := s.Tokens.Revoke(ctx, b.ID); err != nil {
		log.Printf("⚠️ booking %d: revoke tokens: %v", b.ID, err)
	} else if _, err := s.issueToken(ctx, b); err != nil {
		log.Printf("⚠️ booking %d: reissue token: %v", b.ID, err)
	}
	log.Printf("✅ booking %d reset to %s", b.ID, b.Status)
	return b, nil
}

// DeleteBooking removes the booking and all rows that belong to it.
func (s *BookingService) DeleteBooking(ctx context.Context, id uint) error {
	err := s.Store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.GetBookingForUpdate(ctx, id); err != nil {
			return bookingErr(err)
		}
		if err := tx.DeleteMeterReading(ctx, id); err != nil {
			return err
		}
		if err := tx.DeletePayments(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteTokens(ctx, id); err != nil {
			return err
		}
		return bookingErr(tx.DeleteBooking(ctx, id))
	})
	if err == nil {
		log.Printf("✅ booking %d deleted", id)
	}
	return err
}

// ---------------- confirmation ----------------

// ConfirmResult reports the committed confirmation and whether the guest was notified.
type ConfirmResult struct {
	Booking   *models.Booking `json:"booking"`
	EmailSent bool            `json:"emailSent"`
	MagicLink string          `json:"magicLink,omitempty"`
}

func (s *BookingService) ConfirmBooking(ctx context.Context, id uint) (*ConfirmResult, error) {
	log.Printf("➡️ ConfirmBooking id=%d", id)

	b, err := s.mutate(ctx, id, func(tx repository.Store, b *models.Booking) error {
		if b.Confirmed {
			return ErrAlreadyConfirmed
		}
		readings, err := hasReadings(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		now := s.Now()
		b.Confirmed = true
		b.ConfirmedAt = &now
		b.ModifiedAt = now
		s.applyStatus(b, OnConfirmed(FactsFor(b, readings), s.today()))
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &ConfirmResult{Booking: b}
	tok, err := s.ensureToken(ctx, b)
	if err != nil {
		log.Printf("⚠️ booking %d confirmed without access token: %v", b.ID, err)
	}
	ctxData := s.mailContext(b)
	if tok != nil {
		res.MagicLink = s.Tokens.MagicLink(tok.Token)
		ctxData["magic_link"] = res.MagicLink
		ctxData["token_expires"] = utils.FormatDate(tok.ExpiresAt)
	}

	if err := s.Comms.Send(ctx, Message{
		BookingID: &b.ID,
		Recipient: b.Guest.Email,
		Subject:   "Booking confirmation",
		Template:  TemplateBookingConfirmation,
		Context:   ctxData,
	}); err != nil {
		log.Printf("⚠️ booking %d confirmed, confirmation email failed: %v", b.ID, err)
	} else {
		res.EmailSent = true
	}
	log.Printf("✅ booking %d confirmed", b.ID)
	return res, nil
}

// CheckAndConfirmBookings confirms every unconfirmed booking untouched for
// longer than delay. Failures are logged per booking.
func (s *BookingService) CheckAndConfirmBookings(ctx context.Context, delay time.Duration) int {
	cutoff := s.Now().Add(-delay)
	list, err := s.Store.ListUnconfirmedModifiedBefore(ctx, cutoff)
	if err != nil {
		log.Printf("❌ auto-confirm: list bookings: %v", err)
		return 0
	}
	confirmed := 0
	for _, b := range list {
		if _, err := s.ConfirmBooking(ctx, b.ID); err != nil {
			log.Printf("❌ auto-confirm booking %d: %v", b.ID, err)
			continue
		}
		confirmed++
	}
	log.Printf("auto-confirm: %d/%d confirmed", confirmed, len(list))
	return confirmed
}

// ---------------- tokens ----------------

func (s *BookingService) tokenExpiry(b *models.Booking) time.Time {
	return utils.DateOnly(b.CheckOut).AddDate(0, 0, s.Policy.TokenGraceDays)
}

func (s *BookingService) issueToken(ctx context.Context, b *models.Booking) (*models.BookingToken, error) {
	return s.Tokens.Generate(ctx, b.ID, s.tokenExpiry(b))
}

func (s *BookingService) ensureToken(ctx context.Context, b *models.Booking) (*models.BookingToken, error) {
	tok, err := s.Tokens.Active(ctx, b.ID)
	if err != nil || tok != nil {
		return tok, err
	}
	return s.issueToken(ctx, b)
}

// IssueAccessToken returns the active token of a booking or a new one.
func (s *BookingService) IssueAccessToken(ctx context.Context, id uint) (*models.BookingToken, string, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	tok, err := s.ensureToken(ctx, b)
	if err != nil {
		return nil, "", err
	}
	return tok, s.Tokens.MagicLink(tok.Token), nil
}

func (s *BookingService) RevokeAccessTokens(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.Tokens.Revoke(ctx, id)
}

// ---------------- meter readings ----------------

// MeterReadingInput holds the values to set; nil leaves a value unchanged.
type MeterReadingInput struct {
	ElectricityStart *float64
	ElectricityEnd   *float64
	GasStart         *float64
	GasEnd           *float64
	FirewoodBoxes    *int
}

func (in MeterReadingInput) empty() bool {
	return in.ElectricityStart == nil && in.ElectricityEnd == nil &&
		in.GasStart == nil && in.GasEnd == nil && in.FirewoodBoxes == nil
}

func (s *BookingService) SaveMeterReadings(ctx context.Context, id uint, in MeterReadingInput) (*models.MeterReading, error) {
	if in.empty() {
		return nil, ErrNoFieldsToUpdate
	}

	var saved *models.MeterReading
	_, err := s.mutate(ctx, id, func(tx repository.Store, b *models.Booking) error {
		m, err := tx.GetMeterReading(ctx, b.ID)
		if errors.Is(err, repository.ErrNotFound) {
			m = &models.MeterReading{BookingID: b.ID}
		} else if err != nil {
			return err
		}
		if in.ElectricityStart != nil {
			m.ElectricityStart = in.ElectricityStart
		}
		if in.ElectricityEnd != nil {
			m.ElectricityEnd = in.ElectricityEnd
		}
		if in.GasStart != nil {
			m.GasStart = in.GasStart
		}
		if in.GasEnd != nil {
			m.GasEnd = in.GasEnd
		}
		if in.FirewoodBoxes != nil {
			m.FirewoodBoxes = in.FirewoodBoxes
		}
		if err := ValidateReadings(m); err != nil {
			return err
		}
		if err := tx.SaveMeterReading(ctx, m); err != nil {
			return err
		}
		b.ModifiedAt = s.Now()
		s.applyStatus(b, OnReadingsAdded(FactsFor(b, true), s.today()))
		saved = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("✅ meter readings saved booking=%d complete=%t", id, AreReadingsComplete(saved))
	return saved, nil
}

// GetMeterReading returns nil without error when nothing was recorded yet.
func (s *BookingService) GetMeterReading(ctx context.Context, id uint) (*models.MeterReading, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	m, err := s.Store.GetMeterReading(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return m, err
}

// ---------------- payments ----------------

type PaymentInput struct {
	Amount    float64
	Date      time.Time
	Method    *string
	Reference *string
	Notes     *string
}

// RegisterPayment appends a payment and marks the booking paid once the
// payments cover the invoiced amount.
func (s *BookingService) RegisterPayment(ctx context.Context, id uint, in PaymentInput) (*models.Payment, error) {
	if in.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if in.Date.IsZero() {
		in.Date = s.Now()
	}

	var created *models.Payment
	b, err := s.mutate(ctx, id, func(tx repository.Store, b *models.Booking) error {
		p := &models.Payment{
			BookingID:   b.ID,
			Amount:      roundCents(in.Amount),
			PaymentDate: datatypes.Date(utils.DateOnly(in.Date)),
			Method:      in.Method,
			Reference:   in.Reference,
			Notes:       in.Notes,
			CreatedAt:   s.Now(),
		}
		if err := tx.CreatePayment(ctx, p); err != nil {
			return err
		}
		created = p

		total, err := totalPaid(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		readings, err := hasReadings(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		now := s.Now()
		b.ModifiedAt = now
		if settlePaid(b, total, now) && b.Paid {
			s.applyStatus(b, OnPaymentReceived(FactsFor(b, readings), s.today()))
			return nil
		}
		s.applyStatus(b, ComputeStatus(FactsFor(b, readings), s.today()))
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("✅ payment %.2f registered booking=%d paid=%t", created.Amount, b.ID, b.Paid)
	return created, nil
}

// settlePaid decides the paid flag from the payments against the frozen
// invoice amount; before invoicing the flag stays unset. It reports whether
// the flag changed.
func settlePaid(b *models.Booking, total float64, now time.Time) bool {
	covered := b.InvoiceAmount != nil && total >= *b.InvoiceAmount
	switch {
	case covered && !b.Paid:
		b.Paid = true
		b.PaidAt = &now
		return true
	case !covered && b.Paid:
		b.Paid = false
		b.PaidAt = nil
		return true
	}
	return false
}

func totalPaid(ctx context.Context, st repository.Store, bookingID uint) (float64, error) {
	list, err := st.ListPayments(ctx, bookingID)
	if err != nil {
		return 0, err
	}
	sum := 0.0
	for _, p := range list {
		sum += p.Amount
	}
	return roundCents(sum), nil
}

func (s *BookingService) ListPayments(ctx context.Context, id uint) ([]models.Payment, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.Store.ListPayments(ctx, id)
}

func (s *BookingService) TotalPaid(ctx context.Context, id uint) (float64, error) {
	return totalPaid(ctx, s.Store, id)
}

// ---------------- status ----------------

// RefreshStatus recomputes one booking and saves it when the status moved.
func (s *BookingService) RefreshStatus(ctx context.Context, id uint) (bool, error) {
	changed := false
	err := s.Store.Transaction(ctx, func(tx repository.Store) error {
		b, err := tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			return bookingErr(err)
		}
		if changed, err = s.recompute(ctx, tx, b); err != nil || !changed {
			return err
		}
		return tx.SaveBooking(ctx, b)
	})
	return changed, err
}

// RefreshAllStatuses recomputes every booking and returns how many changed.
func (s *BookingService) RefreshAllStatuses(ctx context.Context) int {
	list, err := s.Store.ListBookings(ctx)
	if err != nil {
		log.Printf("❌ status refresh: list bookings: %v", err)
		return 0
	}
	changed := 0
	for _, b := range list {
		moved, err := s.RefreshStatus(ctx, b.ID)
		if err != nil {
			log.Printf("❌ status refresh booking %d: %v", b.ID, err)
			continue
		}
		if moved {
			changed++
		}
	}
	log.Printf("status refresh: %d/%d changed", changed, len(list))
	return changed
}

// ---------------- helpers ----------------

func (s *BookingService) mailContext(b *models.Booking) map[string]interface{} {
	return map[string]interface{}{
		"booking_id":     b.ID,
		"guest_name":     b.Guest.DisplayName(),
		"guest_email":    b.Guest.Email,
		"check_in_date":  utils.FormatDate(b.CheckIn),
		"check_out_date": utils.FormatDate(b.CheckOut),
	}
}

// sendAgentReminder asks staff to step in. Failures are only logged.
func (s *BookingService) sendAgentReminder(ctx context.Context, b *models.Booking, reason string, missing []string) bool {
	data := s.mailContext(b)
	data["reminder_reason"] = reason
	data["missing_items"] = missing

	err := s.Comms.Send(ctx, Message{
		BookingID: &b.ID,
		Recipient: s.Policy.AgentEmail,
		Subject:   fmt.Sprintf("Action Required - Booking %d", b.ID),
		Template:  TemplateAgentReminder,
		Context:   data,
	})
	if err != nil {
		log.Printf("⚠️ agent reminder for booking %d failed: %v", b.ID, err)
		return false
	}
	return true
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
