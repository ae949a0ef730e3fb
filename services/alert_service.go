package services

import (
	"context"
	"errors"
	"time"

	"github.com/nilsrambow/amrum-be/models"
	"github.com/nilsrambow/amrum-be/repository"
	"github.com/nilsrambow/amrum-be/utils"
)

// Alert kinds.
const (
	AlertBookingConfirmation = "booking_confirmation"
	AlertKurkartenRequest    = "kurkarten_request"
	AlertPreArrivalInfo      = "pre_arrival_info"
	AlertInvoiceGeneration   = "invoice_generation"
	AlertInvoiceSending      = "invoice_sending"

	ActionMissingKurkartenData = "missing_kurkarten_data"
	ActionMissingReadings      = "missing_readings"
	ActionMissingPayment       = "missing_payment"
)

type Alert struct {
	ID        int       `json:"id"`
	BookingID uint      `json:"booking_id"`
	Type      string    `json:"type"`
	GuestName string    `json:"guest_name"`
	CheckIn   time.Time `json:"check_in"`
	CheckOut  time.Time `json:"check_out"`
}

type AlertList struct {
	TotalCount int     `json:"total_count"`
	Items      []Alert `json:"items"`
}

func (l *AlertList) add(kind string, b models.Booking) {
	l.Items = append(l.Items, Alert{
		ID:        len(l.Items) + 1,
		BookingID: b.ID,
		Type:      kind,
		GuestName: b.Guest.DisplayName(),
		CheckIn:   b.CheckIn,
		CheckOut:  b.CheckOut,
	})
	l.TotalCount = len(l.Items)
}

// AlertService derives to-do lists for staff from the current bookings.
type AlertService struct {
	Store  repository.Store
	Policy Policy
	Now    func() time.Time
}

func NewAlertService(store repository.Store, policy Policy, now func() time.Time) *AlertService {
	if now == nil {
		now = time.Now
	}
	return &AlertService{Store: store, Policy: policy, Now: now}
}

// PendingEmails lists the emails the scheduler would send on its next runs.
func (s *AlertService) PendingEmails(ctx context.Context) (*AlertList, error) {
	list, err := s.Store.ListBookings(ctx)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	today := utils.DateOnly(now)
	confirmCutoff := now.Add(-s.Policy.AutoConfirmDelay)
	kurkartenUntil := today.AddDate(0, 0, s.Policy.KurkartenLeadDays)
	preArrivalUntil := today.AddDate(0, 0, s.Policy.PreArrivalLeadDays)
	invoiceCutoff := today.AddDate(0, 0, -s.Policy.InvoiceDelayDays)

	out := &AlertList{Items: []Alert{}}
	for _, b := range list {
		in, checkout := utils.DateOnly(b.CheckIn), utils.DateOnly(b.CheckOut)
		switch {
		case !b.Confirmed:
			if !b.ModifiedAt.After(confirmCutoff) {
				out.add(AlertBookingConfirmation, b)
			}
		case !b.KurkartenEmailSent && in.After(today) && !in.After(kurkartenUntil):
			out.add(AlertKurkartenRequest, b)
		case b.KurkartenEmailSent && !b.PreArrivalEmailSent && in.After(today) && !in.After(preArrivalUntil):
			out.add(AlertPreArrivalInfo, b)
		case !b.InvoiceCreated && !checkout.After(invoiceCutoff):
			out.add(AlertInvoiceGeneration, b)
		case b.InvoiceCreated && !b.InvoiceSent:
			out.add(AlertInvoiceSending, b)
		}
	}
	return out, nil
}

// OutstandingGuestActions lists guests who are late with something.
func (s *AlertService) OutstandingGuestActions(ctx context.Context) (*AlertList, error) {
	list, err := s.Store.ListBookings(ctx)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	today := utils.DateOnly(now)
	kurkartenCutoff := now.AddDate(0, 0, -s.Policy.KurkartenResponseDelayDays)
	readingsCutoff := today.AddDate(0, 0, -s.Policy.ReadingsDelayDays)
	paymentCutoff := now.AddDate(0, 0, -s.Policy.PaymentDelayDays)

	out := &AlertList{Items: []Alert{}}
	for _, b := range list {
		if b.KurkartenEmailSent && b.KurkartenEmailSentAt != nil && !b.KurkartenEmailSentAt.After(kurkartenCutoff) &&
			(b.KurtaxeAmount == nil || *b.KurtaxeAmount == 0) {
			out.add(ActionMissingKurkartenData, b)
		}

		if b.Confirmed && b.PreArrivalEmailSent && !utils.DateOnly(b.CheckOut).After(readingsCutoff) {
			_, err := s.Store.GetMeterReading(ctx, b.ID)
			if errors.Is(err, repository.ErrNotFound) {
				out.add(ActionMissingReadings, b)
			} else if err != nil {
				return nil, err
			}
		}

		if b.InvoiceSent && b.InvoiceSentAt != nil && !b.InvoiceSentAt.After(paymentCutoff) {
			payments, err := s.Store.ListPayments(ctx, b.ID)
			if err != nil {
				return nil, err
			}
			if len(payments) == 0 {
				out.add(ActionMissingPayment, b)
			}
		}
	}
	return out, nil
}
