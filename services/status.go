package services

import (
	"time"

	"github.com/nilsrambow/amrum-be/models"
	"github.com/nilsrambow/amrum-be/utils"
)

// BookingFacts are the stored facts the booking status is derived from.
type BookingFacts struct {
	Confirmed           bool
	KurkartenEmailSent  bool
	PreArrivalEmailSent bool
	InvoiceCreated      bool
	InvoiceSent         bool
	Paid                bool
	HasMeterReadings    bool
	CheckIn             time.Time
	CheckOut            time.Time
}

// FactsFor extracts the status inputs of a booking.
func FactsFor(b *models.Booking, hasReadings bool) BookingFacts {
	return BookingFacts{
		Confirmed:           b.Confirmed,
		KurkartenEmailSent:  b.KurkartenEmailSent,
		PreArrivalEmailSent: b.PreArrivalEmailSent,
		InvoiceCreated:      b.InvoiceCreated,
		InvoiceSent:         b.InvoiceSent,
		Paid:                b.Paid,
		HasMeterReadings:    hasReadings,
		CheckIn:             b.CheckIn,
		CheckOut:            b.CheckOut,
	}
}

// ComputeStatus maps facts to exactly one status. Workflow flags are
// evaluated before dates; dates are compared as calendar days.
func ComputeStatus(f BookingFacts, today time.Time) models.BookingStatus {
	if !f.Confirmed {
		return models.StatusNew
	}
	if f.PreArrivalEmailSent {
		return stayStatus(f, utils.DateOnly(today))
	}
	if f.KurkartenEmailSent {
		return models.StatusKurkartenRequested
	}
	return models.StatusConfirmed
}

func stayStatus(f BookingFacts, today time.Time) models.BookingStatus {
	in := utils.DateOnly(f.CheckIn)
	out := utils.DateOnly(f.CheckOut)

	switch {
	case today.Equal(in):
		return models.StatusArriving
	case today.After(in) && today.Before(out):
		return models.StatusOnSite
	case today.Equal(out):
		return models.StatusDeparting
	case today.After(out):
		return departedStatus(f)
	default:
		return models.StatusReadyForArrival
	}
}

func departedStatus(f BookingFacts) models.BookingStatus {
	switch {
	case f.Paid:
		return models.StatusDepartedDone
	case f.InvoiceSent:
		return models.StatusDepartedPaymentDue
	case f.InvoiceCreated || f.HasMeterReadings:
		return models.StatusDepartedInvoiceDue
	default:
		return models.StatusDepartedReadingsDue
	}
}

// The On* setters record one workflow fact and return the recomputed status.
// They never pick a status themselves, so they cannot drift from ComputeStatus.

func OnConfirmed(f BookingFacts, today time.Time) models.BookingStatus {
	f.Confirmed = true
	return ComputeStatus(f, today)
}

func OnKurkartenSent(f BookingFacts, today time.Time) models.BookingStatus {
	f.KurkartenEmailSent = true
	return ComputeStatus(f, today)
}

func OnPreArrivalSent(f BookingFacts, today time.Time) models.BookingStatus {
	f.PreArrivalEmailSent = true
	return ComputeStatus(f, today)
}

func OnReadingsAdded(f BookingFacts, today time.Time) models.BookingStatus {
	f.HasMeterReadings = true
	return ComputeStatus(f, today)
}

func OnInvoiceCreated(f BookingFacts, today time.Time) models.BookingStatus {
	f.InvoiceCreated = true
	return ComputeStatus(f, today)
}

func OnInvoiceSent(f BookingFacts, today time.Time) models.BookingStatus {
	f.InvoiceSent = true
	return ComputeStatus(f, today)
}

func OnPaymentReceived(f BookingFacts, today time.Time) models.BookingStatus {
	f.Paid = true
	return ComputeStatus(f, today)
}
