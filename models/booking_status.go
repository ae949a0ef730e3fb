package models

import "fmt"

// BookingStatus is the derived lifecycle position of a booking.
type BookingStatus string

const (
	StatusNew                 BookingStatus = "NEW"
	StatusConfirmed           BookingStatus = "CONFIRMED"
	StatusKurkartenRequested  BookingStatus = "KURKARTEN_REQUESTED"
	StatusReadyForArrival     BookingStatus = "READY_FOR_ARRIVAL"
	StatusArriving            BookingStatus = "ARRIVING"
	StatusOnSite              BookingStatus = "ON_SITE"
	StatusDeparting           BookingStatus = "DEPARTING"
	StatusDepartedReadingsDue BookingStatus = "DEPARTED_READINGS_DUE"
	StatusDepartedInvoiceDue  BookingStatus = "DEPARTED_INVOICE_DUE"
	StatusDepartedPaymentDue  BookingStatus = "DEPARTED_PAYMENT_DUE"
	StatusDepartedDone        BookingStatus = "DEPARTED_DONE"
)

// AllStatuses lists the statuses in lifecycle order.
var AllStatuses = []BookingStatus{
	StatusNew,
	StatusConfirmed,
	StatusKurkartenRequested,
	StatusReadyForArrival,
	StatusArriving,
	StatusOnSite,
	StatusDeparting,
	StatusDepartedReadingsDue,
	StatusDepartedInvoiceDue,
	StatusDepartedPaymentDue,
	StatusDepartedDone,
}

func (s BookingStatus) String() string {
	return string(s)
}

// IsDeparted reports whether the status belongs to the post-departure chain.
func (s BookingStatus) IsDeparted() bool {
	switch s {
	case StatusDepartedReadingsDue, StatusDepartedInvoiceDue, StatusDepartedPaymentDue, StatusDepartedDone:
		return true
	}
	return false
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid booking status: %s", s)
}
