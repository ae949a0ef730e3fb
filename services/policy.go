package services

import "time"

// Policy holds the workflow timing rules of the booking lifecycle.
type Policy struct {
	AutoConfirmDelay   time.Duration
	KurkartenLeadDays  int
	PreArrivalLeadDays int
	InvoiceDelayDays   int
	TokenGraceDays     int
	RejectPastCheckIn  bool
	AgentEmail         string

	KurkartenResponseDelayDays int
	ReadingsDelayDays          int
	PaymentDelayDays           int
}

func DefaultPolicy() Policy {
	return Policy{
		AutoConfirmDelay:           36 * time.Hour,
		KurkartenLeadDays:          25,
		PreArrivalLeadDays:         5,
		InvoiceDelayDays:           3,
		TokenGraceDays:             90,
		AgentEmail:                 "booking-agent@example.com",
		KurkartenResponseDelayDays: 5,
		ReadingsDelayDays:          3,
		PaymentDelayDays:           14,
	}
}
