package services

import (
	"context"
	"time"

	"github.com/nilsrambow/amrum-be/repository"
	"github.com/nilsrambow/amrum-be/utils"
)

type DashboardStats struct {
	Year                int     `json:"year"`
	TotalBookings       int     `json:"total_bookings"`
	TotalOccupiedNights int     `json:"total_occupied_nights"`
	TotalInvoiceAmount  float64 `json:"total_invoice_amount"`
}

type YearlyComparison struct {
	CurrentYear  DashboardStats `json:"current_year"`
	PreviousYear DashboardStats `json:"previous_year"`
	Comparison   struct {
		BookingsChange       int     `json:"bookings_change"`
		InvoiceAmountChange  float64 `json:"invoice_amount_change"`
		OccupiedNightsChange int     `json:"occupied_nights_change"`
	} `json:"comparison"`
}

type DashboardService struct {
	Store repository.Store
	Now   func() time.Time
}

func NewDashboardService(store repository.Store, now func() time.Time) *DashboardService {
	if now == nil {
		now = time.Now
	}
	return &DashboardService{Store: store, Now: now}
}

// Stats counts confirmed bookings arriving in year, their nights and the
// payments received in year. year 0 means the current year.
func (s *DashboardService) Stats(ctx context.Context, year int) (*DashboardStats, error) {
	if year == 0 {
		year = s.Now().Year()
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	bookings, err := s.Store.ListBookingsOverlapping(ctx, start, end.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	out := &DashboardStats{Year: year}
	for _, b := range bookings {
		in := utils.DateOnly(b.CheckIn)
		if !b.Confirmed || in.Before(start) || in.After(end) {
			continue
		}
		out.TotalBookings++
		out.TotalOccupiedNights += utils.DaysBetween(b.CheckIn, b.CheckOut)
	}

	payments, err := s.Store.ListPaymentsBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	for _, p := range payments {
		out.TotalInvoiceAmount += p.Amount
	}
	out.TotalInvoiceAmount = roundCents(out.TotalInvoiceAmount)
	return out, nil
}

func (s *DashboardService) YearlyComparison(ctx context.Context, year int) (*YearlyComparison, error) {
	if year == 0 {
		year = s.Now().Year()
	}
	cur, err := s.Stats(ctx, year)
	if err != nil {
		return nil, err
	}
	prev, err := s.Stats(ctx, year-1)
	if err != nil {
		return nil, err
	}
	out := &YearlyComparison{CurrentYear: *cur, PreviousYear: *prev}
	out.Comparison.BookingsChange = cur.TotalBookings - prev.TotalBookings
	out.Comparison.InvoiceAmountChange = roundCents(cur.TotalInvoiceAmount - prev.TotalInvoiceAmount)
	out.Comparison.OccupiedNightsChange = cur.TotalOccupiedNights - prev.TotalOccupiedNights
	return out, nil
}
