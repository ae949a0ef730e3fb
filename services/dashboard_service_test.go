package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/nilsrambow/amrum-be/models"
	"github.com/nilsrambow/amrum-be/repository"
)

func TestDashboardStats(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := NewDashboardService(store, func() time.Time { return date("2025-09-01") })

	confirmed := func(b *models.Booking) { b.Confirmed = true }
	a := seedWith(t, store, "2025-07-01", "2025-07-08", confirmed)
	seedWith(t, store, "2025-12-29", "2026-01-03", confirmed)
	seedWith(t, store, "2025-08-01", "2025-08-04", func(*models.Booking) {})
	old := seedWith(t, store, "2024-07-01", "2024-07-05", confirmed)

	pay := func(id uint, amount float64, day string) {
		require.NoError(t, store.CreatePayment(ctx, &models.Payment{
			BookingID: id, Amount: amount, PaymentDate: datatypes.Date(date(day)),
		}))
	}
	pay(a.ID, 500.25, "2025-07-20")
	pay(a.ID, 100, "2025-12-31")
	pay(old.ID, 300, "2024-07-10")

	stats, err := svc.Stats(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2025, stats.Year)
	assert.Equal(t, 2, stats.TotalBookings)
	assert.Equal(t, 12, stats.TotalOccupiedNights)
	assert.InDelta(t, 600.25, stats.TotalInvoiceAmount, 0.001)

	cmp, err := svc.YearlyComparison(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, 1, cmp.PreviousYear.TotalBookings)
	assert.Equal(t, 1, cmp.Comparison.BookingsChange)
	assert.Equal(t, 8, cmp.Comparison.OccupiedNightsChange)
	assert.InDelta(t, 300.25, cmp.Comparison.InvoiceAmountChange, 0.001)
}
