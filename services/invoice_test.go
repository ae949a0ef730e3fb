package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilsrambow/amrum-be/models"
	"github.com/nilsrambow/amrum-be/repository"
)

type invoiceFixture struct {
	ctx     context.Context
	store   *repository.MemoryStore
	calc    *InvoiceCalculator
	booking *models.Booking
}

func newInvoiceFixture(t *testing.T, paysDayrate bool) *invoiceFixture {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	now := func() time.Time { return date("2025-08-01") }

	guest := &models.Guest{FirstName: "Ole", LastName: "Hansen", Email: "ole@example.com", PaysDayrate: paysDayrate}
	require.NoError(t, store.CreateGuest(ctx, guest))
	b := &models.Booking{GuestID: guest.ID, CheckIn: date("2025-07-01"), CheckOut: date("2025-07-15"), KurtaxeAmount: f64(20)}
	require.NoError(t, store.CreateBooking(ctx, b))

	return &invoiceFixture{
		ctx:     ctx,
		store:   store,
		calc:    NewInvoiceCalculator(store, NewPricingService(store), now),
		booking: b,
	}
}

func TestInvoiceCalculationExample(t *testing.T) {
	fx := newInvoiceFixture(t, true)
	seedPrice(fx.store, models.PriceStayPerNight, 85, "2025-01-01")
	seedPrice(fx.store, models.PriceElectricityPerKWh, 0.32, "2025-01-01")
	require.NoError(t, fx.store.SaveMeterReading(fx.ctx, &models.MeterReading{
		BookingID: fx.booking.ID, ElectricityStart: f64(1000), ElectricityEnd: f64(1049.7),
	}))

	got, err := fx.calc.Calculate(fx.ctx, fx.booking)
	require.NoError(t, err)

	assert.Equal(t, 14, got.NumDays)
	assert.Equal(t, 1190.0, got.AccommodationCost)
	assert.InDelta(t, 15.90, got.ElectricityCost, 0.005)
	assert.Zero(t, got.GasCost)
	assert.Zero(t, got.FirewoodCost)
	assert.Equal(t, 20.0, got.KurtaxeCost)
	assert.InDelta(t, 1225.90, got.TotalCost, 0.005)
	assert.Equal(t, 85.0, got.StayRate)
	assert.Equal(t, 0.32, got.ElectricityRate)
	assert.Equal(t, "2025-08-01", got.PricedOn)
	assert.Empty(t, got.MissingPrices)
}

func TestInvoiceGasUsesPerKWhPrice(t *testing.T) {
	fx := newInvoiceFixture(t, true)
	seedPrice(fx.store, models.PriceStayPerNight, 85, "2025-01-01")
	seedPrice(fx.store, models.PriceGasPerCubicMeter, 1.05, "2025-01-01")
	seedPrice(fx.store, models.PriceFirewoodPerBox, 8, "2025-01-01")
	require.NoError(t, fx.store.SaveMeterReading(fx.ctx, &models.MeterReading{
		BookingID: fx.booking.ID, GasStart: f64(500), GasEnd: f64(520), FirewoodBoxes: intp(2),
	}))

	got, err := fx.calc.Calculate(fx.ctx, fx.booking)
	require.NoError(t, err)

	assert.InDelta(t, 0.1, got.GasRatePerKWh, 1e-9)
	assert.Equal(t, 210.0, *got.Consumption.GasKWh)
	assert.Equal(t, 21.0, got.GasCost)
	assert.Equal(t, 16.0, got.FirewoodCost)
	assert.InDelta(t, 1190+21+16+20, got.TotalCost, 0.005)
}

func TestInvoiceSkipsAccommodationForNonDayrateGuest(t *testing.T) {
	fx := newInvoiceFixture(t, false)
	seedPrice(fx.store, models.PriceStayPerNight, 85, "2025-01-01")

	got, err := fx.calc.Calculate(fx.ctx, fx.booking)
	require.NoError(t, err)
	assert.Zero(t, got.AccommodationCost)
	assert.Zero(t, got.StayRate)
	assert.Equal(t, 20.0, got.TotalCost)
}

func TestInvoiceMissingPriceIsZeroLine(t *testing.T) {
	fx := newInvoiceFixture(t, true)
	require.NoError(t, fx.store.SaveMeterReading(fx.ctx, &models.MeterReading{
		BookingID: fx.booking.ID, ElectricityStart: f64(1), ElectricityEnd: f64(11),
	}))

	got, err := fx.calc.Calculate(fx.ctx, fx.booking)
	require.NoError(t, err)
	assert.Zero(t, got.AccommodationCost)
	assert.Zero(t, got.ElectricityCost)
	assert.ElementsMatch(t, []models.PriceType{models.PriceStayPerNight, models.PriceElectricityPerKWh}, got.MissingPrices)
	assert.Equal(t, 20.0, got.TotalCost)
}

func TestInvoiceCalculationDoesNotWrite(t *testing.T) {
	fx := newInvoiceFixture(t, true)
	before, _ := fx.store.GetBooking(fx.ctx, fx.booking.ID)

	_, err := fx.calc.Calculate(fx.ctx, fx.booking)
	require.NoError(t, err)

	after, _ := fx.store.GetBooking(fx.ctx, fx.booking.ID)
	assert.Equal(t, before, after)
}

func TestNewInvoiceID(t *testing.T) {
	at := date("2025-07-18")
	a := NewInvoiceID(42, at)
	b := NewInvoiceID(42, at)

	assert.Regexp(t, regexp.MustCompile(`^INV-42-20250718-[0-9a-f]{8}$`), a)
	assert.NotEqual(t, a, b)
}
