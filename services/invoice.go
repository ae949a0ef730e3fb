package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/nilsrambow/amrum-be/models"
	"github.com/nilsrambow/amrum-be/repository"
	"github.com/nilsrambow/amrum-be/utils"
)

// InvoiceBreakdown lists every line item of a booking invoice together with
// the rates and quantities it was computed from.
type InvoiceBreakdown struct {
	BookingID uint `json:"booking_id"`
	NumDays   int  `json:"num_days"`

	StayRate        float64 `json:"stay_rate"`
	ElectricityRate float64 `json:"electricity_rate"`
	GasRate         float64 `json:"gas_rate_per_cubic_meter"`
	GasRatePerKWh   float64 `json:"gas_rate_per_kwh"`
	FirewoodRate    float64 `json:"firewood_rate"`

	AccommodationCost float64 `json:"accommodation_cost"`
	ElectricityCost   float64 `json:"electricity_cost"`
	GasCost           float64 `json:"gas_cost"`
	FirewoodCost      float64 `json:"firewood_cost"`
	KurtaxeCost       float64 `json:"kurtaxe_cost"`
	TotalCost         float64 `json:"total_cost"`

	Consumption ConsumptionSummary `json:"consumption"`
	// price categories that had no row in effect and were billed at zero
	MissingPrices []models.PriceType `json:"missing_prices,omitempty"`
	PricedOn      string             `json:"priced_on"`
}

// InvoiceCalculator computes invoice breakdowns. It never writes.
type InvoiceCalculator struct {
	Store   repository.Store
	Pricing *PricingService
	Now     func() time.Time
}

func NewInvoiceCalculator(store repository.Store, pricing *PricingService, now func() time.Time) *InvoiceCalculator {
	if now == nil {
		now = time.Now
	}
	return &InvoiceCalculator{Store: store, Pricing: pricing, Now: now}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Calculate prices the booking with the rates in effect today.
func (c *InvoiceCalculator) Calculate(ctx context.Context, b *models.Booking) (*InvoiceBreakdown, error) {
	reading, err := c.Store.GetMeterReading(ctx, b.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("load meter reading: %w", err)
	}
	return c.CalculateWith(ctx, b, reading)
}

// CalculateWith prices the booking against an already loaded meter reading.
func (c *InvoiceCalculator) CalculateWith(ctx context.Context, b *models.Booking, reading *models.MeterReading) (*InvoiceBreakdown, error) {
	guest := b.Guest
	if guest.ID == 0 {
		g, err := c.Store.GetGuest(ctx, b.GuestID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrGuestNotFound
			}
			return nil, err
		}
		guest = *g
	}
	return c.calculate(ctx, b, guest, reading)
}

func (c *InvoiceCalculator) calculate(ctx context.Context, b *models.Booking, guest models.Guest, reading *models.MeterReading) (*InvoiceBreakdown, error) {
	today := utils.DateOnly(c.Now())
	out := &InvoiceBreakdown{
		BookingID:   b.ID,
		NumDays:     b.Nights(),
		Consumption: Summarize(reading),
		PricedOn:    today.Format(utils.DateLayout),
	}

	rate := func(pt models.PriceType) (float64, error) {
		r, ok, err := c.Pricing.Rate(ctx, pt, today)
		if err != nil {
			return 0, err
		}
		if !ok {
			out.MissingPrices = append(out.MissingPrices, pt)
		}
		return r, nil
	}

	var err error
	if guest.PaysDayrate {
		if out.StayRate, err = rate(models.PriceStayPerNight); err != nil {
			return nil, err
		}
		out.AccommodationCost = roundCents(float64(out.NumDays) * out.StayRate)
	}

	cons := out.Consumption
	if cons.ElectricityKWh != nil {
		if out.ElectricityRate, err = rate(models.PriceElectricityPerKWh); err != nil {
			return nil, err
		}
		out.ElectricityCost = roundCents(*cons.ElectricityKWh * out.ElectricityRate)
	}
	if cons.GasKWh != nil {
		if out.GasRate, err = rate(models.PriceGasPerCubicMeter); err != nil {
			return nil, err
		}
		out.GasRatePerKWh = out.GasRate / GasKWhPerCubicMeter
		out.GasCost = roundCents(*cons.GasKWh * out.GasRatePerKWh)
	}
	if cons.FirewoodBoxes != nil {
		if out.FirewoodRate, err = rate(models.PriceFirewoodPerBox); err != nil {
			return nil, err
		}
		out.FirewoodCost = roundCents(float64(*cons.FirewoodBoxes) * out.FirewoodRate)
	}
	if b.KurtaxeAmount != nil {
		out.KurtaxeCost = roundCents(*b.KurtaxeAmount)
	}

	out.TotalCost = roundCents(out.AccommodationCost + out.ElectricityCost + out.GasCost + out.FirewoodCost + out.KurtaxeCost)
	return out, nil
}

func encodeSnapshot(br *InvoiceBreakdown) (datatypes.JSON, error) {
	data, err := json.Marshal(br)
	if err != nil {
		return nil, fmt.Errorf("encode invoice snapshot: %w", err)
	}
	return datatypes.JSON(data), nil
}

// frozenBreakdown returns the line items stored when the invoice was
// generated, or nil for a booking without a snapshot.
func frozenBreakdown(b *models.Booking) (*InvoiceBreakdown, error) {
	if len(b.InvoiceSnapshot) == 0 {
		return nil, nil
	}
	var br InvoiceBreakdown
	if err := json.Unmarshal(b.InvoiceSnapshot, &br); err != nil {
		return nil, fmt.Errorf("decode invoice snapshot: %w", err)
	}
	return &br, nil
}

// NewInvoiceID builds INV-<booking>-<yyyymmdd>-<8 hex chars>.
func NewInvoiceID(bookingID uint, at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("INV-%d-%s-%s", bookingID, at.UTC().Format("20060102"), suffix)
}

// within binds the calculator to st, typically a transaction.
func (c *InvoiceCalculator) within(st repository.Store) *InvoiceCalculator {
	return &InvoiceCalculator{Store: st, Pricing: NewPricingService(st), Now: c.Now}
}
