package services

import (
	"math"

	"github.com/nilsrambow/amrum-be/models"
)

// GasKWhPerCubicMeter converts gas meter deltas and gas prices.
const GasKWhPerCubicMeter = 10.5

// ConsumptionSummary holds derived usage. A nil field means the readings
// needed for it are missing, which is not the same as zero usage.
type ConsumptionSummary struct {
	ElectricityKWh *float64 `json:"electricity_kwh,omitempty"`
	GasCubicMeters *float64 `json:"gas_cubic_meters,omitempty"`
	GasKWh         *float64 `json:"gas_kwh,omitempty"`
	FirewoodBoxes  *int     `json:"firewood_boxes,omitempty"`
}

// round3 trims float noise from meter subtraction (150.2-100 = 50.2).
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func Summarize(m *models.MeterReading) ConsumptionSummary {
	var s ConsumptionSummary
	if m == nil {
		return s
	}
	if m.ElectricityStart != nil && m.ElectricityEnd != nil {
		kwh := round3(*m.ElectricityEnd - *m.ElectricityStart)
		s.ElectricityKWh = &kwh
	}
	if m.GasStart != nil && m.GasEnd != nil {
		m3 := round3(*m.GasEnd - *m.GasStart)
		kwh := round3(m3 * GasKWhPerCubicMeter)
		s.GasCubicMeters = &m3
		s.GasKWh = &kwh
	}
	if m.FirewoodBoxes != nil {
		boxes := *m.FirewoodBoxes
		s.FirewoodBoxes = &boxes
	}
	return s
}

// AreReadingsComplete is true when both electricity and gas have start and end values.
func AreReadingsComplete(m *models.MeterReading) bool {
	return m != nil &&
		m.ElectricityStart != nil && m.ElectricityEnd != nil &&
		m.GasStart != nil && m.GasEnd != nil
}

// ValidateReadings rejects an end value below its start value.
func ValidateReadings(m *models.MeterReading) error {
	if m.ElectricityStart != nil && m.ElectricityEnd != nil && *m.ElectricityEnd < *m.ElectricityStart {
		return ErrInvalidReading
	}
	if m.GasStart != nil && m.GasEnd != nil && *m.GasEnd < *m.GasStart {
		return ErrInvalidReading
	}
	if m.FirewoodBoxes != nil && *m.FirewoodBoxes < 0 {
		return ErrInvalidReading
	}
	return nil
}
