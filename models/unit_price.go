package models

import "time"

// PriceType is the category a unit price applies to.
type PriceType string

const (
	PriceStayPerNight      PriceType = "STAY_PER_NIGHT"
	PriceElectricityPerKWh PriceType = "ELECTRICITY_PER_KWH"
	PriceGasPerCubicMeter  PriceType = "GAS_PER_CUBIC_METER"
	PriceFirewoodPerBox    PriceType = "FIREWOOD_PER_BOX"
)

// PriceTypeFromSlug maps the url segment used by the pricing API.
var PriceTypeFromSlug = map[string]PriceType{
	"stay":        PriceStayPerNight,
	"electricity": PriceElectricityPerKWh,
	"gas":         PriceGasPerCubicMeter,
	"firewood":    PriceFirewoodPerBox,
}

// UnitPrice is a versioned price. A nil EffectiveTo means open ended.
type UnitPrice struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	PriceType     PriceType  `gorm:"column:price_type;size:32;index;not null" json:"price_type"`
	PricePerUnit  float64    `gorm:"column:price_per_unit;not null" json:"price_per_unit"`
	Currency      string     `gorm:"size:3;default:EUR" json:"currency"`
	EffectiveFrom time.Time  `gorm:"column:effective_from;type:date;index" json:"effective_from"`
	EffectiveTo   *time.Time `gorm:"column:effective_to;type:date" json:"effective_to,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Covers reports whether the price row is in effect on day.
func (p UnitPrice) Covers(day time.Time) bool {
	if p.EffectiveFrom.After(day) {
		return false
	}
	return p.EffectiveTo == nil || !p.EffectiveTo.Before(day)
}
