package models

import "time"

// MeterReading holds the start/end utility meter values of one booking.
type MeterReading struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	BookingID uint `gorm:"uniqueIndex;column:booking_id;not null" json:"booking_id"`

	ElectricityStart *float64 `gorm:"column:electricity_start" json:"electricity_start"`
	ElectricityEnd   *float64 `gorm:"column:electricity_end" json:"electricity_end"`
	GasStart         *float64 `gorm:"column:gas_start" json:"gas_start"`
	GasEnd           *float64 `gorm:"column:gas_end" json:"gas_end"`
	FirewoodBoxes    *int     `gorm:"column:firewood_boxes" json:"firewood_boxes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
