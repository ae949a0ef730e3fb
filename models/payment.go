package models

import (
	"time"

	"gorm.io/datatypes"
)

type Payment struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	BookingID uint `gorm:"index;column:booking_id;not null" json:"booking_id"`

	Amount      float64        `gorm:"type:decimal(10,2);not null" json:"amount"`
	PaymentDate datatypes.Date `gorm:"column:payment_date;index" json:"payment_date"`
	Method      *string        `gorm:"size:64" json:"method,omitempty"`
	Reference   *string        `gorm:"size:128" json:"reference,omitempty"`
	Notes       *string        `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Date returns the payment date as time.Time.
func (p Payment) Date() time.Time {
	return time.Time(p.PaymentDate)
}
