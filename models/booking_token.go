package models

import "time"

// BookingToken is an opaque bearer token giving a guest access to one booking.
type BookingToken struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	BookingID  uint       `gorm:"index;column:booking_id;not null" json:"booking_id"`
	Token      string     `gorm:"uniqueIndex;size:128" json:"token"`
	ExpiresAt  time.Time  `gorm:"index" json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
