package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	CommunicationSent   = "sent"
	CommunicationFailed = "failed"
)

// CommunicationLog records every outbound message attempt.
type CommunicationLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	BookingID *uint          `gorm:"index" json:"booking_id"`
	Recipient string         `gorm:"size:150;index" json:"recipient"`
	Subject   string         `gorm:"size:255" json:"subject"`
	Template  string         `gorm:"size:64;index" json:"template"`
	Channel   string         `gorm:"size:16;default:email" json:"channel"`
	Context   datatypes.JSON `json:"context"`
	Status    string         `gorm:"size:16;index" json:"status"`
	Error     string         `gorm:"type:text" json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
