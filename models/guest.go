package models

import (
	"strings"
	"time"
)

type Guest struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	FirstName string `gorm:"size:100;not null" json:"first_name"`
	LastName  string `gorm:"size:100;not null" json:"last_name"`
	Email     string `gorm:"size:150;uniqueIndex;not null" json:"email"`

	// PaysDayrate gates whether accommodation is charged per night.
	PaysDayrate    bool   `gorm:"column:pays_dayrate;not null" json:"pays_dayrate"`
	HashedPassword string `gorm:"size:255" json:"-"`
	IsAdmin        bool   `gorm:"default:false" json:"is_admin"`

	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `gorm:"column:modified_at" json:"modified_at"`
}

// DisplayName is "First Last", trimmed.
func (g Guest) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(g.FirstName) + " " + strings.TrimSpace(g.LastName))
}
