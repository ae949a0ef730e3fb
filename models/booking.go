package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/nilsrambow/amrum-be/utils"
)

// Booking is a date-ranged stay of one guest. Status is derived from the
// workflow flags and dates and persisted for querying.
type Booking struct {
	ID uint `gorm:"primaryKey" json:"id"`

	GuestID uint  `gorm:"index;column:guest_id;not null" json:"guest_id"`
	Guest   Guest `gorm:"foreignKey:GuestID;references:ID" json:"guest,omitempty"`

	CheckIn  time.Time `gorm:"column:check_in;type:date;index" json:"check_in"`
	CheckOut time.Time `gorm:"column:check_out;type:date;index" json:"check_out"`

	Confirmed             bool       `gorm:"column:confirmed;default:false;index" json:"confirmed"`
	ConfirmedAt           *time.Time `gorm:"column:confirmed_at" json:"confirmed_at,omitempty"`
	KurkartenEmailSent    bool       `gorm:"column:kurkarten_email_sent;default:false" json:"kurkarten_email_sent"`
	KurkartenEmailSentAt  *time.Time `gorm:"column:kurkarten_email_sent_date" json:"kurkarten_email_sent_date,omitempty"`
	PreArrivalEmailSent   bool       `gorm:"column:pre_arrival_email_sent;default:false" json:"pre_arrival_email_sent"`
	PreArrivalEmailSentAt *time.Time `gorm:"column:pre_arrival_email_sent_date" json:"pre_arrival_email_sent_date,omitempty"`
	InvoiceCreated        bool       `gorm:"column:invoice_created;default:false" json:"invoice_created"`
	InvoiceCreatedAt      *time.Time `gorm:"column:invoice_created_date" json:"invoice_created_date,omitempty"`
	InvoiceSent           bool       `gorm:"column:invoice_sent;default:false" json:"invoice_sent"`
	InvoiceSentAt         *time.Time `gorm:"column:invoice_sent_date" json:"invoice_sent_date,omitempty"`
	Paid                  bool       `gorm:"column:paid;default:false" json:"paid"`
	PaidAt                *time.Time `gorm:"column:paid_date" json:"paid_date,omitempty"`

	KurtaxeAmount *float64 `gorm:"column:kurtaxe_amount" json:"kurtaxe_amount,omitempty"`
	Notes         *string  `gorm:"column:notes;type:text" json:"notes,omitempty"`
	InvoiceID     *string  `gorm:"column:invoice_id;size:64;uniqueIndex" json:"invoice_id,omitempty"`
	// amount due frozen when the invoice is generated
	InvoiceAmount *float64 `gorm:"column:invoice_amount" json:"invoice_amount,omitempty"`
	// line items as billed; rendered instead of a fresh calculation
	InvoiceSnapshot datatypes.JSON `gorm:"column:invoice_snapshot" json:"-"`

	Status BookingStatus `gorm:"column:status;size:32;index;default:NEW" json:"status"`

	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
	ModifiedAt time.Time `gorm:"column:modified_at;index" json:"modified_at"`
}

// Nights returns the number of nights between check-in and check-out.
func (b *Booking) Nights() int {
	return utils.DaysBetween(b.CheckIn, b.CheckOut)
}

// ResetWorkflow puts every workflow flag, timestamp and staff-entered value
// back to the state of a freshly created booking.
func (b *Booking) ResetWorkflow() {
	b.Confirmed = false
	b.ConfirmedAt = nil
	b.KurkartenEmailSent = false
	b.KurkartenEmailSentAt = nil
	b.PreArrivalEmailSent = false
	b.PreArrivalEmailSentAt = nil
	b.InvoiceCreated = false
	b.InvoiceCreatedAt = nil
	b.InvoiceSent = false
	b.InvoiceSentAt = nil
	b.Paid = false
	b.PaidAt = nil
	b.KurtaxeAmount = nil
	b.Notes = nil
	b.InvoiceID = nil
	b.InvoiceAmount = nil
	b.InvoiceSnapshot = nil
	b.Status = StatusNew
}
