package services

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"time"

	"gorm.io/datatypes"

	"github.com/nilsrambow/amrum-be/models"
	"github.com/nilsrambow/amrum-be/repository"
	"github.com/nilsrambow/amrum-be/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names.
const (
	TemplateBookingConfirmation = "booking_confirmation"
	TemplateKurkartenRequest    = "kurkarten_request"
	TemplatePreArrivalInfo      = "pre_arrival_info"
	TemplateInvoiceEmail        = "invoice_email"
	TemplateInvoiceAgentCopy    = "invoice_agent_copy"
	TemplateAgentReminder       = "agent_reminder"
)

// Message is one outbound notification.
type Message struct {
	BookingID *uint
	Recipient string
	Subject   string
	Template  string
	Context   map[string]interface{}
}

// Communicator sends templated messages. Callers only look at the error.
type Communicator interface {
	Send(ctx context.Context, msg Message) error
}

// Mailer delivers a rendered HTML email.
type Mailer interface {
	Deliver(ctx context.Context, to, subject, html string) error
	Channel() string
}

// CommunicationService renders templates, delivers through a Mailer and
// writes one CommunicationLog row per attempt.
type CommunicationService struct {
	Store        repository.Store
	Mailer       Mailer
	PropertyName string
	templates    *template.Template
}

func NewCommunicationService(store repository.Store, mailer Mailer, propertyName string) (*CommunicationService, error) {
	tpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &CommunicationService{
		Store:        store,
		Mailer:       mailer,
		PropertyName: propertyName,
		templates:    tpl,
	}, nil
}

// Render executes the named template with ctx.
func (s *CommunicationService) Render(name string, ctx map[string]interface{}) (string, error) {
	data := make(map[string]interface{}, len(ctx)+1)
	for k, v := range ctx {
		data[k] = v
	}
	if _, ok := data["property_name"]; !ok {
		data["property_name"] = s.PropertyName
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name+".html", data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func (s *CommunicationService) Send(ctx context.Context, msg Message) error {
	log.Printf("➡️ Send %s to %s", msg.Template, utils.MaskEmail(msg.Recipient))

	body, err := s.Render(msg.Template, msg.Context)
	if err == nil {
		err = s.Mailer.Deliver(ctx, msg.Recipient, msg.Subject, body)
	}
	s.record(ctx, msg, err)

	if err != nil {
		log.Printf("❌ Send %s to %s failed: %v", msg.Template, utils.MaskEmail(msg.Recipient), err)
		return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	log.Printf("✅ Sent %s to %s", msg.Template, utils.MaskEmail(msg.Recipient))
	return nil
}

func (s *CommunicationService) record(ctx context.Context, msg Message, sendErr error) {
	if s.Store == nil {
		return
	}
	raw, err := json.Marshal(msg.Context)
	if err != nil {
		raw = []byte("{}")
	}
	entry := &models.CommunicationLog{
		BookingID: msg.BookingID,
		Recipient: msg.Recipient,
		Subject:   msg.Subject,
		Template:  msg.Template,
		Channel:   s.Mailer.Channel(),
		Context:   datatypes.JSON(raw),
		Status:    models.CommunicationSent,
		CreatedAt: time.Now(),
	}
	if sendErr != nil {
		entry.Status = models.CommunicationFailed
		entry.Error = sendErr.Error()
	}
	if err := s.Store.CreateCommunicationLog(ctx, entry); err != nil {
		log.Printf("⚠️ failed to write communication log: %v", err)
	}
}

// History lists the messages sent for a booking, newest first.
func (s *CommunicationService) History(ctx context.Context, bookingID uint) ([]models.CommunicationLog, error) {
	return s.Store.ListCommunicationLogs(ctx, bookingID)
}
