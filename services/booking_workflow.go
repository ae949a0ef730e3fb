package services

import (
	"context"
	"errors"
	"log"

	"github.com/nilsrambow/amrum-be/models"
	"github.com/nilsrambow/amrum-be/repository"
	"github.com/nilsrambow/amrum-be/utils"
)

// ---------------- kurkarten / pre-arrival ----------------

// SendKurkartenEmail sends the tourist-card registration request and marks
// the booking only after the email went out.
func (s *BookingService) SendKurkartenEmail(ctx context.Context, id uint) (*models.Booking, error) {
	log.Printf("➡️ SendKurkartenEmail id=%d", id)

	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.Confirmed {
		return nil, ErrNotConfirmed
	}

	url, err := s.Kurkarten.FetchRegistrationURL(ctx, b.Guest.Email)
	if err != nil {
		log.Printf("❌ booking %d: %v", b.ID, err)
		return nil, err
	}

	data := s.mailContext(b)
	data["kurkarten_url"] = url
	if err := s.Comms.Send(ctx, Message{
		BookingID: &b.ID,
		Recipient: b.Guest.Email,
		Subject:   "Tourist Card Information Required",
		Template:  TemplateKurkartenRequest,
		Context:   data,
	}); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, func(tx repository.Store, b *models.Booking) error {
		readings, err := hasReadings(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		now := s.Now()
		b.KurkartenEmailSent = true
		b.KurkartenEmailSentAt = &now
		b.ModifiedAt = now
		s.applyStatus(b, OnKurkartenSent(FactsFor(b, readings), s.today()))
		return nil
	})
}

// SendPreArrivalEmail requires the kurkarten step; without it staff get a
// reminder and ErrKurkartenPending is returned.
func (s *BookingService) SendPreArrivalEmail(ctx context.Context, id uint) (*models.Booking, error) {
	log.Printf("➡️ SendPreArrivalEmail id=%d", id)

	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.Confirmed {
		return nil, ErrNotConfirmed
	}
	if !b.KurkartenEmailSent {
		s.sendAgentReminder(ctx, b,
			"Kurkarten information missing - cannot send pre-arrival email",
			[]string{"Kurkarten information not completed"})
		return nil, ErrKurkartenPending
	}

	url, err := s.Kurkarten.FetchRegistrationURL(ctx, b.Guest.Email)
	if err != nil {
		return nil, err
	}

	data := s.mailContext(b)
	data["kurkarten_url"] = url
	if b.KurtaxeAmount != nil {
		data["kurtaxe_amount"] = money(*b.KurtaxeAmount)
	}
	if tok, err := s.ensureToken(ctx, b); err == nil && tok != nil {
		data["magic_link"] = s.Tokens.MagicLink(tok.Token)
	}
	if err := s.Comms.Send(ctx, Message{
		BookingID: &b.ID,
		Recipient: b.Guest.Email,
		Subject:   "Pre-Arrival Information",
		Template:  TemplatePreArrivalInfo,
		Context:   data,
	}); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, func(tx repository.Store, b *models.Booking) error {
		readings, err := hasReadings(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		now := s.Now()
		b.PreArrivalEmailSent = true
		b.PreArrivalEmailSentAt = &now
		b.ModifiedAt = now
		s.applyStatus(b, OnPreArrivalSent(FactsFor(b, readings), s.today()))
		return nil
	})
}

// arrivingWithin lists confirmed bookings with today < check_in <= today+days.
func (s *BookingService) arrivingWithin(ctx context.Context, days int) ([]models.Booking, error) {
	today := s.today()
	return s.Store.ListConfirmedArrivingBetween(ctx, today, today.AddDate(0, 0, days))
}

func (s *BookingService) CheckAndSendKurkartenEmails(ctx context.Context) int {
	list, err := s.arrivingWithin(ctx, s.Policy.KurkartenLeadDays)
	if err != nil {
		log.Printf("❌ kurkarten batch: %v", err)
		return 0
	}
	return s.runBatch(ctx, "kurkarten", list,
		func(b models.Booking) bool { return !b.KurkartenEmailSent },
		func(ctx context.Context, id uint) error {
			_, err := s.SendKurkartenEmail(ctx, id)
			return err
		})
}

func (s *BookingService) CheckAndSendPreArrivalEmails(ctx context.Context) int {
	list, err := s.arrivingWithin(ctx, s.Policy.PreArrivalLeadDays)
	if err != nil {
		log.Printf("❌ pre-arrival batch: %v", err)
		return 0
	}
	return s.runBatch(ctx, "pre-arrival", list,
		func(b models.Booking) bool { return !b.PreArrivalEmailSent },
		func(ctx context.Context, id uint) error {
			_, err := s.SendPreArrivalEmail(ctx, id)
			return err
		})
}

// ---------------- invoices ----------------

type InvoiceResult struct {
	InvoiceID string            `json:"invoice_id"`
	Breakdown *InvoiceBreakdown `json:"breakdown"`
	Booking   *models.Booking   `json:"booking"`
}

// missingReadings names what blocks invoicing.
func missingReadings(m *models.MeterReading) []string {
	if m == nil {
		return []string{"All meter readings"}
	}
	var items []string
	if m.ElectricityStart == nil || m.ElectricityEnd == nil {
		items = append(items, "Electricity readings")
	}
	if m.GasStart == nil || m.GasEnd == nil {
		items = append(items, "Gas readings")
	}
	return items
}

// GenerateInvoice freezes the invoice id and amount. Calling it again returns
// the existing invoice. Incomplete readings trigger a staff reminder.
func (s *BookingService) GenerateInvoice(ctx context.Context, id uint) (*InvoiceResult, error) {
	log.Printf("➡️ GenerateInvoice id=%d", id)

	var (
		res     *InvoiceResult
		missing []string
	)
	b, err := s.mutate(ctx, id, func(tx repository.Store, b *models.Booking) error {
		m, err := tx.GetMeterReading(ctx, b.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		calc := s.Invoices.within(tx)

		if b.InvoiceCreated && b.InvoiceID != nil {
			breakdown, err := billedBreakdown(ctx, calc, b, m)
			if err != nil {
				return err
			}
			res = &InvoiceResult{InvoiceID: *b.InvoiceID, Breakdown: breakdown}
			return nil
		}
		if !AreReadingsComplete(m) {
			missing = missingReadings(m)
			return ErrReadingsIncomplete
		}

		breakdown, err := calc.CalculateWith(ctx, b, m)
		if err != nil {
			return err
		}
		snapshot, err := encodeSnapshot(breakdown)
		if err != nil {
			return err
		}
		paid, err := totalPaid(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		now := s.Now()
		invoiceID := NewInvoiceID(b.ID, now)
		total := breakdown.TotalCost
		b.InvoiceID = &invoiceID
		b.InvoiceAmount = &total
		b.InvoiceSnapshot = snapshot
		settlePaid(b, paid, now)
		b.InvoiceCreated = true
		b.InvoiceCreatedAt = &now
		b.ModifiedAt = now
		s.applyStatus(b, OnInvoiceCreated(FactsFor(b, true), s.today()))
		res = &InvoiceResult{InvoiceID: invoiceID, Breakdown: breakdown}
		return nil
	})
	if errors.Is(err, ErrReadingsIncomplete) {
		if booking, gerr := s.Get(ctx, id); gerr == nil {
			s.sendAgentReminder(ctx, booking, "Missing meter readings - cannot generate invoice", missing)
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	res.Booking = b
	log.Printf("✅ invoice %s total=%.2f booking=%d", res.InvoiceID, res.Breakdown.TotalCost, b.ID)
	return res, nil
}

// billedBreakdown is the frozen breakdown of an invoiced booking. Bookings
// without a snapshot are priced live.
func billedBreakdown(ctx context.Context, calc *InvoiceCalculator, b *models.Booking, m *models.MeterReading) (*InvoiceBreakdown, error) {
	frozen, err := frozenBreakdown(b)
	if err != nil || frozen != nil {
		return frozen, err
	}
	if m == nil {
		return calc.Calculate(ctx, b)
	}
	return calc.CalculateWith(ctx, b, m)
}

// PreviewInvoice calculates the breakdown without storing anything. Once the
// invoice exists it returns the billed line items.
func (s *BookingService) PreviewInvoice(ctx context.Context, id uint) (*InvoiceBreakdown, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return billedBreakdown(ctx, s.Invoices, b, nil)
}

func lineItems(br *InvoiceBreakdown) []map[string]string {
	items := []map[string]string{}
	add := func(label string, amount float64) {
		items = append(items, map[string]string{"label": label, "amount": money(amount)})
	}
	if br.AccommodationCost > 0 {
		add("Accommodation", br.AccommodationCost)
	}
	if br.Consumption.ElectricityKWh != nil {
		add("Electricity", br.ElectricityCost)
	}
	if br.Consumption.GasKWh != nil {
		add("Gas", br.GasCost)
	}
	if br.Consumption.FirewoodBoxes != nil {
		add("Firewood", br.FirewoodCost)
	}
	if br.KurtaxeCost > 0 {
		add("Tourist tax", br.KurtaxeCost)
	}
	return items
}

// SendInvoice mails a generated invoice to the guest with a copy to the
// agent. invoice_sent is set only when the guest email succeeded.
func (s *BookingService) SendInvoice(ctx context.Context, id uint) (*models.Booking, error) {
	log.Printf("➡️ SendInvoice id=%d", id)

	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.InvoiceCreated || b.InvoiceID == nil {
		return nil, ErrInvoiceNotCreated
	}
	breakdown, err := billedBreakdown(ctx, s.Invoices, b, nil)
	if err != nil {
		return nil, err
	}
	total := breakdown.TotalCost
	if b.InvoiceAmount != nil {
		total = *b.InvoiceAmount
	}

	data := s.mailContext(b)
	data["invoice_id"] = *b.InvoiceID
	data["line_items"] = lineItems(breakdown)
	data["total_cost"] = money(total)

	if err := s.Comms.Send(ctx, Message{
		BookingID: &b.ID,
		Recipient: b.Guest.Email,
		Subject:   "Invoice " + *b.InvoiceID,
		Template:  TemplateInvoiceEmail,
		Context:   data,
	}); err != nil {
		return nil, err
	}
	if err := s.Comms.Send(ctx, Message{
		BookingID: &b.ID,
		Recipient: s.Policy.AgentEmail,
		Subject:   "Invoice Sent - " + *b.InvoiceID,
		Template:  TemplateInvoiceAgentCopy,
		Context:   data,
	}); err != nil {
		log.Printf("⚠️ agent copy of invoice %s failed: %v", *b.InvoiceID, err)
	}

	return s.mutate(ctx, id, func(tx repository.Store, b *models.Booking) error {
		readings, err := hasReadings(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		now := s.Now()
		b.InvoiceSent = true
		b.InvoiceSentAt = &now
		b.ModifiedAt = now
		s.applyStatus(b, OnInvoiceSent(FactsFor(b, readings), s.today()))
		return nil
	})
}

// CheckAndGenerateInvoices invoices confirmed stays that ended at least
// InvoiceDelayDays ago.
func (s *BookingService) CheckAndGenerateInvoices(ctx context.Context) int {
	cutoff := s.today().AddDate(0, 0, -s.Policy.InvoiceDelayDays)
	list, err := s.Store.ListConfirmedDepartedBefore(ctx, cutoff)
	if err != nil {
		log.Printf("❌ invoice batch: %v", err)
		return 0
	}
	return s.runBatch(ctx, "invoice generation", list,
		func(b models.Booking) bool { return !b.InvoiceCreated },
		func(ctx context.Context, id uint) error {
			_, err := s.GenerateInvoice(ctx, id)
			return err
		})
}

// CheckAndSendInvoices sends every generated but unsent invoice.
func (s *BookingService) CheckAndSendInvoices(ctx context.Context) int {
	list, err := s.Store.ListConfirmedDepartedBefore(ctx, s.today())
	if err != nil {
		log.Printf("❌ invoice send batch: %v", err)
		return 0
	}
	return s.runBatch(ctx, "invoice sending", list,
		func(b models.Booking) bool { return b.InvoiceCreated && !b.InvoiceSent },
		func(ctx context.Context, id uint) error {
			_, err := s.SendInvoice(ctx, id)
			return err
		})
}

func (s *BookingService) runBatch(ctx context.Context, name string, list []models.Booking, want func(models.Booking) bool, run func(context.Context, uint) error) int {
	done, tried := 0, 0
	for _, b := range list {
		if !want(b) {
			continue
		}
		tried++
		if err := run(ctx, b.ID); err != nil {
			log.Printf("❌ %s batch booking %d: %v", name, b.ID, err)
			continue
		}
		done++
	}
	log.Printf("%s batch: %d/%d done", name, done, tried)
	return done
}

// ---------------- guest access ----------------

// GuestBookingView is what a guest sees through the magic link.
type GuestBookingView struct {
	Booking      *models.Booking      `json:"booking"`
	GuestName    string               `json:"guest_name"`
	MeterReading *models.MeterReading `json:"meter_reading,omitempty"`
	Consumption  ConsumptionSummary   `json:"consumption"`
	Payments     []models.Payment     `json:"payments"`
	TotalPaid    float64              `json:"total_paid"`
	Invoice      *InvoiceBreakdown    `json:"invoice,omitempty"`
}

func (s *BookingService) GuestView(ctx context.Context, token string) (*GuestBookingView, error) {
	b, err := s.Tokens.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	view := &GuestBookingView{Booking: b, GuestName: b.Guest.DisplayName()}

	m, err := s.Store.GetMeterReading(ctx, b.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	view.MeterReading = m
	view.Consumption = Summarize(m)

	if view.Payments, err = s.Store.ListPayments(ctx, b.ID); err != nil {
		return nil, err
	}
	if view.TotalPaid, err = totalPaid(ctx, s.Store, b.ID); err != nil {
		return nil, err
	}
	if b.InvoiceCreated {
		if view.Invoice, err = billedBreakdown(ctx, s.Invoices, b, m); err != nil {
			return nil, err
		}
	}
	return view, nil
}

// GuestSubmitReadings stores readings entered by the guest.
func (s *BookingService) GuestSubmitReadings(ctx context.Context, token string, in MeterReadingInput) (*models.MeterReading, error) {
	b, err := s.Tokens.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	if b.InvoiceCreated {
		return nil, ErrInvoiceAlreadyCreated
	}
	log.Printf("guest %s submits readings for booking %d", utils.MaskEmail(b.Guest.Email), b.ID)
	return s.SaveMeterReadings(ctx, b.ID, in)
}
