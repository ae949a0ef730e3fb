package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/nilsrambow/amrum-be/models"
	"github.com/nilsrambow/amrum-be/repository"
)

type BookingServiceSuite struct {
	suite.Suite
	ctx   context.Context
	store *repository.MemoryStore
	clock *clock
	comms *recordingComms
	svc   *BookingService
	guest *models.Guest
}

func (s *BookingServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = repository.NewMemoryStore()
	s.clock = newClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	s.comms = &recordingComms{fail: map[string]bool{}}

	tokens := NewTokenService(s.store, "https://amrum.example", s.clock.Now)
	invoices := NewInvoiceCalculator(s.store, NewPricingService(s.store), s.clock.Now)
	s.svc = NewBookingService(s.store, tokens, s.comms,
		stubRegistration{url: "https://kurkarten.example/register"},
		invoices, DefaultPolicy(), s.clock.Now)

	s.guest = &models.Guest{FirstName: "Ole", LastName: "Hansen", Email: "ole@example.com", PaysDayrate: true}
	s.Require().NoError(s.store.CreateGuest(s.ctx, s.guest))
}

func (s *BookingServiceSuite) create(in, out string) *models.Booking {
	b, err := s.svc.CreateBooking(s.ctx, CreateBookingInput{GuestID: s.guest.ID, CheckIn: date(in), CheckOut: date(out)})
	s.Require().NoError(err)
	return b
}

func (s *BookingServiceSuite) reload(id uint) *models.Booking {
	b, err := s.svc.Get(s.ctx, id)
	s.Require().NoError(err)
	return b
}

// readyForArrival walks a booking through confirmation and both emails.
func (s *BookingServiceSuite) readyForArrival(in, out string) *models.Booking {
	b := s.create(in, out)
	_, err := s.svc.ConfirmBooking(s.ctx, b.ID)
	s.Require().NoError(err)
	_, err = s.svc.SendKurkartenEmail(s.ctx, b.ID)
	s.Require().NoError(err)
	b, err = s.svc.SendPreArrivalEmail(s.ctx, b.ID)
	s.Require().NoError(err)
	return b
}

func (s *BookingServiceSuite) TestCreateBookingStartsAsNew() {
	b := s.create("2025-07-10", "2025-07-20")

	got := s.reload(b.ID)
	s.Equal(models.StatusNew, got.Status)
	s.False(got.Confirmed)
	s.Equal("Ole Hansen", got.Guest.DisplayName())

	tok, err := s.svc.Tokens.Active(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Require().NotNil(tok)
	s.Equal(date("2025-10-18"), tok.ExpiresAt)
	s.Len(tok.Token, 64)
}

func (s *BookingServiceSuite) TestCreateBookingRejectsOverlap() {
	first := s.create("2025-07-10", "2025-07-20")

	_, err := s.svc.CreateBooking(s.ctx, CreateBookingInput{GuestID: s.guest.ID, CheckIn: date("2025-07-15"), CheckOut: date("2025-07-25")})
	var oe *OverlapError
	s.Require().ErrorAs(err, &oe)
	s.Require().Len(oe.Conflicts, 1)
	s.Equal(first.ID, oe.Conflicts[0].BookingID)
	s.Equal("Ole Hansen", oe.Conflicts[0].GuestName)
	s.True(IsValidation(err))

	s.create("2025-07-20", "2025-07-25")
	s.create("2025-07-01", "2025-07-10")
}

func (s *BookingServiceSuite) TestCreateBookingValidation() {
	_, err := s.svc.CreateBooking(s.ctx, CreateBookingInput{GuestID: s.guest.ID, CheckIn: date("2025-07-10"), CheckOut: date("2025-07-10")})
	s.ErrorIs(err, ErrInvalidDates)

	_, err = s.svc.CreateBooking(s.ctx, CreateBookingInput{GuestID: 999, CheckIn: date("2025-07-10"), CheckOut: date("2025-07-12")})
	s.ErrorIs(err, ErrGuestNotFound)
	s.True(IsNotFound(err))

	s.create("2025-01-10", "2025-01-12")

	s.svc.Policy.RejectPastCheckIn = true
	_, err = s.svc.CreateBooking(s.ctx, CreateBookingInput{GuestID: s.guest.ID, CheckIn: date("2025-02-10"), CheckOut: date("2025-02-12")})
	s.ErrorIs(err, ErrPastCheckIn)
}

func (s *BookingServiceSuite) TestConfirmBookingSendsConfirmation() {
	b := s.create("2025-07-10", "2025-07-20")

	res, err := s.svc.ConfirmBooking(s.ctx, b.ID)
	s.Require().NoError(err)
	s.True(res.EmailSent)
	s.Equal(models.StatusConfirmed, res.Booking.Status)
	s.NotNil(res.Booking.ConfirmedAt)
	s.True(strings.HasPrefix(res.MagicLink, "https://amrum.example/guest/booking?token="))

	msgs := s.comms.byTemplate(TemplateBookingConfirmation)
	s.Require().Len(msgs, 1)
	s.Equal("ole@example.com", msgs[0].Recipient)
	s.Equal(res.MagicLink, msgs[0].Context["magic_link"])
	s.Equal("July 10, 2025", msgs[0].Context["check_in_date"])

	_, err = s.svc.ConfirmBooking(s.ctx, b.ID)
	s.ErrorIs(err, ErrAlreadyConfirmed)
}

func (s *BookingServiceSuite) TestConfirmCommitsEvenWhenEmailFails() {
	b := s.create("2025-07-10", "2025-07-20")
	s.comms.fail[TemplateBookingConfirmation] = true

	res, err := s.svc.ConfirmBooking(s.ctx, b.ID)
	s.Require().NoError(err)
	s.False(res.EmailSent)
	s.True(s.reload(b.ID).Confirmed)
}

func (s *BookingServiceSuite) TestCheckAndConfirmBookings() {
	now := s.clock.Now()

	s.clock.Set(now.Add(-40 * time.Hour))
	old := s.create("2025-07-01", "2025-07-05")
	s.clock.Set(now.Add(-10 * time.Hour))
	recent := s.create("2025-07-10", "2025-07-15")
	s.clock.Set(now)

	s.Equal(1, s.svc.CheckAndConfirmBookings(s.ctx, 36*time.Hour))
	s.True(s.reload(old.ID).Confirmed)
	s.False(s.reload(recent.ID).Confirmed)

	s.Equal(0, s.svc.CheckAndConfirmBookings(s.ctx, 36*time.Hour))
}

func (s *BookingServiceSuite) TestUpdateBooking() {
	b := s.create("2025-07-10", "2025-07-20")
	s.clock.Set(s.clock.Now().Add(time.Hour))

	notes := "late arrival"
	got, err := s.svc.UpdateBooking(s.ctx, b.ID, UpdateBookingInput{KurtaxeAmount: f64(31.5), Notes: &notes})
	s.Require().NoError(err)
	s.Equal(31.5, *got.KurtaxeAmount)
	s.Equal("late arrival", *got.Notes)
	s.Equal(s.clock.Now(), got.ModifiedAt)

	_, err = s.svc.UpdateBooking(s.ctx, b.ID, UpdateBookingInput{})
	s.ErrorIs(err, ErrNoFieldsToUpdate)
	_, err = s.svc.UpdateBooking(s.ctx, 999, UpdateBookingInput{Notes: &notes})
	s.ErrorIs(err, ErrBookingNotFound)
}

func (s *BookingServiceSuite) TestUpdateBookingDatesResetsWorkflow() {
	b := s.readyForArrival("2025-07-10", "2025-07-20")
	_, err := s.svc.UpdateBooking(s.ctx, b.ID, UpdateBookingInput{KurtaxeAmount: f64(20)})
	s.Require().NoError(err)
	_, err = s.svc.SaveMeterReadings(s.ctx, b.ID, MeterReadingInput{ElectricityStart: f64(100)})
	s.Require().NoError(err)
	_, err = s.svc.RegisterPayment(s.ctx, b.ID, PaymentInput{Amount: 100})
	s.Require().NoError(err)
	oldTok, _ := s.svc.Tokens.Active(s.ctx, b.ID)

	got, err := s.svc.UpdateBookingDates(s.ctx, b.ID, date("2025-08-01"), date("2025-08-10"))
	s.Require().NoError(err)

	s.False(got.Confirmed)
	s.Nil(got.ConfirmedAt)
	s.False(got.KurkartenEmailSent)
	s.False(got.PreArrivalEmailSent)
	s.Nil(got.KurtaxeAmount)
	s.Equal(models.StatusNew, got.Status)
	s.Equal(date("2025-08-01"), got.CheckIn)

	m, err := s.svc.GetMeterReading(s.ctx, b.ID)
	s.NoError(err)
	s.Nil(m)
	payments, err := s.svc.ListPayments(s.ctx, b.ID)
	s.NoError(err)
	s.Empty(payments)

	newTok, _ := s.svc.Tokens.Active(s.ctx, b.ID)
	s.Require().NotNil(newTok)
	s.NotEqual(oldTok.Token, newTok.Token)
	s.Equal(date("2025-11-08"), newTok.ExpiresAt)
}

func (s *BookingServiceSuite) TestUpdateBookingDatesRejectedLeavesBookingIntact() {
	b := s.create("2025-07-10", "2025-07-20")
	other := s.create("2025-08-01", "2025-08-10")
	_, err := s.svc.ConfirmBooking(s.ctx, b.ID)
	s.Require().NoError(err)
	_, err = s.svc.SaveMeterReadings(s.ctx, b.ID, MeterReadingInput{ElectricityStart: f64(100)})
	s.Require().NoError(err)

	_, err = s.svc.UpdateBookingDates(s.ctx, b.ID, date("2025-08-05"), date("2025-08-12"))
	var oe *OverlapError
	s.Require().ErrorAs(err, &oe)
	s.Equal(other.ID, oe.Conflicts[0].BookingID)

	got := s.reload(b.ID)
	s.True(got.Confirmed)
	m, _ := s.svc.GetMeterReading(s.ctx, b.ID)
	s.NotNil(m)

	// shrinking its own range never conflicts with itself
	_, err = s.svc.UpdateBookingDates(s.ctx, b.ID, date("2025-07-12"), date("2025-07-18"))
	s.NoError(err)
}

func (s *BookingServiceSuite) TestKurkartenEmail() {
	b := s.create("2025-06-20", "2025-06-27")

	_, err := s.svc.SendKurkartenEmail(s.ctx, b.ID)
	s.ErrorIs(err, ErrNotConfirmed)

	_, err = s.svc.ConfirmBooking(s.ctx, b.ID)
	s.Require().NoError(err)
	got, err := s.svc.SendKurkartenEmail(s.ctx, b.ID)
	s.Require().NoError(err)
	s.True(got.KurkartenEmailSent)
	s.NotNil(got.KurkartenEmailSentAt)
	s.Equal(models.StatusKurkartenRequested, got.Status)

	msgs := s.comms.byTemplate(TemplateKurkartenRequest)
	s.Require().Len(msgs, 1)
	s.Equal("https://kurkarten.example/register", msgs[0].Context["kurkarten_url"])
}

func (s *BookingServiceSuite) TestKurkartenFailuresLeaveFlagUnset() {
	b := s.create("2025-06-20", "2025-06-27")
	_, err := s.svc.ConfirmBooking(s.ctx, b.ID)
	s.Require().NoError(err)

	s.svc.Kurkarten = stubRegistration{err: fmt.Errorf("%w: timeout", ErrRegistrationURL)}
	_, err = s.svc.SendKurkartenEmail(s.ctx, b.ID)
	s.True(IsCollaborator(err))
	s.False(s.reload(b.ID).KurkartenEmailSent)

	s.svc.Kurkarten = stubRegistration{url: PlaceholderKurkartenURL}
	s.comms.fail[TemplateKurkartenRequest] = true
	_, err = s.svc.SendKurkartenEmail(s.ctx, b.ID)
	s.ErrorIs(err, ErrNotificationFailed)
	got := s.reload(b.ID)
	s.False(got.KurkartenEmailSent)
	s.Equal(models.StatusConfirmed, got.Status)
}

func (s *BookingServiceSuite) TestPreArrivalNeedsKurkarten() {
	b := s.create("2025-06-05", "2025-06-09")
	_, err := s.svc.ConfirmBooking(s.ctx, b.ID)
	s.Require().NoError(err)

	_, err = s.svc.SendPreArrivalEmail(s.ctx, b.ID)
	s.ErrorIs(err, ErrKurkartenPending)
	s.True(IsPrecondition(err))
	s.False(s.reload(b.ID).PreArrivalEmailSent)

	reminders := s.comms.byTemplate(TemplateAgentReminder)
	s.Require().Len(reminders, 1)
	s.Equal(DefaultPolicy().AgentEmail, reminders[0].Recipient)
	s.Equal([]string{"Kurkarten information not completed"}, reminders[0].Context["missing_items"])
}

func (s *BookingServiceSuite) TestReadyForArrivalThenStayStatuses() {
	b := s.readyForArrival("2025-07-10", "2025-07-20")
	s.Equal(models.StatusReadyForArrival, b.Status)

	s.clock.Set(date("2025-07-10").Add(8 * time.Hour))
	s.Equal(1, s.svc.RefreshAllStatuses(s.ctx))
	s.Equal(models.StatusArriving, s.reload(b.ID).Status)
	s.Equal(0, s.svc.RefreshAllStatuses(s.ctx))

	s.clock.Set(date("2025-07-14"))
	changed, err := s.svc.RefreshStatus(s.ctx, b.ID)
	s.NoError(err)
	s.True(changed)
	s.Equal(models.StatusOnSite, s.reload(b.ID).Status)

	s.clock.Set(date("2025-07-20"))
	s.svc.RefreshAllStatuses(s.ctx)
	s.Equal(models.StatusDeparting, s.reload(b.ID).Status)
}

func (s *BookingServiceSuite) TestInvoiceLifecycle() {
	seedPrice(s.store, models.PriceStayPerNight, 85, "2025-01-01")
	seedPrice(s.store, models.PriceElectricityPerKWh, 0.32, "2025-01-01")

	b := s.readyForArrival("2025-07-01", "2025-07-15")
	_, err := s.svc.UpdateBooking(s.ctx, b.ID, UpdateBookingInput{KurtaxeAmount: f64(20)})
	s.Require().NoError(err)

	s.clock.Set(date("2025-07-20").Add(9 * time.Hour))
	s.svc.RefreshAllStatuses(s.ctx)
	s.Equal(models.StatusDepartedReadingsDue, s.reload(b.ID).Status)

	_, err = s.svc.GenerateInvoice(s.ctx, b.ID)
	s.ErrorIs(err, ErrReadingsIncomplete)
	reminders := s.comms.byTemplate(TemplateAgentReminder)
	s.Require().Len(reminders, 1)
	s.Equal([]string{"All meter readings"}, reminders[0].Context["missing_items"])

	_, err = s.svc.SaveMeterReadings(s.ctx, b.ID, MeterReadingInput{ElectricityStart: f64(1000), ElectricityEnd: f64(1049.7)})
	s.Require().NoError(err)
	s.Equal(models.StatusDepartedInvoiceDue, s.reload(b.ID).Status)

	_, err = s.svc.GenerateInvoice(s.ctx, b.ID)
	s.ErrorIs(err, ErrReadingsIncomplete)
	reminders = s.comms.byTemplate(TemplateAgentReminder)
	s.Equal([]string{"Gas readings"}, reminders[len(reminders)-1].Context["missing_items"])

	_, err = s.svc.SaveMeterReadings(s.ctx, b.ID, MeterReadingInput{GasStart: f64(500), GasEnd: f64(500)})
	s.Require().NoError(err)

	res, err := s.svc.GenerateInvoice(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Regexp(`^INV-\d+-20250720-[0-9a-f]{8}$`, res.InvoiceID)
	s.InDelta(1225.90, res.Breakdown.TotalCost, 0.005)
	s.True(res.Booking.InvoiceCreated)
	s.InDelta(1225.90, *res.Booking.InvoiceAmount, 0.005)
	s.Equal(models.StatusDepartedInvoiceDue, res.Booking.Status)

	again, err := s.svc.GenerateInvoice(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Equal(res.InvoiceID, again.InvoiceID)

	sent, err := s.svc.SendInvoice(s.ctx, b.ID)
	s.Require().NoError(err)
	s.True(sent.InvoiceSent)
	s.Equal(models.StatusDepartedPaymentDue, sent.Status)
	s.Len(s.comms.byTemplate(TemplateInvoiceEmail), 1)
	s.Len(s.comms.byTemplate(TemplateInvoiceAgentCopy), 1)
	s.Equal("1225.90", s.comms.byTemplate(TemplateInvoiceEmail)[0].Context["total_cost"])

	_, err = s.svc.RegisterPayment(s.ctx, b.ID, PaymentInput{Amount: 1000, Date: date("2025-07-25")})
	s.Require().NoError(err)
	s.False(s.reload(b.ID).Paid)
	s.Equal(models.StatusDepartedPaymentDue, s.reload(b.ID).Status)

	_, err = s.svc.RegisterPayment(s.ctx, b.ID, PaymentInput{Amount: 225.90, Date: date("2025-07-28")})
	s.Require().NoError(err)
	got := s.reload(b.ID)
	s.True(got.Paid)
	s.NotNil(got.PaidAt)
	s.Equal(models.StatusDepartedDone, got.Status)

	total, err := s.svc.TotalPaid(s.ctx, b.ID)
	s.NoError(err)
	s.InDelta(1225.90, total, 0.001)
}

func (s *BookingServiceSuite) TestSendInvoiceFailures() {
	b := s.create("2025-01-01", "2025-01-05")
	_, err := s.svc.SendInvoice(s.ctx, b.ID)
	s.ErrorIs(err, ErrInvoiceNotCreated)

	_, err = s.svc.ConfirmBooking(s.ctx, b.ID)
	s.Require().NoError(err)
	_, err = s.svc.SaveMeterReadings(s.ctx, b.ID, MeterReadingInput{
		ElectricityStart: f64(1), ElectricityEnd: f64(2), GasStart: f64(3), GasEnd: f64(4),
	})
	s.Require().NoError(err)
	_, err = s.svc.GenerateInvoice(s.ctx, b.ID)
	s.Require().NoError(err)

	s.comms.fail[TemplateInvoiceEmail] = true
	_, err = s.svc.SendInvoice(s.ctx, b.ID)
	s.ErrorIs(err, ErrNotificationFailed)
	s.False(s.reload(b.ID).InvoiceSent)

	// agent copy failure does not block the guest invoice
	s.comms.fail = map[string]bool{TemplateInvoiceAgentCopy: true}
	got, err := s.svc.SendInvoice(s.ctx, b.ID)
	s.Require().NoError(err)
	s.True(got.InvoiceSent)
}

func (s *BookingServiceSuite) TestEmailBatches() {
	soon := s.create("2025-06-20", "2025-06-25")
	later := s.create("2025-08-01", "2025-08-05")
	unconfirmed := s.create("2025-06-10", "2025-06-12")
	for _, id := range []uint{soon.ID, later.ID} {
		_, err := s.svc.ConfirmBooking(s.ctx, id)
		s.Require().NoError(err)
	}

	s.Equal(1, s.svc.CheckAndSendKurkartenEmails(s.ctx))
	s.True(s.reload(soon.ID).KurkartenEmailSent)
	s.False(s.reload(later.ID).KurkartenEmailSent)
	s.False(s.reload(unconfirmed.ID).KurkartenEmailSent)
	s.Equal(0, s.svc.CheckAndSendKurkartenEmails(s.ctx))

	pending := s.create("2025-06-03", "2025-06-05")
	_, err := s.svc.ConfirmBooking(s.ctx, pending.ID)
	s.Require().NoError(err)

	s.clock.Set(date("2025-06-16"))
	s.Equal(1, s.svc.CheckAndSendPreArrivalEmails(s.ctx))
	s.True(s.reload(soon.ID).PreArrivalEmailSent)
	s.Equal(models.StatusReadyForArrival, s.reload(soon.ID).Status)
}

func (s *BookingServiceSuite) TestPreArrivalBatchRemindsStaffPerBooking() {
	b := s.create("2025-06-04", "2025-06-06")
	_, err := s.svc.ConfirmBooking(s.ctx, b.ID)
	s.Require().NoError(err)

	s.Equal(0, s.svc.CheckAndSendPreArrivalEmails(s.ctx))
	s.Len(s.comms.byTemplate(TemplateAgentReminder), 1)
}

func (s *BookingServiceSuite) TestInvoiceBatches() {
	seedPrice(s.store, models.PriceStayPerNight, 85, "2024-01-01")
	ready := s.create("2025-05-01", "2025-05-05")
	missing := s.create("2025-05-10", "2025-05-12")
	recent := s.create("2025-05-29", "2025-05-31")
	for _, id := range []uint{ready.ID, missing.ID, recent.ID} {
		_, err := s.svc.ConfirmBooking(s.ctx, id)
		s.Require().NoError(err)
	}
	for _, id := range []uint{ready.ID, recent.ID} {
		_, err := s.svc.SaveMeterReadings(s.ctx, id, MeterReadingInput{
			ElectricityStart: f64(1), ElectricityEnd: f64(2), GasStart: f64(3), GasEnd: f64(4),
		})
		s.Require().NoError(err)
	}

	s.Equal(1, s.svc.CheckAndGenerateInvoices(s.ctx))
	s.True(s.reload(ready.ID).InvoiceCreated)
	s.False(s.reload(missing.ID).InvoiceCreated)
	s.False(s.reload(recent.ID).InvoiceCreated)
	s.Len(s.comms.byTemplate(TemplateAgentReminder), 1)
	s.InDelta(340.0, *s.reload(ready.ID).InvoiceAmount, 0.001)

	s.Equal(1, s.svc.CheckAndSendInvoices(s.ctx))
	s.True(s.reload(ready.ID).InvoiceSent)
	s.Equal(0, s.svc.CheckAndSendInvoices(s.ctx))
}

func (s *BookingServiceSuite) TestRegisterPaymentValidation() {
	b := s.create("2025-07-10", "2025-07-20")
	_, err := s.svc.RegisterPayment(s.ctx, b.ID, PaymentInput{Amount: 0})
	s.ErrorIs(err, ErrInvalidAmount)
	_, err = s.svc.RegisterPayment(s.ctx, 999, PaymentInput{Amount: 10})
	s.ErrorIs(err, ErrBookingNotFound)

	p, err := s.svc.RegisterPayment(s.ctx, b.ID, PaymentInput{Amount: 10.456})
	s.Require().NoError(err)
	s.Equal(10.46, p.Amount)
	s.Equal(date("2025-06-01"), p.Date())
}

func (s *BookingServiceSuite) TestMeterReadingValidation() {
	b := s.create("2025-07-10", "2025-07-20")
	_, err := s.svc.SaveMeterReadings(s.ctx, b.ID, MeterReadingInput{})
	s.ErrorIs(err, ErrNoFieldsToUpdate)

	_, err = s.svc.SaveMeterReadings(s.ctx, b.ID, MeterReadingInput{ElectricityStart: f64(100)})
	s.Require().NoError(err)
	_, err = s.svc.SaveMeterReadings(s.ctx, b.ID, MeterReadingInput{ElectricityEnd: f64(50)})
	s.ErrorIs(err, ErrInvalidReading)

	m, err := s.svc.GetMeterReading(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Nil(m.ElectricityEnd)
}

func (s *BookingServiceSuite) TestGuestAccess() {
	b := s.create("2025-07-10", "2025-07-20")
	tok, link, err := s.svc.IssueAccessToken(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Contains(link, tok.Token)

	_, err = s.svc.GuestSubmitReadings(s.ctx, tok.Token, MeterReadingInput{ElectricityStart: f64(10), ElectricityEnd: f64(22.5)})
	s.Require().NoError(err)

	view, err := s.svc.GuestView(s.ctx, tok.Token)
	s.Require().NoError(err)
	s.Equal(b.ID, view.Booking.ID)
	s.Equal("Ole Hansen", view.GuestName)
	s.Equal(12.5, *view.Consumption.ElectricityKWh)
	s.Nil(view.Invoice)
	s.Empty(view.Payments)

	_, err = s.svc.GuestView(s.ctx, "nope")
	s.ErrorIs(err, ErrTokenInvalid)

	s.Require().NoError(s.svc.RevokeAccessTokens(s.ctx, b.ID))
	_, err = s.svc.GuestView(s.ctx, tok.Token)
	s.ErrorIs(err, ErrTokenInvalid)
}

func (s *BookingServiceSuite) TestExpiredTokenIsRejected() {
	b := s.create("2025-07-10", "2025-07-20")
	tok, _, err := s.svc.IssueAccessToken(s.ctx, b.ID)
	s.Require().NoError(err)

	s.clock.Set(date("2025-10-19"))
	_, err = s.svc.GuestView(s.ctx, tok.Token)
	s.ErrorIs(err, ErrTokenInvalid)
}

func (s *BookingServiceSuite) TestDeleteBooking() {
	b := s.create("2025-07-10", "2025-07-20")
	_, err := s.svc.RegisterPayment(s.ctx, b.ID, PaymentInput{Amount: 50})
	s.Require().NoError(err)

	s.Require().NoError(s.svc.DeleteBooking(s.ctx, b.ID))
	_, err = s.svc.Get(s.ctx, b.ID)
	s.ErrorIs(err, ErrBookingNotFound)
	s.ErrorIs(s.svc.DeleteBooking(s.ctx, b.ID), ErrBookingNotFound)

	payments, _ := s.store.ListPayments(s.ctx, b.ID)
	s.Empty(payments)
}

func (s *BookingServiceSuite) TestListByGuest() {
	s.create("2025-07-10", "2025-07-20")
	s.create("2025-06-10", "2025-06-20")

	list, err := s.svc.ListByGuest(s.ctx, s.guest.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(date("2025-06-10"), list[0].CheckIn)

	_, err = s.svc.ListByGuest(s.ctx, 999)
	s.ErrorIs(err, ErrGuestNotFound)
}

// departedWithReadings moves the clock past check-out of a 14 night stay and
// records 49.7 kWh of electricity and gasM3 of gas.
func (s *BookingServiceSuite) departedWithReadings(id uint, gasM3 float64) {
	s.clock.Set(date("2025-07-20").Add(9 * time.Hour))
	s.svc.RefreshAllStatuses(s.ctx)
	_, err := s.svc.SaveMeterReadings(s.ctx, id, MeterReadingInput{
		ElectricityStart: f64(1000), ElectricityEnd: f64(1049.7),
		GasStart: f64(500), GasEnd: f64(500 + gasM3),
	})
	s.Require().NoError(err)
}

func (s *BookingServiceSuite) TestPrepaymentIsSettledAgainstInvoice() {
	seedPrice(s.store, models.PriceStayPerNight, 85, "2025-01-01")
	seedPrice(s.store, models.PriceElectricityPerKWh, 0.32, "2025-01-01")
	seedPrice(s.store, models.PriceGasPerCubicMeter, 1.05, "2025-01-01")

	b := s.readyForArrival("2025-07-01", "2025-07-15")
	_, err := s.svc.RegisterPayment(s.ctx, b.ID, PaymentInput{Amount: 1190})
	s.Require().NoError(err)
	s.False(s.reload(b.ID).Paid)

	s.clock.Set(date("2025-07-20").Add(9 * time.Hour))
	s.svc.RefreshAllStatuses(s.ctx)
	s.Equal(models.StatusDepartedReadingsDue, s.reload(b.ID).Status)

	s.departedWithReadings(b.ID, 10)
	res, err := s.svc.GenerateInvoice(s.ctx, b.ID)
	s.Require().NoError(err)
	s.InDelta(1216.40, res.Breakdown.TotalCost, 0.005)
	s.False(res.Booking.Paid)
	s.Nil(res.Booking.PaidAt)
	s.Equal(models.StatusDepartedInvoiceDue, res.Booking.Status)

	sent, err := s.svc.SendInvoice(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusDepartedPaymentDue, sent.Status)

	_, err = s.svc.RegisterPayment(s.ctx, b.ID, PaymentInput{Amount: 26.40})
	s.Require().NoError(err)
	got := s.reload(b.ID)
	s.True(got.Paid)
	s.Equal(models.StatusDepartedDone, got.Status)
}

func (s *BookingServiceSuite) TestFullPrepaymentIsPaidOnInvoicing() {
	seedPrice(s.store, models.PriceStayPerNight, 85, "2025-01-01")
	seedPrice(s.store, models.PriceElectricityPerKWh, 0.32, "2025-01-01")

	b := s.readyForArrival("2025-07-01", "2025-07-15")
	_, err := s.svc.RegisterPayment(s.ctx, b.ID, PaymentInput{Amount: 1300})
	s.Require().NoError(err)
	s.False(s.reload(b.ID).Paid)

	s.departedWithReadings(b.ID, 0)
	res, err := s.svc.GenerateInvoice(s.ctx, b.ID)
	s.Require().NoError(err)
	s.True(res.Booking.Paid)
	s.Require().NotNil(res.Booking.PaidAt)
	s.Equal(s.clock.Now(), *res.Booking.PaidAt)
	s.Equal(models.StatusDepartedDone, res.Booking.Status)
}

func (s *BookingServiceSuite) TestInvoiceIsFrozenAtGeneration() {
	seedPrice(s.store, models.PriceStayPerNight, 85, "2025-01-01")
	seedPrice(s.store, models.PriceElectricityPerKWh, 0.32, "2025-01-01")

	b := s.readyForArrival("2025-07-01", "2025-07-15")
	_, err := s.svc.UpdateBooking(s.ctx, b.ID, UpdateBookingInput{KurtaxeAmount: f64(20)})
	s.Require().NoError(err)
	s.departedWithReadings(b.ID, 0)
	res, err := s.svc.GenerateInvoice(s.ctx, b.ID)
	s.Require().NoError(err)
	s.InDelta(1225.90, res.Breakdown.TotalCost, 0.005)

	_, err = s.svc.UpdateBooking(s.ctx, b.ID, UpdateBookingInput{KurtaxeAmount: f64(50)})
	s.ErrorIs(err, ErrInvoiceAlreadyCreated)
	notes := "paid by transfer"
	got, err := s.svc.UpdateBooking(s.ctx, b.ID, UpdateBookingInput{Notes: &notes})
	s.Require().NoError(err)
	s.Equal(20.0, *got.KurtaxeAmount)

	seedPrice(s.store, models.PriceStayPerNight, 100, "2025-07-21")
	s.clock.Set(date("2025-07-22").Add(9 * time.Hour))

	preview, err := s.svc.PreviewInvoice(s.ctx, b.ID)
	s.Require().NoError(err)
	s.InDelta(1225.90, preview.TotalCost, 0.005)
	s.Equal(85.0, preview.StayRate)

	_, err = s.svc.SendInvoice(s.ctx, b.ID)
	s.Require().NoError(err)
	mails := s.comms.byTemplate(TemplateInvoiceEmail)
	s.Require().Len(mails, 1)
	s.Equal("1225.90", mails[0].Context["total_cost"])
	s.Equal([]map[string]string{
		{"label": "Accommodation", "amount": "1190.00"},
		{"label": "Electricity", "amount": "15.90"},
		{"label": "Gas", "amount": "0.00"},
		{"label": "Tourist tax", "amount": "20.00"},
	}, mails[0].Context["line_items"])

	tok, _, err := s.svc.IssueAccessToken(s.ctx, b.ID)
	s.Require().NoError(err)
	view, err := s.svc.GuestView(s.ctx, tok.Token)
	s.Require().NoError(err)
	s.Require().NotNil(view.Invoice)
	s.InDelta(1225.90, view.Invoice.TotalCost, 0.005)
}

func TestBookingServiceSuite(t *testing.T) {
	suite.Run(t, new(BookingServiceSuite))
}
