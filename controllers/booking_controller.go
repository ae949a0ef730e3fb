// controllers/booking_controller.go
package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nilsrambow/amrum-be/models"
	"github.com/nilsrambow/amrum-be/services"
	"github.com/nilsrambow/amrum-be/utils"
)

// ---------------------------
// Payload / DTOs
// ---------------------------

type CreateBookingRequest struct {
	GuestID       uint     `json:"guest_id" binding:"required"`
	CheckIn       string   `json:"check_in" binding:"required,isodate"`
	CheckOut      string   `json:"check_out" binding:"required,isodate"`
	KurtaxeAmount *float64 `json:"kurtaxe_amount" binding:"omitempty,gte=0"`
	Notes         *string  `json:"notes" binding:"omitempty,max=2000"`
}

type UpdateBookingRequest struct {
	KurtaxeAmount *float64 `json:"kurtaxe_amount" binding:"omitempty,gte=0"`
	Notes         *string  `json:"notes" binding:"omitempty,max=2000"`
}

type UpdateDatesRequest struct {
	CheckIn  string `json:"check_in" binding:"required,isodate"`
	CheckOut string `json:"check_out" binding:"required,isodate"`
}

type MeterReadingRequest struct {
	ElectricityStart *float64 `json:"electricity_start" binding:"omitempty,gte=0"`
	ElectricityEnd   *float64 `json:"electricity_end" binding:"omitempty,gte=0"`
	GasStart         *float64 `json:"gas_start" binding:"omitempty,gte=0"`
	GasEnd           *float64 `json:"gas_end" binding:"omitempty,gte=0"`
	FirewoodBoxes    *int     `json:"firewood_boxes" binding:"omitempty,gte=0"`
}

func (r MeterReadingRequest) input() services.MeterReadingInput {
	return services.MeterReadingInput{
		ElectricityStart: r.ElectricityStart,
		ElectricityEnd:   r.ElectricityEnd,
		GasStart:         r.GasStart,
		GasEnd:           r.GasEnd,
		FirewoodBoxes:    r.FirewoodBoxes,
	}
}

type PaymentRequest struct {
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	PaymentDate *string `json:"payment_date" binding:"omitempty,isodate"`
	Method      *string `json:"method" binding:"omitempty,max=64"`
	Reference   *string `json:"reference" binding:"omitempty,max=128"`
	Notes       *string `json:"notes"`
}

// CommunicationHistory lists the messages recorded for a booking.
type CommunicationHistory interface {
	History(ctx context.Context, bookingID uint) ([]models.CommunicationLog, error)
}

// ---------------------------
// Controller
// ---------------------------

type BookingController struct {
	BookingSvc *services.BookingService
	History    CommunicationHistory
}

func NewBookingController(svc *services.BookingService, history CommunicationHistory) *BookingController {
	return &BookingController{BookingSvc: svc, History: history}
}

func (ctrl *BookingController) GetBookings(c *gin.Context) {
	list, err := ctrl.BookingSvc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, err := models.ParseBookingStatus(strings.ToUpper(raw))
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "error.invalidStatus", err.Error())
			return
		}
		filtered := list[:0]
		for _, b := range list {
			if b.Status == status {
				filtered = append(filtered, b)
			}
		}
		list = filtered
	}
	utils.JSONSuccess(c, http.StatusOK, list)
}

func (ctrl *BookingController) GetBooking(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	b, err := ctrl.BookingSvc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, b)
}

func (ctrl *BookingController) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := ctrl.BookingSvc.CreateBooking(c.Request.Context(), services.CreateBookingInput{
		GuestID:       req.GuestID,
		CheckIn:       day(req.CheckIn),
		CheckOut:      day(req.CheckOut),
		KurtaxeAmount: req.KurtaxeAmount,
		Notes:         req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, b)
}

func (ctrl *BookingController) UpdateBooking(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateBookingRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := ctrl.BookingSvc.UpdateBooking(c.Request.Context(), id, services.UpdateBookingInput{
		KurtaxeAmount: req.KurtaxeAmount,
		Notes:         req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, b)
}

func (ctrl *BookingController) UpdateDates(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateDatesRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := ctrl.BookingSvc.UpdateBookingDates(c.Request.Context(), id, day(req.CheckIn), day(req.CheckOut))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, b)
}

func (ctrl *BookingController) ConfirmBooking(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	res, err := ctrl.BookingSvc.ConfirmBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, res)
}

func (ctrl *BookingController) DeleteBooking(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := ctrl.BookingSvc.DeleteBooking(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ---------------------------
// Meter readings / payments
// ---------------------------

func (ctrl *BookingController) SaveMeterReadings(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req MeterReadingRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := ctrl.BookingSvc.SaveMeterReadings(c.Request.Context(), id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{
		"meter_reading": m,
		"consumption":   services.Summarize(m),
		"complete":      services.AreReadingsComplete(m),
	})
}

func (ctrl *BookingController) GetMeterReadings(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	m, err := ctrl.BookingSvc.GetMeterReading(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{
		"meter_reading": m,
		"consumption":   services.Summarize(m),
		"complete":      services.AreReadingsComplete(m),
	})
}

func (ctrl *BookingController) RegisterPayment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req PaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	in := services.PaymentInput{
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
		Notes:     req.Notes,
	}
	paidOn, err := optionalDay(req.PaymentDate)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "error.invalidPayload", "Invalid payment_date", err.Error())
		return
	}
	if paidOn != nil {
		in.Date = *paidOn
	}
	p, err := ctrl.BookingSvc.RegisterPayment(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, p)
}

func (ctrl *BookingController) ListPayments(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	list, err := ctrl.BookingSvc.ListPayments(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	total, err := ctrl.BookingSvc.TotalPaid(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"payments": list, "total_paid": total})
}

// ---------------------------
// Workflow steps
// ---------------------------

func (ctrl *BookingController) SendKurkartenEmail(c *gin.Context) {
	ctrl.step(c, ctrl.BookingSvc.SendKurkartenEmail)
}

func (ctrl *BookingController) SendPreArrivalEmail(c *gin.Context) {
	ctrl.step(c, ctrl.BookingSvc.SendPreArrivalEmail)
}

func (ctrl *BookingController) SendInvoice(c *gin.Context) {
	ctrl.step(c, ctrl.BookingSvc.SendInvoice)
}

func (ctrl *BookingController) step(c *gin.Context, run func(context.Context, uint) (*models.Booking, error)) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	b, err := run(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, b)
}

func (ctrl *BookingController) GenerateInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	res, err := ctrl.BookingSvc.GenerateInvoice(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, res)
}

func (ctrl *BookingController) PreviewInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	br, err := ctrl.BookingSvc.PreviewInvoice(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, br)
}

func (ctrl *BookingController) RefreshStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	changed, err := ctrl.BookingSvc.RefreshStatus(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	b, err := ctrl.BookingSvc.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"changed": changed, "status": b.Status})
}

// ---------------------------
// Guest access tokens
// ---------------------------

func (ctrl *BookingController) IssueToken(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	tok, link, err := ctrl.BookingSvc.IssueAccessToken(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{
		"token":      tok.Token,
		"expires_at": tok.ExpiresAt,
		"magic_link": link,
	})
}

func (ctrl *BookingController) RevokeTokens(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := ctrl.BookingSvc.RevokeAccessTokens(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (ctrl *BookingController) Communications(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := ctrl.BookingSvc.Get(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	logs, err := ctrl.History.History(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, logs)
}
