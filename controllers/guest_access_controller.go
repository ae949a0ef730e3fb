package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nilsrambow/amrum-be/services"
	"github.com/nilsrambow/amrum-be/utils"
)

// GuestAccessController serves the magic-link pages. The token comes from
// ?token= or an Authorization bearer header.
type GuestAccessController struct {
	BookingSvc *services.BookingService
}

func NewGuestAccessController(svc *services.BookingService) *GuestAccessController {
	return &GuestAccessController{BookingSvc: svc}
}

func accessToken(c *gin.Context) (string, bool) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		token = utils.BearerToken(c.GetHeader("Authorization"))
	}
	if token == "" {
		utils.JSONError(c, http.StatusBadRequest, "error.missingToken", "Missing access token")
		return "", false
	}
	return token, true
}

func (gac *GuestAccessController) GetBooking(c *gin.Context) {
	token, ok := accessToken(c)
	if !ok {
		return
	}
	view, err := gac.BookingSvc.GuestView(c.Request.Context(), token)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, view)
}

func (gac *GuestAccessController) SubmitMeterReadings(c *gin.Context) {
	token, ok := accessToken(c)
	if !ok {
		return
	}
	var req MeterReadingRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := gac.BookingSvc.GuestSubmitReadings(c.Request.Context(), token, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{
		"meter_reading": m,
		"consumption":   services.Summarize(m),
	})
}
