package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nilsrambow/amrum-be/services"
	"github.com/nilsrambow/amrum-be/utils"
)

// AdminController serves staff dashboards and maintenance endpoints.
type AdminController struct {
	Alerts     *services.AlertService
	Dashboard  *services.DashboardService
	BookingSvc *services.BookingService
}

func NewAdminController(alerts *services.AlertService, dashboard *services.DashboardService, bookings *services.BookingService) *AdminController {
	return &AdminController{Alerts: alerts, Dashboard: dashboard, BookingSvc: bookings}
}

func (ac *AdminController) PendingEmails(c *gin.Context) {
	list, err := ac.Alerts.PendingEmails(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, list)
}

func (ac *AdminController) OutstandingActions(c *gin.Context) {
	list, err := ac.Alerts.OutstandingGuestActions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, list)
}

func queryYear(c *gin.Context) (int, bool) {
	raw := c.Query("year")
	if raw == "" {
		return 0, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1900 || year > 9999 {
		utils.JSONError(c, http.StatusBadRequest, "error.invalidYear", "Invalid year", raw)
		return 0, false
	}
	return year, true
}

func (ac *AdminController) Stats(c *gin.Context) {
	year, ok := queryYear(c)
	if !ok {
		return
	}
	stats, err := ac.Dashboard.Stats(c.Request.Context(), year)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, stats)
}

func (ac *AdminController) Comparison(c *gin.Context) {
	year, ok := queryYear(c)
	if !ok {
		return
	}
	cmp, err := ac.Dashboard.YearlyComparison(c.Request.Context(), year)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, cmp)
}

func (ac *AdminController) RefreshStatuses(c *gin.Context) {
	n := ac.BookingSvc.RefreshAllStatuses(c.Request.Context())
	utils.JSONSuccess(c, http.StatusOK, gin.H{"updated": n})
}
