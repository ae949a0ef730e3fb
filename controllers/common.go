package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/nilsrambow/amrum-be/services"
	"github.com/nilsrambow/amrum-be/utils"
)

var registerOnce sync.Once

// RegisterValidators adds the custom binding tags used by the request DTOs.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			log.Println("⚠️ gin validator engine is not go-playground/validator")
			return
		}
		if err := v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			_, err := utils.ParseDate(fl.Field().String())
			return err == nil
		}); err != nil {
			log.Printf("❌ register isodate validator: %v", err)
		}
	})
}

// day parses a value already checked by the isodate tag.
func day(raw string) time.Time {
	d, _ := utils.ParseDate(raw)
	return d
}

// optionalDay returns nil for an absent or empty value.
func optionalDay(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	d, err := utils.ParseDate(*raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ---------------------------
// Helper: :id path parameter
// ---------------------------
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		utils.JSONError(c, http.StatusBadRequest, "error.invalidId", "Invalid id", c.Param("id"))
		return 0, false
	}
	return uint(id), true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "error.invalidPayload", "Invalid payload", err.Error())
		return false
	}
	return true
}

var errorCodes = []struct {
	err  error
	code string
}{
	{services.ErrInvalidDates, "error.invalidDates"},
	{services.ErrPastCheckIn, "error.pastCheckIn"},
	{services.ErrAlreadyConfirmed, "error.alreadyConfirmed"},
	{services.ErrNotConfirmed, "error.notConfirmed"},
	{services.ErrInvoiceNotCreated, "error.invoiceNotCreated"},
	{services.ErrInvoiceAlreadyCreated, "error.invoiceAlreadyCreated"},
	{services.ErrNoFieldsToUpdate, "error.noFieldsToUpdate"},
	{services.ErrInvalidAmount, "error.invalidAmount"},
	{services.ErrInvalidReading, "error.invalidReading"},
	{services.ErrDuplicateEmail, "error.duplicateEmail"},
	{services.ErrInvalidEmail, "error.invalidEmail"},
	{services.ErrInvalidPrice, "error.invalidPrice"},
	{services.ErrBookingNotFound, "error.bookingNotFound"},
	{services.ErrGuestNotFound, "error.guestNotFound"},
	{services.ErrTokenInvalid, "error.invalidOrExpiredToken"},
	{services.ErrReadingsIncomplete, "error.readingsIncomplete"},
	{services.ErrKurkartenPending, "error.kurkartenPending"},
	{services.ErrNotificationFailed, "error.notificationFailed"},
	{services.ErrRegistrationURL, "error.kurkartenUnavailable"},
	{services.ErrInvalidCredentials, "error.invalidCredentials"},
}

func codeFor(err error) string {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return "error.internal"
}

// respondError maps a service error onto the HTTP status of its class.
func respondError(c *gin.Context, err error) {
	var oe *services.OverlapError
	switch {
	case errors.As(err, &oe):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":      "error.bookingOverlap",
				"message":   err.Error(),
				"conflicts": oe.Conflicts,
			},
		})
	case errors.Is(err, services.ErrDuplicateEmail):
		utils.JSONError(c, http.StatusConflict, codeFor(err), err.Error())
	case errors.Is(err, services.ErrTokenInvalid), errors.Is(err, services.ErrInvalidCredentials):
		utils.JSONError(c, http.StatusUnauthorized, codeFor(err), err.Error())
	case services.IsValidation(err):
		utils.JSONError(c, http.StatusBadRequest, codeFor(err), err.Error())
	case services.IsNotFound(err):
		utils.JSONError(c, http.StatusNotFound, codeFor(err), err.Error())
	case services.IsPrecondition(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success":      false,
			"reminderSent": true,
			"error": gin.H{
				"code":    codeFor(err),
				"message": err.Error(),
			},
		})
	case services.IsCollaborator(err):
		utils.JSONError(c, http.StatusBadGateway, codeFor(err), err.Error())
	default:
		log.Printf("❌ %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		utils.JSONError(c, http.StatusInternalServerError, "error.internal", "Internal server error")
	}
}
