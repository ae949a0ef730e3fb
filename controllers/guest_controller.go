package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nilsrambow/amrum-be/services"
	"github.com/nilsrambow/amrum-be/utils"
)

type CreateGuestRequest struct {
	FirstName   string `json:"first_name" binding:"required,max=100"`
	LastName    string `json:"last_name" binding:"required,max=100"`
	Email       string `json:"email" binding:"required,email,max=150"`
	PaysDayrate *bool  `json:"pays_dayrate"`
}

type UpdateGuestRequest struct {
	FirstName   *string `json:"first_name" binding:"omitempty,min=1,max=100"`
	LastName    *string `json:"last_name" binding:"omitempty,min=1,max=100"`
	PaysDayrate *bool   `json:"pays_dayrate"`
}

type GuestController struct {
	GuestSvc   *services.GuestService
	BookingSvc *services.BookingService
}

func NewGuestController(guests *services.GuestService, bookings *services.BookingService) *GuestController {
	return &GuestController{GuestSvc: guests, BookingSvc: bookings}
}

func (gc *GuestController) CreateGuest(c *gin.Context) {
	var req CreateGuestRequest
	if !bindJSON(c, &req) {
		return
	}
	g, err := gc.GuestSvc.Create(c.Request.Context(), services.CreateGuestInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PaysDayrate: req.PaysDayrate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, g)
}

func (gc *GuestController) GetGuests(c *gin.Context) {
	list, err := gc.GuestSvc.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, list)
}

func (gc *GuestController) GetGuestByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	g, err := gc.GuestSvc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, g)
}

func (gc *GuestController) UpdateGuest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateGuestRequest
	if !bindJSON(c, &req) {
		return
	}
	g, err := gc.GuestSvc.Update(c.Request.Context(), id, services.UpdateGuestInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PaysDayrate: req.PaysDayrate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, g)
}

func (gc *GuestController) GetGuestBookings(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	list, err := gc.BookingSvc.ListByGuest(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, list)
}
