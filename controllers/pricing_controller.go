package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nilsrambow/amrum-be/models"
	"github.com/nilsrambow/amrum-be/services"
	"github.com/nilsrambow/amrum-be/utils"
)

type CreatePriceRequest struct {
	PricePerUnit  *float64 `json:"price_per_unit" binding:"required,gte=0"`
	Currency      string   `json:"currency" binding:"omitempty,len=3"`
	EffectiveFrom string   `json:"effective_from" binding:"required,isodate"`
	EffectiveTo   *string  `json:"effective_to" binding:"omitempty,isodate"`
}

type PricingController struct {
	PricingSvc *services.PricingService
}

func NewPricingController(svc *services.PricingService) *PricingController {
	return &PricingController{PricingSvc: svc}
}

func priceType(c *gin.Context) (models.PriceType, bool) {
	slug := strings.ToLower(c.Param("category"))
	pt, ok := models.PriceTypeFromSlug[slug]
	if !ok {
		utils.JSONError(c, http.StatusNotFound, "error.unknownPriceCategory", "Unknown price category", slug)
	}
	return pt, ok
}

func (pc *PricingController) CreatePrice(c *gin.Context) {
	pt, ok := priceType(c)
	if !ok {
		return
	}
	var req CreatePriceRequest
	if !bindJSON(c, &req) {
		return
	}
	to, err := optionalDay(req.EffectiveTo)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "error.invalidPayload", "Invalid effective_to", err.Error())
		return
	}
	p, err := pc.PricingSvc.Create(c.Request.Context(), pt, services.CreatePriceInput{
		PricePerUnit:  *req.PricePerUnit,
		Currency:      strings.ToUpper(req.Currency),
		EffectiveFrom: day(req.EffectiveFrom),
		EffectiveTo:   to,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, p)
}

// ListPrices returns the history of a category; ?date= returns only the row
// in effect on that day.
func (pc *PricingController) ListPrices(c *gin.Context) {
	pt, ok := priceType(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if raw := c.Query("date"); raw != "" {
		d, err := utils.ParseDate(raw)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "error.invalidDate", err.Error())
			return
		}
		p, err := pc.PricingSvc.GetUnitPrice(ctx, pt, d)
		if err != nil {
			respondError(c, err)
			return
		}
		if p == nil {
			utils.JSONError(c, http.StatusNotFound, "error.priceNotFound", "No price in effect on "+d.Format(utils.DateLayout))
			return
		}
		utils.JSONSuccess(c, http.StatusOK, p)
		return
	}
	list, err := pc.PricingSvc.List(ctx, pt)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, list)
}
