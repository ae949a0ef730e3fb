package controllers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nilsrambow/amrum-be/middleware"
	"github.com/nilsrambow/amrum-be/services"
	"github.com/nilsrambow/amrum-be/utils"
)

type loginPayload struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthController struct {
	GuestSvc  *services.GuestService
	JWTSecret string
	TTL       time.Duration
	Now       func() time.Time
}

func NewAuthController(guests *services.GuestService, secret string, ttl time.Duration) *AuthController {
	return &AuthController{GuestSvc: guests, JWTSecret: secret, TTL: ttl, Now: time.Now}
}

func (ac *AuthController) Login(c *gin.Context) {
	var payload loginPayload
	if !bindJSON(c, &payload) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))
	admin, err := ac.GuestSvc.Authenticate(c.Request.Context(), email, payload.Password)
	if err != nil {
		log.Printf("⚠️ login failed for %s", utils.MaskEmail(email))
		respondError(c, err)
		return
	}

	token, expires, err := middleware.IssueAdminToken(ac.JWTSecret, admin.ID, admin.Email, ac.TTL, ac.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	log.Printf("✅ admin %s logged in", utils.MaskEmail(admin.Email))
	utils.JSONSuccess(c, http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"expires_at":   expires,
	})
}
