package middleware

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/nilsrambow/amrum-be/utils"
)

// AdminClaims is the payload of an admin session token.
type AdminClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// IssueAdminToken signs an HS256 token for the admin with the given id.
func IssueAdminToken(secret string, adminID uint, email string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, errors.New("jwt secret not configured")
	}
	expires := now.Add(ttl)
	claims := AdminClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(adminID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// ParseAdminToken verifies signature, algorithm and expiry.
func ParseAdminToken(secret, raw string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	tkn, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	return claims, nil
}

// AdminAuth rejects requests without a valid admin bearer token.
func AdminAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := utils.BearerToken(c.GetHeader("Authorization"))
		if raw == "" || secret == "" {
			utils.JSONError(c, http.StatusUnauthorized, "error.unauthorized", "Authentication required")
			c.Abort()
			return
		}
		claims, err := ParseAdminToken(secret, raw)
		if err != nil {
			log.Printf("⚠️ admin token rejected: %v", err)
			utils.JSONError(c, http.StatusUnauthorized, "error.unauthorized", "Invalid or expired token")
			c.Abort()
			return
		}
		id, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil || id == 0 {
			utils.JSONError(c, http.StatusUnauthorized, "error.unauthorized", "Invalid or expired token")
			c.Abort()
			return
		}
		c.Set("admin_id", uint(id))
		c.Set("admin_email", claims.Email)
		c.Next()
	}
}
