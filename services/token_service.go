package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nilsrambow/amrum-be/models"
	"github.com/nilsrambow/amrum-be/repository"
	"github.com/nilsrambow/amrum-be/utils"
)

const tokenBytes = 32

// TokenService issues opaque bearer tokens that grant a guest access to one booking.
type TokenService struct {
	Store       repository.Store
	FrontendURL string
	Now         func() time.Time
}

func NewTokenService(store repository.Store, frontendURL string, now func() time.Time) *TokenService {
	if now == nil {
		now = time.Now
	}
	return &TokenService{Store: store, FrontendURL: frontendURL, Now: now}
}

// Generate stores a new token for the booking valid until expiresAt.
func (s *TokenService) Generate(ctx context.Context, bookingID uint, expiresAt time.Time) (*models.BookingToken, error) {
	const maxRetries = 5
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		raw, err := utils.GenerateSecureToken(tokenBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to generate token: %w", err)
		}
		tok := &models.BookingToken{
			BookingID: bookingID,
			Token:     raw,
			ExpiresAt: expiresAt,
			CreatedAt: s.Now(),
		}
		lastErr = s.Store.CreateToken(ctx, tok)
		if lastErr == nil {
			log.Printf("✅ access token issued booking=%d expires=%s", bookingID, expiresAt.Format(utils.DateLayout))
			return tok, nil
		}
		if !errors.Is(lastErr, repository.ErrDuplicate) {
			return nil, lastErr
		}
		log.Printf("⚠️ token collision (attempt %d), retrying", attempt+1)
	}
	return nil, fmt.Errorf("failed to create token after %d attempts: %w", maxRetries, lastErr)
}

// Validate returns the booking behind an unexpired token and records the use.
func (s *TokenService) Validate(ctx context.Context, token string) (*models.Booking, error) {
	if token == "" {
		return nil, ErrTokenInvalid
	}
	now := s.Now()
	tok, err := s.Store.FindValidToken(ctx, token, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	if err := s.Store.TouchToken(ctx, tok.ID, now); err != nil {
		log.Printf("⚠️ failed to update token last_used_at: %v", err)
	}
	b, err := s.Store.GetBooking(ctx, tok.BookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	return b, nil
}

// Active returns the newest unexpired token of a booking, nil when there is none.
func (s *TokenService) Active(ctx context.Context, bookingID uint) (*models.BookingToken, error) {
	tok, err := s.Store.LatestValidToken(ctx, bookingID, s.Now())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return tok, err
}

// Revoke deletes every token of the booking.
func (s *TokenService) Revoke(ctx context.Context, bookingID uint) error {
	if err := s.Store.DeleteTokens(ctx, bookingID); err != nil {
		return err
	}
	log.Printf("✅ access tokens revoked booking=%d", bookingID)
	return nil
}

// MagicLink renders the guest access URL for token.
func (s *TokenService) MagicLink(token string) string {
	return utils.BuildMagicLink(s.FrontendURL, token)
}
