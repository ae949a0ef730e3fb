package services

import (
	"context"
	"errors"
	"log"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nilsrambow/amrum-be/models"
	"github.com/nilsrambow/amrum-be/repository"
	"github.com/nilsrambow/amrum-be/utils"
)

type GuestService struct {
	Store repository.Store
	Now   func() time.Time
}

func NewGuestService(store repository.Store, now func() time.Time) *GuestService {
	if now == nil {
		now = time.Now
	}
	return &GuestService{Store: store, Now: now}
}

type CreateGuestInput struct {
	FirstName   string
	LastName    string
	Email       string
	PaysDayrate *bool
	Password    string
	IsAdmin     bool
}

// ----------------------------------------------------
// CREATE
// ----------------------------------------------------
func (s *GuestService) Create(ctx context.Context, in CreateGuestInput) (*models.Guest, error) {
	log.Printf("➡️ GuestService.Create incoming: %s", utils.MaskEmail(in.Email))

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}

	now := s.Now()
	guest := &models.Guest{
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		Email:       email,
		PaysDayrate: true,
		IsAdmin:     in.IsAdmin,
		CreatedAt:   now,
		ModifiedAt:  now,
	}
	if in.PaysDayrate != nil {
		guest.PaysDayrate = *in.PaysDayrate
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		guest.HashedPassword = string(hash)
	}

	err := s.Store.CreateGuest(ctx, guest)
	if errors.Is(err, repository.ErrDuplicate) {
		log.Printf("⚠️ GuestService.Create duplicate email %s", utils.MaskEmail(email))
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		log.Printf("⬅️ GuestService.Create error: %v", err)
		return nil, err
	}

	log.Printf("⬅️ GuestService.Create result: id=%d", guest.ID)
	return guest, nil
}

func (s *GuestService) Get(ctx context.Context, id uint) (*models.Guest, error) {
	g, err := s.Store.GetGuest(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrGuestNotFound
	}
	return g, err
}

// GetAll returns guests newest first.
func (s *GuestService) GetAll(ctx context.Context) ([]models.Guest, error) {
	return s.Store.ListGuests(ctx)
}

type UpdateGuestInput struct {
	FirstName   *string
	LastName    *string
	PaysDayrate *bool
}

func (s *GuestService) Update(ctx context.Context, id uint, in UpdateGuestInput) (*models.Guest, error) {
	if in.FirstName == nil && in.LastName == nil && in.PaysDayrate == nil {
		return nil, ErrNoFieldsToUpdate
	}
	g, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.FirstName != nil {
		g.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		g.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.PaysDayrate != nil {
		g.PaysDayrate = *in.PaysDayrate
	}
	g.ModifiedAt = s.Now()
	if err := s.Store.SaveGuest(ctx, g); err != nil {
		return nil, err
	}
	log.Printf("✅ guest %d updated", g.ID)
	return g, nil
}

// Authenticate checks an admin login. Unknown email, wrong password and
// non-admin accounts all return ErrInvalidCredentials.
func (s *GuestService) Authenticate(ctx context.Context, email, password string) (*models.Guest, error) {
	g, err := s.Store.GetGuestByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !g.IsAdmin || g.HashedPassword == "" {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(g.HashedPassword), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return g, nil
}
