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

type PricingService struct {
	Store repository.Store
}

func NewPricingService(store repository.Store) *PricingService {
	return &PricingService{Store: store}
}

// GetUnitPrice returns the price in effect on day, or nil when no row covers it.
func (s *PricingService) GetUnitPrice(ctx context.Context, priceType models.PriceType, day time.Time) (*models.UnitPrice, error) {
	p, err := s.Store.EffectiveUnitPrice(ctx, priceType, utils.DateOnly(day))
	if errors.Is(err, repository.ErrNotFound) {
		log.Printf("⚠️ no %s price effective on %s", priceType, day.Format(utils.DateLayout))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s price: %w", priceType, err)
	}
	return p, nil
}

// Rate returns the price per unit, 0 when no price is in effect.
func (s *PricingService) Rate(ctx context.Context, priceType models.PriceType, day time.Time) (float64, bool, error) {
	p, err := s.GetUnitPrice(ctx, priceType, day)
	if err != nil || p == nil {
		return 0, false, err
	}
	return p.PricePerUnit, true, nil
}

// CreatePriceInput is the payload for adding a new versioned price row.
type CreatePriceInput struct {
	PricePerUnit  float64
	Currency      string
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
}

func (s *PricingService) Create(ctx context.Context, priceType models.PriceType, in CreatePriceInput) (*models.UnitPrice, error) {
	if in.PricePerUnit < 0 || in.EffectiveFrom.IsZero() {
		return nil, ErrInvalidPrice
	}
	p := &models.UnitPrice{
		PriceType:     priceType,
		PricePerUnit:  in.PricePerUnit,
		Currency:      in.Currency,
		EffectiveFrom: utils.DateOnly(in.EffectiveFrom),
	}
	if p.Currency == "" {
		p.Currency = "EUR"
	}
	if in.EffectiveTo != nil {
		to := utils.DateOnly(*in.EffectiveTo)
		if to.Before(p.EffectiveFrom) {
			return nil, ErrInvalidPrice
		}
		p.EffectiveTo = &to
	}
	if err := s.Store.CreateUnitPrice(ctx, p); err != nil {
		return nil, err
	}
	log.Printf("✅ unit price %s %.4f %s from %s", priceType, p.PricePerUnit, p.Currency, p.EffectiveFrom.Format(utils.DateLayout))
	return p, nil
}

func (s *PricingService) List(ctx context.Context, priceType models.PriceType) ([]models.UnitPrice, error) {
	return s.Store.ListUnitPrices(ctx, priceType)
}
