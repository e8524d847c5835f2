package refuel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidRefuel = errors.New("invalid refuel")

	validate = validator.New()
)

type Store interface {
	AddRefuel(ctx context.Context, r Refuel) (Refuel, error)
	Refuels(ctx context.Context) ([]Refuel, error)
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

func (s *Service) Add(ctx context.Context, in Input) (Refuel, error) {
	if err := validate.Struct(in); err != nil {
		return Refuel{}, fmt.Errorf("%w: %v", ErrInvalidRefuel, err)
	}

	r := Refuel{
		DateMs:     in.DateMs,
		Litres:     in.Litres,
		OdometerKm: in.OdometerKm,
	}
	switch {
	case in.TotalCost > 0:
		r.TotalCost = in.TotalCost
		r.PricePerLitre = in.TotalCost / in.Litres
	case in.PricePerLitre > 0:
		r.PricePerLitre = in.PricePerLitre
		r.TotalCost = in.Litres * in.PricePerLitre
	default:
		return Refuel{}, fmt.Errorf("%w: total_cost or price_per_litre required", ErrInvalidRefuel)
	}
	if r.DateMs == 0 {
		r.DateMs = s.now().UnixMilli()
	}

	return s.store.AddRefuel(ctx, r)
}

func (s *Service) List(ctx context.Context) ([]Refuel, error) {
	return s.store.Refuels(ctx)
}
