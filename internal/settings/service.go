package settings

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// MileageKey is the persisted name of the rider's fuel economy in km per litre.
const MileageKey = "user_mileage_km_per_litre"

var (
	ErrInvalidMileage = errors.New("mileage must be a positive number of km per litre")

	validate = validator.New()
)

type Store interface {
	Setting(ctx context.Context, name string) (float64, bool, error)
	PutSetting(ctx context.Context, name string, value float64) error
}

type Service struct {
	store    Store
	fallback float64
}

// NewService returns a settings service that reports fallback when no
// mileage has been stored yet.
func NewService(store Store, fallback float64) *Service {
	return &Service{store: store, fallback: fallback}
}

func (s *Service) Mileage(ctx context.Context) (float64, error) {
	v, ok, err := s.store.Setting(ctx, MileageKey)
	if err != nil {
		return 0, err
	}
	if !ok {
		v = s.fallback
	}
	if !validMileage(v) {
		return v, fmt.Errorf("%w: %v", ErrInvalidMileage, v)
	}
	return v, nil
}

type MileageInput struct {
	KmPerLitre float64 `json:"km_per_litre" validate:"gt=0"`
}

func (s *Service) SetMileage(ctx context.Context, v float64) error {
	if err := validate.Struct(MileageInput{KmPerLitre: v}); err != nil || !validMileage(v) {
		return fmt.Errorf("%w: %v", ErrInvalidMileage, v)
	}
	return s.store.PutSetting(ctx, MileageKey, v)
}

func validMileage(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
