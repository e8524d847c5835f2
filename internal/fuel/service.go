package fuel

import (
	"context"
	"errors"
	"fmt"

	"backend-bikecomp/internal/refuel"
	"backend-bikecomp/internal/ride"
	"backend-bikecomp/internal/settings"
)

type History interface {
	Rides(ctx context.Context) ([]ride.Ride, error)
	Refuels(ctx context.Context) ([]refuel.Refuel, error)
}

type MileageSource interface {
	Mileage(ctx context.Context) (float64, error)
}

type Service struct {
	history History
	mileage MileageSource
}

func NewService(history History, mileage MileageSource) *Service {
	return &Service{history: history, mileage: mileage}
}

// Estimate recomputes the fuel estimate from the full history on every call.
func (s *Service) Estimate(ctx context.Context) (Estimate, error) {
	refuels, err := s.history.Refuels(ctx)
	if err != nil {
		return Estimate{}, fmt.Errorf("load refuels: %w", err)
	}
	rides, err := s.history.Rides(ctx)
	if err != nil {
		return Estimate{}, fmt.Errorf("load rides: %w", err)
	}
	mileage, err := s.mileage.Mileage(ctx)
	if err != nil && !errors.Is(err, settings.ErrInvalidMileage) {
		return Estimate{}, fmt.Errorf("load mileage: %w", err)
	}

	return Compute(TotalLitres(refuels), TotalDistanceKm(rides), mileage), nil
}
