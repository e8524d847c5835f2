// Package fuel estimates remaining fuel and range from ride and refuel history.
package fuel

import (
	"math"

	"backend-bikecomp/internal/refuel"
	"backend-bikecomp/internal/ride"
)

type Estimate struct {
	TotalLitresPurchased float64 `json:"total_litres_purchased"`
	TotalDistanceKm      float64 `json:"total_distance_km"`
	MileageKmPerLitre    float64 `json:"mileage_km_per_litre"`
	RemainingFuelLitres  float64 `json:"remaining_fuel_litres"`
	EstimatedRangeKm     float64 `json:"estimated_range_km"`
	// RangeKnown is false when the mileage cannot be used as a divisor.
	RangeKnown bool `json:"range_known"`
}

func TotalLitres(refuels []refuel.Refuel) float64 {
	var total float64
	for _, r := range refuels {
		total += r.Litres
	}
	return total
}

func TotalDistanceKm(rides []ride.Ride) float64 {
	var total float64
	for _, r := range rides {
		total += r.DistanceKm
	}
	return total
}

func Compute(totalLitres, totalDistanceKm, mileage float64) Estimate {
	e := Estimate{
		TotalLitresPurchased: totalLitres,
		TotalDistanceKm:      totalDistanceKm,
		MileageKmPerLitre:    mileage,
	}
	if !(mileage > 0) || math.IsInf(mileage, 0) {
		return e
	}

	e.RangeKnown = true
	e.RemainingFuelLitres = totalLitres - totalDistanceKm/mileage
	if e.RemainingFuelLitres > 0 {
		e.EstimatedRangeKm = e.RemainingFuelLitres * mileage
	}
	return e
}
