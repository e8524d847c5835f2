package ride

import (
	"time"

	"backend-bikecomp/internal/telemetry"
)

// MinRideDistanceKm is the distance a ride must exceed to be recorded.
const MinRideDistanceKm = 0.01

type Ride struct {
	ID          int64   `json:"id"`
	DateStartMs int64   `json:"date_start"`
	DateEndMs   int64   `json:"date_end"`
	DistanceKm  float64 `json:"distance_km"`
	FuelUsed    float64 `json:"fuel_used"`
	AvgSpeedKmH float64 `json:"avg_speed_kmh"`
	MaxSpeedKmH float64 `json:"max_speed_kmh"`
}

// Update is emitted to listeners while a session runs and once when it stops.
type Update struct {
	SessionID   string  `json:"session_id"`
	State       string  `json:"state"`
	SpeedKmH    float64 `json:"speed_kmh"`
	DistanceKm  float64 `json:"distance_km"`
	DurationSec int64   `json:"duration_sec"`
	AvgSpeedKmH float64 `json:"avg_speed_kmh"`
	MaxSpeedKmH float64 `json:"max_speed_kmh"`
	StartedAtMs int64   `json:"started_at"`
	Warning     string  `json:"warning,omitempty"`
}

type StopResult struct {
	Saved bool   `json:"saved"`
	Ride  *Ride  `json:"ride,omitempty"`
	Final Update `json:"final"`
}

// Finalize builds the ride record for a stopped trip. It reports false when
// the trip is too short to keep. A non-positive mileage yields zero fuel used.
func Finalize(stats telemetry.Stats, start, end time.Time, mileageKmPerLitre float64) (Ride, bool) {
	if stats.DistanceKm <= MinRideDistanceKm {
		return Ride{}, false
	}
	if end.Before(start) {
		end = start
	}

	r := Ride{
		DateStartMs: start.UnixMilli(),
		DateEndMs:   end.UnixMilli(),
		DistanceKm:  stats.DistanceKm,
		AvgSpeedKmH: stats.AvgSpeedKmH(),
		MaxSpeedKmH: stats.MaxSpeedKmH,
	}
	if mileageKmPerLitre > 0 {
		r.FuelUsed = stats.DistanceKm / mileageKmPerLitre
	}
	return r, true
}
