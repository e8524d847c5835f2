package telemetry

import "backend-bikecomp/internal/shared/geo"

const (
	// JitterThresholdKm ignores position deltas below one meter when deriving speed.
	JitterThresholdKm = 0.001
	// StandstillKmH floors the displayed speed to zero below this value.
	StandstillKmH = 1.0

	mpsToKmH = 3.6
)

type AccumulatorConfig struct {
	Filter FilterParams
	Policy SpeedPolicy
	// CountStaleDistance adds the distance of samples whose timestamp does not
	// advance. When false such samples are dropped entirely.
	CountStaleDistance bool
}

// Stats is a snapshot of a trip in progress.
type Stats struct {
	DistanceKm  float64 `json:"distance_km"`
	DurationSec int64   `json:"duration_sec"`
	MaxSpeedKmH float64 `json:"max_speed_kmh"`
	SpeedKmH    float64 `json:"speed_kmh"`
	Samples     int     `json:"samples"`
}

// Reading describes how a single sample was processed.
type Reading struct {
	DistanceDeltaKm   float64
	TimeDeltaSec      float64
	EffectiveSpeedMps float64
	DisplayedSpeedKmH float64
	Stale             bool
	Dropped           bool
}

// Accumulator turns a stream of samples into running trip statistics. It is
// owned by one ride session and is not safe for concurrent use.
type Accumulator struct {
	cfg    AccumulatorConfig
	filter *SpeedFilter
	stats  Stats
	last   *PositionSample
}

func NewAccumulator(cfg AccumulatorConfig) *Accumulator {
	if cfg.Policy == nil {
		cfg.Policy = DefaultSpeedPolicy
	}
	if cfg.Filter == (FilterParams{}) {
		cfg.Filter = DefaultFilterParams()
	}
	return &Accumulator{
		cfg:    cfg,
		filter: NewSpeedFilter(cfg.Filter),
	}
}

// Add processes one sample. The caller must have validated it.
func (a *Accumulator) Add(s PositionSample) Reading {
	var r Reading
	effective := s.deviceSpeed()

	if a.last != nil {
		r.DistanceDeltaKm = geo.HaversineKm(a.last.Latitude, a.last.Longitude, s.Latitude, s.Longitude)
		r.TimeDeltaSec = float64(s.TimestampMs-a.last.TimestampMs) / 1000

		if r.TimeDeltaSec <= 0 {
			r.Stale = true
			if !a.cfg.CountStaleDistance {
				r.Dropped = true
				r.DistanceDeltaKm = 0
				r.DisplayedSpeedKmH = a.stats.SpeedKmH
				return r
			}
		} else if r.DistanceDeltaKm > JitterThresholdKm {
			calculated := r.DistanceDeltaKm * 1000 / r.TimeDeltaSec
			effective = a.cfg.Policy.Select(effective, calculated)
		}

		a.stats.DistanceKm += r.DistanceDeltaKm
		a.stats.MaxSpeedKmH = max(a.stats.MaxSpeedKmH, effective*mpsToKmH)
	}

	r.EffectiveSpeedMps = effective
	smoothed := a.filter.Update(effective * mpsToKmH)
	if smoothed < StandstillKmH {
		smoothed = 0
	}
	r.DisplayedSpeedKmH = smoothed

	a.stats.SpeedKmH = smoothed
	a.stats.Samples++
	last := s
	a.last = &last
	return r
}

// Tick advances the trip duration by one second.
func (a *Accumulator) Tick() {
	a.stats.DurationSec++
}

func (a *Accumulator) Stats() Stats {
	return a.stats
}

// AvgSpeedKmH is distance over elapsed duration, 0 before the first tick.
func (s Stats) AvgSpeedKmH() float64 {
	if s.DurationSec <= 0 {
		return 0
	}
	return s.DistanceKm / (float64(s.DurationSec) / 3600)
}
