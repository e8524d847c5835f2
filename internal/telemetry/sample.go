package telemetry

import (
	"errors"
	"math"
)

var ErrInvalidSample = errors.New("position sample has non-finite fields")

// PositionSample is one fix from a position source. DeviceSpeedMps is nil when
// the device did not report a speed.
type PositionSample struct {
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	Accuracy       float64  `json:"accuracy"`
	TimestampMs    int64    `json:"timestamp"`
	DeviceSpeedMps *float64 `json:"speed"`
}

// Validate rejects samples the speed filter must never see.
func (s PositionSample) Validate() error {
	if !finite(s.Latitude) || !finite(s.Longitude) || !finite(s.Accuracy) {
		return ErrInvalidSample
	}
	if s.DeviceSpeedMps != nil && !finite(*s.DeviceSpeedMps) {
		return ErrInvalidSample
	}
	return nil
}

func (s PositionSample) deviceSpeed() float64 {
	if s.DeviceSpeedMps == nil {
		return 0
	}
	return *s.DeviceSpeedMps
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
