package source

import (
	"errors"
	"fmt"
	"time"

	"backend-bikecomp/internal/telemetry"
)

var (
	ErrSourceUnavailable = errors.New("position source unavailable")
	ErrPermissionDenied  = errors.New("location permission denied")
	ErrNoSubscriber      = errors.New("no active position subscription")
)

// WatchOptions mirrors the intent a caller passes when watching positions.
type WatchOptions struct {
	HighAccuracy bool
	MaximumAge   time.Duration
}

// Event carries either a sample or a transient source error.
type Event struct {
	Sample telemetry.PositionSample
	Err    error
}

type Subscription interface {
	Events() <-chan Event
	Close() error
}

type Source interface {
	Subscribe(opts WatchOptions) (Subscription, error)
}

// Error codes follow the browser geolocation API.
const (
	CodePermissionDenied    = 1
	CodePositionUnavailable = 2
	CodeTimeout             = 3
)

// Failure is a transient, per-sample source error.
type Failure struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("gps error %d: %s", f.Code, f.Message)
}

// Is lets errors.Is match a permission failure against ErrPermissionDenied.
func (f *Failure) Is(target error) bool {
	return target == ErrPermissionDenied && f.Code == CodePermissionDenied
}
