package ride

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"backend-bikecomp/internal/source"
	"backend-bikecomp/internal/telemetry"
)

type memRecorder struct {
	mu    sync.Mutex
	rides []Ride
	err   error
}

func (r *memRecorder) AddRide(_ context.Context, ride Ride) (Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return Ride{}, r.err
	}
	ride.ID = int64(len(r.rides) + 1)
	r.rides = append(r.rides, ride)
	return ride, nil
}

func (r *memRecorder) Rides(_ context.Context) ([]Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return append([]Ride(nil), r.rides...), nil
}

func (r *memRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rides)
}

type manualTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }
func (t *manualTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *manualTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	push     *source.Push
	recorder *memRecorder
	ticker   *manualTicker
	clock    *fakeClock
	updates  chan Update
}

func newHarness() *harness {
	return &harness{
		push:     source.NewPush(16),
		recorder: &memRecorder{},
		ticker:   &manualTicker{ch: make(chan time.Time)},
		clock:    &fakeClock{now: time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)},
		updates:  make(chan Update, 512),
	}
}

func (h *harness) options() Options {
	return Options{
		Now:       h.clock.Now,
		NewTicker: func(time.Duration) Ticker { return h.ticker },
		Listener: func(u Update) {
			select {
			case h.updates <- u:
			default:
			}
		},
	}
}

func (h *harness) session(mileage MileageFunc) *Session {
	return NewSession("ride-1", h.push, h.recorder, mileage, h.options())
}

func (h *harness) waitFor(t *testing.T, cond func(Update) bool) Update {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case u := <-h.updates:
			if cond(u) {
				return u
			}
		case <-deadline:
			t.Fatalf("timeout waiting for update")
		}
	}
}

func fixedMileage(v float64) MileageFunc {
	return func(context.Context) (float64, error) { return v, nil }
}

func at(lat, lon float64, ms int64) telemetry.PositionSample {
	return telemetry.PositionSample{Latitude: lat, Longitude: lon, TimestampMs: ms}
}

var errStore = errors.New("store error")
