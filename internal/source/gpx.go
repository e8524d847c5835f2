package source

import (
	"fmt"
	"sync"
	"time"

	"backend-bikecomp/internal/telemetry"

	"github.com/tkrajina/gpxgo/gpx"
)

// Replay emits the points of a recorded GPX track as position samples,
// honouring the recorded spacing divided by Speedup.
type Replay struct {
	samples []telemetry.PositionSample
	speedup float64

	mu      sync.Mutex
	started bool
	done    chan struct{}
}

// LoadGPX reads track points (or route points when the file has no tracks).
// Points without a timestamp are spaced one second apart.
func LoadGPX(path string, speedup float64) (*Replay, error) {
	file, err := gpx.ParseFile(path)
	if err != nil {
		return nil, err
	}

	var points []gpx.GPXPoint
	for _, track := range file.Tracks {
		for _, segment := range track.Segments {
			points = append(points, segment.Points...)
		}
	}
	if len(points) == 0 {
		for _, route := range file.Routes {
			points = append(points, route.Points...)
		}
	}
	if len(points) < 2 {
		return nil, fmt.Errorf("gpx %s: need at least two points, got %d", path, len(points))
	}

	samples := make([]telemetry.PositionSample, 0, len(points))
	var base time.Time
	for i, p := range points {
		ts := int64(i) * 1000
		if !p.Timestamp.IsZero() {
			if base.IsZero() {
				base = p.Timestamp
			}
			ts = p.Timestamp.Sub(base).Milliseconds()
		}
		samples = append(samples, telemetry.PositionSample{
			Latitude:    p.Point.Latitude,
			Longitude:   p.Point.Longitude,
			TimestampMs: ts,
		})
	}
	return NewReplay(samples, speedup), nil
}

func NewReplay(samples []telemetry.PositionSample, speedup float64) *Replay {
	if speedup <= 0 {
		speedup = 1
	}
	return &Replay{samples: samples, speedup: speedup, done: make(chan struct{})}
}

func (r *Replay) Samples() []telemetry.PositionSample {
	return r.samples
}

// Done is closed once every sample was delivered or the subscription closed.
func (r *Replay) Done() <-chan struct{} {
	return r.done
}

// Subscribe starts the replay. A replay can be consumed once.
func (r *Replay) Subscribe(_ WatchOptions) (Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil, fmt.Errorf("%w: replay already consumed", ErrSourceUnavailable)
	}
	r.started = true

	sub := &replaySubscription{
		events: make(chan Event),
		stop:   make(chan struct{}),
	}
	go r.run(sub)
	return sub, nil
}

// run closes the event channel once the track is exhausted so consumers can
// tell the end of the recording apart from a pause.
func (r *Replay) run(sub *replaySubscription) {
	defer close(r.done)

	var prev int64
	for i, s := range r.samples {
		if i > 0 && s.TimestampMs > prev {
			wait := time.Duration(float64(time.Duration(s.TimestampMs-prev)*time.Millisecond) / r.speedup)
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-sub.stop:
				timer.Stop()
				return
			}
		}
		prev = s.TimestampMs

		select {
		case sub.events <- Event{Sample: s}:
		case <-sub.stop:
			return
		}
	}
	close(sub.events)
}

type replaySubscription struct {
	events chan Event
	stop   chan struct{}
	once   sync.Once
}

func (s *replaySubscription) Events() <-chan Event {
	return s.events
}

func (s *replaySubscription) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}
