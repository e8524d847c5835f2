package ride

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"backend-bikecomp/internal/source"
	"backend-bikecomp/internal/telemetry"
)

var (
	ErrAlreadyRiding = errors.New("ride already in progress")
	ErrNotRiding     = errors.New("no ride in progress")
)

type State int

const (
	StateIdle State = iota
	StateRiding
)

func (s State) String() string {
	if s == StateRiding {
		return "riding"
	}
	return "idle"
}

// Recorder appends finished rides to the record store.
type Recorder interface {
	AddRide(ctx context.Context, r Ride) (Ride, error)
}

// MileageFunc returns the fuel economy in effect, in km per litre.
type MileageFunc func(ctx context.Context) (float64, error)

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type clockTicker struct {
	t *time.Ticker
}

func (c clockTicker) C() <-chan time.Time { return c.t.C }
func (c clockTicker) Stop()               { c.t.Stop() }

func newClockTicker(d time.Duration) Ticker {
	return clockTicker{t: time.NewTicker(d)}
}

type Options struct {
	Accumulator telemetry.AccumulatorConfig
	// TickInterval is the wall-clock period of one duration second.
	TickInterval time.Duration
	Now          func() time.Time
	NewTicker    func(time.Duration) Ticker
	Listener     func(Update)
}

func (o Options) withDefaults() Options {
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewTicker == nil {
		o.NewTicker = newClockTicker
	}
	return o
}

// Session drives one ride from start to stop. Sample events and duration
// ticks are handled on a single goroutine and every accumulator mutation
// happens under mu.
type Session struct {
	id       string
	src      source.Source
	recorder Recorder
	mileage  MileageFunc
	opts     Options

	mu        sync.Mutex
	state     State
	acc       *telemetry.Accumulator
	startedAt time.Time
	warning   error
	sub       source.Subscription
	ticker    Ticker
	quit      chan struct{}
	done      chan struct{}
	exhausted chan struct{}
}

func NewSession(id string, src source.Source, recorder Recorder, mileage MileageFunc, opts Options) *Session {
	return &Session{
		id:       id,
		src:      src,
		recorder: recorder,
		mileage:  mileage,
		opts:     opts.withDefaults(),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start subscribes to the position source and begins a new ride. On failure
// the session stays idle and the source error is returned.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return ErrAlreadyRiding
	}
	sub, err := s.src.Subscribe(source.WatchOptions{HighAccuracy: true})
	if err != nil {
		return err
	}

	s.acc = telemetry.NewAccumulator(s.opts.Accumulator)
	s.startedAt = s.opts.Now()
	s.warning = nil
	s.sub = sub
	s.ticker = s.opts.NewTicker(s.opts.TickInterval)
	s.quit = make(chan struct{})
	s.done = make(chan struct{})
	s.exhausted = make(chan struct{})
	s.state = StateRiding

	go s.loop(sub.Events(), s.ticker.C(), s.quit, s.done, s.exhausted)
	log.Printf("ride %s started", s.id)
	return nil
}

func (s *Session) loop(events <-chan source.Event, ticks <-chan time.Time, quit, done, exhausted chan struct{}) {
	defer close(done)
	for {
		select {
		case <-quit:
			s.drain(events)
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				close(exhausted)
				continue
			}
			s.apply(ev)
		case <-ticks:
			s.OnTick()
		}
	}
}

// drain applies events already queued by the source. It runs after the
// subscription is closed, so nothing new can arrive.
func (s *Session) drain(events <-chan source.Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.apply(ev)
		default:
			return
		}
	}
}

func (s *Session) apply(ev source.Event) {
	if ev.Err != nil {
		_ = s.OnSourceError(ev.Err)
		return
	}
	if _, err := s.OnSample(ev.Sample); err != nil && !errors.Is(err, ErrNotRiding) {
		log.Printf("ride %s: sample rejected: %v", s.id, err)
	}
}

// OnSample feeds one position sample into the running trip.
func (s *Session) OnSample(sample telemetry.PositionSample) (telemetry.Reading, error) {
	if err := sample.Validate(); err != nil {
		return telemetry.Reading{}, err
	}

	s.mu.Lock()
	if s.state != StateRiding {
		s.mu.Unlock()
		return telemetry.Reading{}, ErrNotRiding
	}
	reading := s.acc.Add(sample)
	update := s.updateLocked()
	s.mu.Unlock()

	s.notify(update)
	return reading, nil
}

// OnSourceError records a transient source failure. The ride keeps running
// and its accumulated state is untouched.
func (s *Session) OnSourceError(err error) error {
	s.mu.Lock()
	if s.state != StateRiding {
		s.mu.Unlock()
		return ErrNotRiding
	}
	s.warning = err
	update := s.updateLocked()
	s.mu.Unlock()

	log.Printf("ride %s: %v", s.id, err)
	s.notify(update)
	return nil
}

func (s *Session) OnTick() {
	s.mu.Lock()
	if s.state != StateRiding {
		s.mu.Unlock()
		return
	}
	s.acc.Tick()
	update := s.updateLocked()
	s.mu.Unlock()

	s.notify(update)
}

// Exhausted is closed once the position source has ended and every sample it
// delivered has been processed. Live sources never end. It returns nil while
// the session is idle.
func (s *Session) Exhausted() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exhausted
}

func (s *Session) Snapshot() Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked()
}

// Stop ends the ride, releases the subscription and ticker, and records the
// ride when it is long enough. Samples the source accepted before Stop are
// applied first. The returned result is valid even when persisting fails.
func (s *Session) Stop(ctx context.Context) (StopResult, error) {
	s.mu.Lock()
	if s.state != StateRiding || s.quit == nil {
		s.mu.Unlock()
		return StopResult{}, ErrNotRiding
	}
	sub, ticker, quit, done := s.sub, s.ticker, s.quit, s.done
	s.quit = nil
	s.mu.Unlock()

	if err := sub.Close(); err != nil {
		log.Printf("ride %s: closing position source: %v", s.id, err)
	}
	ticker.Stop()
	close(quit)
	<-done

	s.mu.Lock()
	s.state = StateIdle
	stats := s.acc.Stats()
	startedAt := s.startedAt
	s.acc, s.sub, s.ticker, s.done, s.exhausted = nil, nil, nil, nil, nil
	s.mu.Unlock()

	endedAt := s.opts.Now()
	result := StopResult{Final: Update{
		SessionID:   s.id,
		State:       StateIdle.String(),
		DistanceKm:  stats.DistanceKm,
		DurationSec: stats.DurationSec,
		AvgSpeedKmH: stats.AvgSpeedKmH(),
		MaxSpeedKmH: stats.MaxSpeedKmH,
		StartedAtMs: startedAt.UnixMilli(),
	}}
	defer s.notify(result.Final)

	mileage := 0.0
	if s.mileage != nil {
		m, err := s.mileage(ctx)
		if err != nil {
			log.Printf("ride %s: mileage unavailable, fuel not computed: %v", s.id, err)
		} else {
			mileage = m
		}
	}

	r, ok := Finalize(stats, startedAt, endedAt, mileage)
	if !ok {
		log.Printf("ride %s stopped after %.3f km, not recorded", s.id, stats.DistanceKm)
		return result, nil
	}

	saved, err := s.recorder.AddRide(ctx, r)
	if err != nil {
		return result, err
	}
	result.Saved = true
	result.Ride = &saved
	log.Printf("ride %s recorded as %d: %.2f km", s.id, saved.ID, saved.DistanceKm)
	return result, nil
}

// Close is the teardown hook: a running ride is stopped so it is not lost.
func (s *Session) Close(ctx context.Context) error {
	_, err := s.Stop(ctx)
	if errors.Is(err, ErrNotRiding) {
		return nil
	}
	return err
}

func (s *Session) updateLocked() Update {
	u := Update{
		SessionID: s.id,
		State:     s.state.String(),
	}
	if !s.startedAt.IsZero() {
		u.StartedAtMs = s.startedAt.UnixMilli()
	}
	if s.acc != nil {
		stats := s.acc.Stats()
		u.SpeedKmH = stats.SpeedKmH
		u.DistanceKm = stats.DistanceKm
		u.DurationSec = stats.DurationSec
		u.AvgSpeedKmH = stats.AvgSpeedKmH()
		u.MaxSpeedKmH = stats.MaxSpeedKmH
	}
	if s.warning != nil {
		u.Warning = s.warning.Error()
	}
	return u
}

func (s *Session) notify(u Update) {
	if s.opts.Listener != nil {
		s.opts.Listener(u)
	}
}
