package ride

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"backend-bikecomp/internal/source"
	"backend-bikecomp/internal/telemetry"
)

func TestSessionStartStopWithoutDistanceRecordsNothing(t *testing.T) {
	h := newHarness()
	sess := h.session(fixedMileage(40))

	if err := sess.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	result, err := sess.Stop(context.Background())
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if result.Saved || result.Ride != nil {
		t.Fatalf("expected no ride for zero distance")
	}
	if h.recorder.count() != 0 {
		t.Fatalf("expected nothing persisted")
	}
	if sess.State() != StateIdle {
		t.Fatalf("expected idle after stop")
	}
}

func TestSessionRecordsRide(t *testing.T) {
	h := newHarness()
	sess := h.session(fixedMileage(40))

	if err := sess.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := sess.OnSample(at(0, 0, 0)); err != nil {
		t.Fatalf("sample: %v", err)
	}
	if _, err := sess.OnSample(at(0, 0.01, 60_000)); err != nil {
		t.Fatalf("sample: %v", err)
	}
	for i := 0; i < 60; i++ {
		sess.OnTick()
	}
	h.clock.Advance(time.Minute)

	result, err := sess.Stop(context.Background())
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !result.Saved || h.recorder.count() != 1 {
		t.Fatalf("expected exactly one ride recorded")
	}

	r := *result.Ride
	if r.DateEndMs < r.DateStartMs {
		t.Fatalf("expected end after start: %+v", r)
	}
	if r.DateEndMs-r.DateStartMs != 60_000 {
		t.Fatalf("expected one minute ride, got %d ms", r.DateEndMs-r.DateStartMs)
	}
	if math.Abs(r.DistanceKm-1.112) > 0.01 {
		t.Fatalf("unexpected distance: %v", r.DistanceKm)
	}
	if r.FuelUsed != r.DistanceKm/40 {
		t.Fatalf("expected fuel used %v, got %v", r.DistanceKm/40, r.FuelUsed)
	}
	if math.Abs(r.AvgSpeedKmH-r.DistanceKm*60) > 1e-9 {
		t.Fatalf("unexpected average speed: %v", r.AvgSpeedKmH)
	}
	if math.Abs(r.MaxSpeedKmH-66.7) > 0.1 {
		t.Fatalf("unexpected max speed: %v", r.MaxSpeedKmH)
	}
}

func TestSessionStartFailsWhenPermissionDenied(t *testing.T) {
	h := newHarness()
	h.push.SetPermission(source.PermissionDenied)
	sess := h.session(fixedMileage(40))

	if err := sess.Start(); !errors.Is(err, source.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if sess.State() != StateIdle {
		t.Fatalf("expected idle after failed start")
	}
}

func TestSessionStartFailsWhenSourceUnavailable(t *testing.T) {
	h := newHarness()
	h.push.Close()
	sess := h.session(fixedMileage(40))

	if err := sess.Start(); !errors.Is(err, source.ErrSourceUnavailable) {
		t.Fatalf("expected source unavailable, got %v", err)
	}
	if _, err := sess.OnSample(at(0, 0, 0)); !errors.Is(err, ErrNotRiding) {
		t.Fatalf("expected not riding, got %v", err)
	}
}

func TestSessionInvalidTransitions(t *testing.T) {
	h := newHarness()
	sess := h.session(fixedMileage(40))

	if _, err := sess.Stop(context.Background()); !errors.Is(err, ErrNotRiding) {
		t.Fatalf("expected not riding on stop from idle, got %v", err)
	}
	if err := sess.OnSourceError(errors.New("lost")); !errors.Is(err, ErrNotRiding) {
		t.Fatalf("expected not riding on source error from idle, got %v", err)
	}
	if err := sess.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := sess.Start(); !errors.Is(err, ErrAlreadyRiding) {
		t.Fatalf("expected already riding, got %v", err)
	}
	_, _ = sess.Stop(context.Background())
}

func TestSessionSourceErrorKeepsRiding(t *testing.T) {
	h := newHarness()
	sess := h.session(fixedMileage(40))
	_ = sess.Start()

	_, _ = sess.OnSample(at(0, 0, 0))
	_, _ = sess.OnSample(at(0, 0.01, 10_000))
	before := sess.Snapshot()

	if err := sess.OnSourceError(&source.Failure{Code: source.CodePositionUnavailable, Message: "signal lost"}); err != nil {
		t.Fatalf("source error: %v", err)
	}
	after := sess.Snapshot()
	if sess.State() != StateRiding {
		t.Fatalf("expected session to keep running")
	}
	if after.Warning == "" {
		t.Fatalf("expected warning surfaced")
	}
	if after.DistanceKm != before.DistanceKm || after.SpeedKmH != before.SpeedKmH {
		t.Fatalf("expected state preserved across source error")
	}
	_, _ = sess.Stop(context.Background())
}

func TestSessionRejectsInvalidSample(t *testing.T) {
	h := newHarness()
	sess := h.session(fixedMileage(40))
	_ = sess.Start()
	defer sess.Stop(context.Background())

	if _, err := sess.OnSample(at(math.NaN(), 0, 0)); !errors.Is(err, telemetry.ErrInvalidSample) {
		t.Fatalf("expected invalid sample, got %v", err)
	}
	if sess.Snapshot().DistanceKm != 0 {
		t.Fatalf("expected nothing accumulated")
	}
}

func TestSessionReleasesResourcesOnStop(t *testing.T) {
	h := newHarness()
	sess := h.session(fixedMileage(40))
	_ = sess.Start()
	_, _ = sess.Stop(context.Background())

	if !h.ticker.isStopped() {
		t.Fatalf("expected ticker stopped")
	}
	if err := h.push.Publish(context.Background(), source.Event{}); !errors.Is(err, source.ErrNoSubscriber) {
		t.Fatalf("expected subscription released, got %v", err)
	}
}

func TestSessionReleasesResourcesWhenPersistFails(t *testing.T) {
	h := newHarness()
	h.recorder.err = errStore
	sess := h.session(fixedMileage(40))
	_ = sess.Start()
	_, _ = sess.OnSample(at(0, 0, 0))
	_, _ = sess.OnSample(at(0, 0.01, 10_000))

	result, err := sess.Stop(context.Background())
	if !errors.Is(err, errStore) {
		t.Fatalf("expected store error, got %v", err)
	}
	if result.Saved {
		t.Fatalf("expected ride not marked saved")
	}
	if !h.ticker.isStopped() || sess.State() != StateIdle {
		t.Fatalf("expected resources released and idle state")
	}
}

func TestSessionCloseStopsRunningRide(t *testing.T) {
	h := newHarness()
	sess := h.session(fixedMileage(40))
	_ = sess.Start()
	_, _ = sess.OnSample(at(0, 0, 0))
	_, _ = sess.OnSample(at(0, 0.01, 10_000))

	if err := sess.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if h.recorder.count() != 1 {
		t.Fatalf("expected teardown to record the ride")
	}
	if err := sess.Close(context.Background()); err != nil {
		t.Fatalf("expected idle close to be a no-op: %v", err)
	}
}

func TestSessionMileageErrorStillRecords(t *testing.T) {
	h := newHarness()
	sess := h.session(func(context.Context) (float64, error) { return 0, errors.New("bad mileage") })
	_ = sess.Start()
	_, _ = sess.OnSample(at(0, 0, 0))
	_, _ = sess.OnSample(at(0, 0.01, 10_000))

	result, err := sess.Stop(context.Background())
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !result.Saved || result.Ride.FuelUsed != 0 {
		t.Fatalf("expected ride saved without fuel: %+v", result.Ride)
	}
}

func TestSessionFilterDoesNotLeakAcrossRides(t *testing.T) {
	h := newHarness()
	sess := h.session(fixedMileage(40))

	fast := 30.0
	_ = sess.Start()
	_, _ = sess.OnSample(telemetry.PositionSample{TimestampMs: 0, DeviceSpeedMps: &fast})
	_, _ = sess.Stop(context.Background())

	slow := 10.0
	_ = sess.Start()
	defer sess.Stop(context.Background())
	r, err := sess.OnSample(telemetry.PositionSample{TimestampMs: 0, DeviceSpeedMps: &slow})
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if r.DisplayedSpeedKmH != 36 {
		t.Fatalf("expected fresh filter to display 36 km/h, got %v", r.DisplayedSpeedKmH)
	}
}

func TestSessionEventLoop(t *testing.T) {
	h := newHarness()
	sess := h.session(fixedMileage(40))
	if err := sess.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	ctx := context.Background()
	_ = h.push.Publish(ctx, source.Event{Sample: at(0, 0, 0)})
	_ = h.push.Publish(ctx, source.Event{Sample: at(0, 0.001, 5_000)})
	h.waitFor(t, func(u Update) bool { return u.DistanceKm > 0 })

	h.ticker.ch <- time.Now()
	h.waitFor(t, func(u Update) bool { return u.DurationSec == 1 })

	_ = h.push.Publish(ctx, source.Event{Err: &source.Failure{Code: source.CodeTimeout, Message: "timeout"}})
	u := h.waitFor(t, func(u Update) bool { return u.Warning != "" })
	if u.State != StateRiding.String() {
		t.Fatalf("expected riding state in warning update")
	}

	result, err := sess.Stop(ctx)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !result.Saved {
		t.Fatalf("expected ride of %v km saved", result.Final.DistanceKm)
	}
	final := h.waitFor(t, func(u Update) bool { return u.State == StateIdle.String() })
	if final.SpeedKmH != 0 {
		t.Fatalf("expected zero speed in final update")
	}
}

func TestSessionReplayExhausted(t *testing.T) {
	h := newHarness()
	samples := []telemetry.PositionSample{
		at(0, 0, 0),
		at(0, 0.005, 30_000),
		at(0, 0.01, 60_000),
	}
	replay := source.NewReplay(samples, 1_000_000)
	sess := NewSession("replay-1", replay, h.recorder, fixedMileage(40), h.options())

	if sess.Exhausted() != nil {
		t.Fatalf("expected no exhausted channel before start")
	}
	if err := sess.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case <-sess.Exhausted():
	case <-time.After(time.Second):
		t.Fatalf("expected replay to be exhausted")
	}
	snap := sess.Snapshot()
	if math.Abs(snap.DistanceKm-1.112) > 0.01 {
		t.Fatalf("expected every replayed sample counted, got %v km", snap.DistanceKm)
	}

	result, err := sess.Stop(context.Background())
	if err != nil || !result.Saved {
		t.Fatalf("expected replayed ride saved, got %+v, %v", result, err)
	}
}

func TestFinalize(t *testing.T) {
	start := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)

	if _, ok := Finalize(telemetry.Stats{DistanceKm: 0.01}, start, start, 40); ok {
		t.Fatalf("expected 10 m trip to be discarded")
	}

	r, ok := Finalize(telemetry.Stats{DistanceKm: 30, DurationSec: 3600, MaxSpeedKmH: 55}, start, start.Add(-time.Second), 30)
	if !ok {
		t.Fatalf("expected ride")
	}
	if r.DateEndMs != r.DateStartMs {
		t.Fatalf("expected end clamped to start")
	}
	if r.AvgSpeedKmH != 30 || r.FuelUsed != 1 || r.MaxSpeedKmH != 55 {
		t.Fatalf("unexpected ride: %+v", r)
	}

	r, _ = Finalize(telemetry.Stats{DistanceKm: 5}, start, start, 0)
	if r.AvgSpeedKmH != 0 || r.FuelUsed != 0 {
		t.Fatalf("expected zero average and fuel: %+v", r)
	}
}
