package ride

import (
	"context"
	"errors"
	"sync"

	"backend-bikecomp/internal/source"
	"backend-bikecomp/internal/telemetry"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("ride session not found")

// Publisher fans live updates out to stream subscribers.
type Publisher interface {
	Publish(sessionID string, v any)
}

// Manager runs at most one ride at a time for the device feeding the push
// source.
type Manager struct {
	push      *source.Push
	recorder  Recorder
	mileage   MileageFunc
	publisher Publisher
	opts      Options

	mu      sync.Mutex
	current *Session
}

func NewManager(push *source.Push, recorder Recorder, mileage MileageFunc, publisher Publisher, opts Options) *Manager {
	return &Manager{
		push:      push,
		recorder:  recorder,
		mileage:   mileage,
		publisher: publisher,
		opts:      opts,
	}
}

func (m *Manager) Start() (Update, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && m.current.State() == StateRiding {
		return Update{}, ErrAlreadyRiding
	}

	id := uuid.NewString()
	opts := m.opts
	opts.Listener = m.listener(id, m.opts.Listener)

	sess := NewSession(id, m.push, m.recorder, m.mileage, opts)
	if err := sess.Start(); err != nil {
		return Update{}, err
	}
	m.current = sess
	return sess.Snapshot(), nil
}

func (m *Manager) Current() (Update, bool) {
	m.mu.Lock()
	sess := m.current
	m.mu.Unlock()
	if sess == nil || sess.State() != StateRiding {
		return Update{}, false
	}
	return sess.Snapshot(), true
}

// Ingest forwards a device sample to the running session through the push
// source, preserving arrival order.
func (m *Manager) Ingest(ctx context.Context, sessionID string, sample telemetry.PositionSample) error {
	sess, err := m.session(sessionID)
	if err != nil {
		return err
	}
	if err := sample.Validate(); err != nil {
		return err
	}
	if sess.State() != StateRiding {
		return ErrNotRiding
	}
	return m.publish(ctx, source.Event{Sample: sample})
}

// ReportError forwards a transient source failure. A permission failure also
// blocks future rides until permission is granted again.
func (m *Manager) ReportError(ctx context.Context, sessionID string, failure *source.Failure) error {
	sess, err := m.session(sessionID)
	if err != nil {
		return err
	}
	if errors.Is(failure, source.ErrPermissionDenied) {
		m.push.SetPermission(source.PermissionDenied)
	}
	if sess.State() != StateRiding {
		return ErrNotRiding
	}
	return m.publish(ctx, source.Event{Err: failure})
}

func (m *Manager) Stop(ctx context.Context, sessionID string) (StopResult, error) {
	sess, err := m.session(sessionID)
	if err != nil {
		return StopResult{}, err
	}
	return sess.Stop(ctx)
}

func (m *Manager) SetPermission(p source.Permission) {
	m.push.SetPermission(p)
}

func (m *Manager) Permission() source.Permission {
	return m.push.Permission()
}

// Close stops a running ride and shuts the push source.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	sess := m.current
	m.mu.Unlock()

	var err error
	if sess != nil {
		err = sess.Close(ctx)
	}
	m.push.Close()
	return err
}

func (m *Manager) session(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.current.ID() != id {
		return nil, ErrSessionNotFound
	}
	return m.current, nil
}

func (m *Manager) publish(ctx context.Context, ev source.Event) error {
	err := m.push.Publish(ctx, ev)
	if errors.Is(err, source.ErrNoSubscriber) {
		return ErrNotRiding
	}
	return err
}

func (m *Manager) listener(id string, next func(Update)) func(Update) {
	return func(u Update) {
		if m.publisher != nil {
			m.publisher.Publish(id, u)
		}
		if next != nil {
			next(u)
		}
	}
}
