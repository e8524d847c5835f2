package source

import (
	"context"
	"fmt"
	"sync"
)

type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionPrompt  Permission = "prompt"
)

func ParsePermission(s string) (Permission, error) {
	switch p := Permission(s); p {
	case PermissionGranted, PermissionDenied, PermissionPrompt:
		return p, nil
	}
	return "", fmt.Errorf("unknown permission state %q", s)
}

// Push is a source fed by the device over the API. It serves a single
// subscriber at a time.
type Push struct {
	mu         sync.Mutex
	permission Permission
	closed     bool
	sub        *pushSubscription
	buffer     int
}

func NewPush(buffer int) *Push {
	if buffer <= 0 {
		buffer = 64
	}
	return &Push{permission: PermissionPrompt, buffer: buffer}
}

func (p *Push) Subscribe(_ WatchOptions) (Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrSourceUnavailable
	}
	if p.permission == PermissionDenied {
		return nil, ErrPermissionDenied
	}
	if p.sub != nil {
		return nil, fmt.Errorf("%w: already subscribed", ErrSourceUnavailable)
	}

	p.sub = &pushSubscription{
		parent: p,
		events: make(chan Event, p.buffer),
		done:   make(chan struct{}),
	}
	return p.sub, nil
}

func (p *Push) Permission() Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.permission
}

func (p *Push) SetPermission(perm Permission) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.permission = perm
}

// Publish delivers a sample to the active subscriber, blocking while its
// buffer is full so ordering is preserved.
func (p *Push) Publish(ctx context.Context, ev Event) error {
	p.mu.Lock()
	sub := p.sub
	p.mu.Unlock()
	if sub == nil {
		return ErrNoSubscriber
	}

	return sub.send(ctx, ev)
}

// Close makes the source unavailable for new subscriptions.
func (p *Push) Close() {
	p.mu.Lock()
	p.closed = true
	sub := p.sub
	p.mu.Unlock()
	if sub != nil {
		_ = sub.Close()
	}
}

func (p *Push) release(sub *pushSubscription) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sub == sub {
		p.sub = nil
	}
}

type pushSubscription struct {
	parent *Push
	events chan Event
	done   chan struct{}
	once   sync.Once

	// sending is held for reading by in-flight sends. Close takes it for
	// writing, so once Close returns every accepted event is in the buffer.
	sending sync.RWMutex
}

func (s *pushSubscription) send(ctx context.Context, ev Event) error {
	s.sending.RLock()
	defer s.sending.RUnlock()

	select {
	case <-s.done:
		return ErrNoSubscriber
	default:
	}
	select {
	case s.events <- ev:
		return nil
	case <-s.done:
		return ErrNoSubscriber
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *pushSubscription) Events() <-chan Event {
	return s.events
}

func (s *pushSubscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		// wait out sends that raced the close
		s.sending.Lock()
		s.sending.Unlock()
		s.parent.release(s)
	})
	return nil
}
