package keepalive

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Registry hands out tokens that keep the process alive while background
// work (an image upload, typically) is still in flight. Shutdown calls
// Drain and waits for every outstanding token.
type Registry struct {
	deadline time.Duration

	mu     sync.Mutex
	active int
	idle   chan struct{}
}

// Token represents permission for one background operation to outlive its
// caller. Release is exactly-once; extra calls are no-ops.
type Token struct {
	registry *Registry
	name     string
	once     sync.Once
	timer    *time.Timer
}

// NewRegistry builds a registry whose tokens expire after deadline. An
// expired token is force-released and logged as a fatal failure of the
// operation holding it; it is never retried here.
func NewRegistry(deadline time.Duration) *Registry {
	return &Registry{
		deadline: deadline,
		idle:     make(chan struct{}),
	}
}

func (r *Registry) Acquire(name string) *Token {
	r.mu.Lock()
	r.active++
	r.mu.Unlock()

	token := &Token{registry: r, name: name}
	if r.deadline > 0 {
		token.timer = time.AfterFunc(r.deadline, func() {
			token.expire()
		})
	}
	return token
}

// Active returns the number of unreleased tokens.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Drain blocks until every outstanding token is released or ctx expires.
func (r *Registry) Drain(ctx context.Context) error {
	for {
		r.mu.Lock()
		if r.active == 0 {
			r.mu.Unlock()
			return nil
		}
		idle := r.idle
		r.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (t *Token) Release() {
	t.once.Do(func() {
		if t.timer != nil {
			t.timer.Stop()
		}
		t.registry.release()
	})
}

func (t *Token) expire() {
	t.once.Do(func() {
		log.Errorf("Keep-alive token %q expired before release", t.name)
		t.registry.release()
	})
}

func (r *Registry) release() {
	r.mu.Lock()
	r.active--
	if r.active == 0 {
		close(r.idle)
		r.idle = make(chan struct{})
	}
	r.mu.Unlock()
}
