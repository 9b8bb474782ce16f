// Package poller re-fetches a resource on an interval, with manual
// refresh and focus revalidation. Held data survives failed ticks
// (stale-while-revalidate): the error is reported alongside the last
// good value, never instead of it.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type FetchFunc[T any] func(ctx context.Context) (T, error)

type Config struct {
	Interval time.Duration
	// RevalidateOnFocus re-fetches when Focus() signals that the
	// viewing context regained foreground focus.
	RevalidateOnFocus bool
}

// State is one consistent view of the poller's data.
type State[T any] struct {
	Data    T
	Err     error
	Loading bool
}

type Poller[T any] struct {
	key   string
	fetch FetchFunc[T]
	cfg   Config
	log   *slog.Logger

	mu      sync.Mutex
	data    T
	err     error
	loading bool

	refreshCh chan chan struct{}
	focusCh   chan struct{}
	onUpdate  func(T)
}

func New[T any](key string, fetch FetchFunc[T], cfg Config, log *slog.Logger) *Poller[T] {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Poller[T]{
		key:       key,
		fetch:     fetch,
		cfg:       cfg,
		log:       log.With("component", "poller", "key", key),
		refreshCh: make(chan chan struct{}),
		focusCh:   make(chan struct{}, 1),
	}
}

// OnUpdate registers a sink called with each successful result, from
// the polling goroutine. Set before Start.
func (p *Poller[T]) OnUpdate(fn func(T)) {
	p.onUpdate = fn
}

// Start runs the polling loop until ctx is cancelled: an initial fetch,
// then one fetch per tick, plus out-of-band refresh and focus fetches.
// Blocks; run it in its own goroutine.
func (p *Poller[T]) Start(ctx context.Context) {
	p.run(ctx)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Debug("poller stopped", "reason", ctx.Err())
			return
		case <-ticker.C:
			p.run(ctx)
		case done := <-p.refreshCh:
			p.run(ctx)
			close(done)
		case <-p.focusCh:
			if p.cfg.RevalidateOnFocus {
				p.run(ctx)
			}
		}
	}
}

// Refresh triggers an out-of-band fetch and returns once the new data
// has landed (or ctx is cancelled first).
func (p *Poller[T]) Refresh(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case p.refreshCh <- done:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Focus signals that the viewing context regained focus. Non-blocking;
// coalesces with any pending signal.
func (p *Poller[T]) Focus() {
	select {
	case p.focusCh <- struct{}{}:
	default:
	}
}

// State returns the current data, the last error and whether a fetch
// is running.
func (p *Poller[T]) State() State[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State[T]{Data: p.data, Err: p.err, Loading: p.loading}
}

func (p *Poller[T]) run(ctx context.Context) {
	p.mu.Lock()
	p.loading = true
	p.mu.Unlock()

	data, err := p.fetch(ctx)

	// A fetch that resolves after cancellation must not touch state
	// the owner has already walked away from.
	if ctx.Err() != nil {
		p.mu.Lock()
		p.loading = false
		p.mu.Unlock()
		return
	}

	p.mu.Lock()
	p.loading = false
	if err != nil {
		p.err = err
	} else {
		p.data = data
		p.err = nil
	}
	p.mu.Unlock()

	if err == nil && p.onUpdate != nil {
		p.onUpdate(data)
	}
}
