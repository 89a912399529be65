// Package poller runs a refresh function on a fixed interval while a
// surface is visible.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/yungbote/supportchat-backend/internal/pkg/logger"
)

const DefaultInterval = 2500 * time.Millisecond

// TickFunc is one poll. Errors are logged and the next tick retries.
type TickFunc func(ctx context.Context) error

type Option func(*Poller)

func WithClock(c clock.Clock) Option { return func(p *Poller) { p.clock = c } }

func WithLogger(l *logger.Logger) Option { return func(p *Poller) { p.log = l } }

// WithActive sets the initial visibility. Pollers start active by default.
func WithActive(active bool) Option { return func(p *Poller) { p.active = active } }

// Poller runs fn on every tick while active. Ticks run one at a time on a
// single goroutine; ticks that fire while fn is still running are dropped.
type Poller struct {
	name     string
	interval time.Duration
	fn       TickFunc
	clock    clock.Clock
	log      *logger.Logger

	mu      sync.Mutex
	active  bool
	lastErr error
	cancel  context.CancelFunc
	done    chan struct{}
	kick    chan struct{}
}

func New(name string, interval time.Duration, fn TickFunc, opts ...Option) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	p := &Poller{
		name:     name,
		interval: interval,
		fn:       fn,
		clock:    clock.New(),
		active:   true,
		kick:     make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(p)
	}
	if p.log == nil {
		p.log = logger.NewNop()
	}
	p.log = p.log.With("component", "Poller", "poller", name)
	return p
}

// Start launches the loop. It is a no-op while already running.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	ticker := p.clock.Ticker(p.interval)
	go p.loop(ctx, ticker, p.done)
}

// Stop cancels the loop and waits for an in-flight tick to return.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// SetActive gates ticks on visibility. Becoming active polls right away.
func (p *Poller) SetActive(active bool) {
	p.mu.Lock()
	was := p.active
	p.active = active
	p.mu.Unlock()
	if active && !was {
		p.Kick()
	}
}

func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Kick requests an immediate tick without waiting for the interval.
func (p *Poller) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Err is the error of the most recent tick, nil once a tick succeeds.
func (p *Poller) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *Poller) loop(ctx context.Context, ticker *clock.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.kick:
		}
		if !p.Active() {
			continue
		}
		p.tick(ctx)
	}
}

func (p *Poller) tick(ctx context.Context) {
	err := p.fn(ctx)
	if err != nil && ctx.Err() != nil {
		return
	}
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
	if err != nil {
		p.log.Debug("poll failed; retrying next tick", "error", err)
	}
}
