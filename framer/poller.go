package framer

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

var ErrPollerStarted = xerrors.New("poller already started")

// PollerOption configures a Poller
type PollerOption func(*Poller)

// WithIdleStrategy sets what the loop does between passes. Defaults to
// Backoff with a 1ms ceiling.
func WithIdleStrategy(s IdleStrategy) PollerOption {
	return func(p *Poller) { p.idle = s }
}

func WithPollerLogger(l *zap.Logger) PollerOption {
	return func(p *Poller) { p.logger = l }
}

// Poller is the scan thread of a Multiplexer.
// Architecture:
//   - Runs ScanBuffers in a loop on one goroutine locked to its OS thread
//   - Checks for stop without blocking before every pass
//   - Idles between passes according to its IdleStrategy
//
// A Poller runs once: after Stop or context cancellation it cannot be
// restarted.
type Poller struct {
	mux    *Multiplexer
	idle   IdleStrategy
	logger *zap.Logger

	started  atomic.Bool
	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
	passes   atomic.Uint64
}

func NewPoller(mux *Multiplexer, opts ...PollerOption) *Poller {
	p := &Poller{
		mux:      mux,
		idle:     NewBackoff(defaultMaxIdle),
		logger:   zap.NewNop(),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start runs the loop in a dedicated goroutine. Calling it again is a
// no-op.
func (p *Poller) Start() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		_ = p.loop(context.Background())
	}()
}

// Run runs the loop on the calling goroutine until ctx is done or Stop is
// called. It returns ctx.Err() on cancellation and nil on Stop.
func (p *Poller) Run(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrPollerStarted
	}
	return p.loop(ctx)
}

// Stop ends the loop and waits for it to exit
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
	if p.started.Load() {
		<-p.done
	}
}

// Passes returns how many scan passes have completed
func (p *Poller) Passes() uint64 {
	return p.passes.Load()
}

func (p *Poller) loop(ctx context.Context) error {
	defer close(p.done)

	// Keep the scan loop on one thread for cache locality
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	p.logger.Info("Scan loop started")
	defer func() {
		p.logger.Info("Scan loop stopped",
			zap.Uint64("passes", p.passes.Load()),
			zap.Uint64("delivered", p.mux.Delivered()),
			zap.Uint64("dropped", p.mux.Dropped()))
	}()

	for {
		select {
		case <-p.stopChan:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n := p.mux.ScanBuffers()
		p.passes.Add(1)
		p.idle.Idle(n)
	}
}
