package framer

import (
	"runtime"
	"time"

	"golang.org/x/xerrors"
)

var ErrUnknownIdleStrategy = xerrors.New("unknown idle strategy")

// IdleStrategy decides what the scan loop does after a pass. workCount is
// the number of messages the pass delivered.
type IdleStrategy interface {
	Idle(workCount int)
}

// BusySpin never gives up the thread: lowest latency, one core at 100%
type BusySpin struct{}

func (BusySpin) Idle(int) {}

// Yielding lets other goroutines run after an empty pass
type Yielding struct{}

func (Yielding) Idle(workCount int) {
	if workCount == 0 {
		runtime.Gosched()
	}
}

const (
	backoffSpins  = 10
	backoffYields = 5
	minBackoff    = time.Microsecond

	defaultMaxIdle = time.Millisecond
)

// Backoff spins, then yields, then sleeps for exponentially longer periods
// up to max while passes stay empty. Any delivered message resets it.
type Backoff struct {
	max    time.Duration
	spins  int
	yields int
	sleep  time.Duration
}

func NewBackoff(max time.Duration) *Backoff {
	if max < minBackoff {
		max = minBackoff
	}
	return &Backoff{max: max}
}

func (b *Backoff) Idle(workCount int) {
	if workCount > 0 {
		b.spins, b.yields, b.sleep = 0, 0, 0
		return
	}
	switch {
	case b.spins < backoffSpins:
		b.spins++
	case b.yields < backoffYields:
		b.yields++
		runtime.Gosched()
	default:
		if b.sleep == 0 {
			b.sleep = minBackoff
		} else if b.sleep < b.max {
			b.sleep = min(b.sleep*2, b.max)
		}
		time.Sleep(b.sleep)
	}
}

// IdleStrategyByName maps "spin", "yield" or "backoff" to a strategy.
// maxIdle only applies to backoff.
func IdleStrategyByName(name string, maxIdle time.Duration) (IdleStrategy, error) {
	switch name {
	case "spin":
		return BusySpin{}, nil
	case "yield":
		return Yielding{}, nil
	case "backoff":
		return NewBackoff(maxIdle), nil
	}
	return nil, xerrors.Errorf("%q: %w", name, ErrUnknownIdleStrategy)
}
