package framer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestPollerDeliversUntilStopped(t *testing.T) {
	ring, err := NewRingSource(64, 0)
	require.NoError(t, err)
	mux := NewMultiplexer([]MessageSource{ring})
	e := &recorder{}
	mux.OnNewConnection(1, e)

	core, logs := observer.New(zapcore.InfoLevel)
	p := NewPoller(mux, WithIdleStrategy(Yielding{}), WithPollerLogger(zap.New(core)))
	p.Start()
	p.Start()

	msg := heartbeat(1)
	for i := 0; i < 10; i++ {
		require.True(t, ring.TryPublish(1, msg, 0, len(msg)))
	}
	ok := waitForCondition(func() bool { return e.count() == 10 }, 5*time.Second, time.Millisecond)
	require.True(t, ok, "delivered %d of 10", e.count())

	p.Stop()
	p.Stop()
	assert.Greater(t, p.Passes(), uint64(0))

	stopped := logs.FilterMessage("Scan loop stopped").All()
	require.Len(t, stopped, 1)
	assert.Equal(t, uint64(10), stopped[0].ContextMap()["delivered"])
}

func TestPollerRunReturnsOnCancel(t *testing.T) {
	mux := NewMultiplexer([]MessageSource{NewQueueSource()})
	p := NewPoller(mux, WithIdleStrategy(NewBackoff(100*time.Microsecond)))

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- p.Run(ctx) }()

	ok := waitForCondition(func() bool { return p.Passes() > 0 }, 5*time.Second, time.Millisecond)
	require.True(t, ok)
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.ErrorIs(t, p.Run(context.Background()), ErrPollerStarted)
	p.Stop()
}

func TestPollerRunReturnsNilOnStop(t *testing.T) {
	p := NewPoller(NewMultiplexer(nil), WithIdleStrategy(BusySpin{}))

	errc := make(chan error, 1)
	go func() { errc <- p.Run(context.Background()) }()
	ok := waitForCondition(func() bool { return p.Passes() > 0 }, 5*time.Second, time.Millisecond)
	require.True(t, ok)

	p.Stop()
	assert.NoError(t, <-errc)
}

func TestStopWithoutStart(t *testing.T) {
	p := NewPoller(NewMultiplexer(nil))
	p.Stop()
	assert.Equal(t, uint64(0), p.Passes())
}

func TestIdleStrategyByName(t *testing.T) {
	s, err := IdleStrategyByName("spin", 0)
	require.NoError(t, err)
	assert.IsType(t, BusySpin{}, s)

	s, err = IdleStrategyByName("yield", 0)
	require.NoError(t, err)
	assert.IsType(t, Yielding{}, s)

	s, err = IdleStrategyByName("backoff", 5*time.Millisecond)
	require.NoError(t, err)
	require.IsType(t, &Backoff{}, s)
	assert.Equal(t, 5*time.Millisecond, s.(*Backoff).max)

	_, err = IdleStrategyByName("sleep", 0)
	assert.ErrorIs(t, err, ErrUnknownIdleStrategy)
}

func TestBackoffEscalatesAndResets(t *testing.T) {
	b := NewBackoff(8 * time.Microsecond)
	for i := 0; i < backoffSpins+backoffYields; i++ {
		b.Idle(0)
	}
	assert.Equal(t, time.Duration(0), b.sleep)

	for i := 0; i < 10; i++ {
		b.Idle(0)
	}
	assert.Equal(t, 8*time.Microsecond, b.sleep)

	b.Idle(1)
	assert.Zero(t, b.spins)
	assert.Zero(t, b.yields)
	assert.Zero(t, b.sleep)
}
