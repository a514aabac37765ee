package framer

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"fix-gateway/metrics"
)

func TestExactRouting(t *testing.T) {
	queue := NewQueueSource()
	mux := NewMultiplexer([]MessageSource{queue})
	e1, e2 := &recorder{}, &recorder{}
	mux.OnNewConnection(1, e1)
	mux.OnNewConnection(2, e2)

	msg := heartbeat(1)
	queue.Enqueue(1, msg, 0, len(msg))

	assert.Equal(t, 1, mux.ScanBuffers())
	assert.Equal(t, []string{string(msg)}, e1.received())
	assert.Equal(t, 0, e2.count())

	queue.Enqueue(2, msg, 0, len(msg))
	queue.Enqueue(2, msg, 0, len(msg))
	assert.Equal(t, 2, mux.ScanBuffers())
	assert.Equal(t, 1, e1.count())
	assert.Equal(t, 2, e2.count())
	assert.Equal(t, uint64(3), mux.Delivered())
}

func TestOffsetViewIsForwarded(t *testing.T) {
	queue := NewQueueSource()
	mux := NewMultiplexer([]MessageSource{queue})
	e := &recorder{}
	mux.OnNewConnection(7, e)

	msg := heartbeat(1)
	buf := append([]byte("junk"), msg...)
	queue.Enqueue(7, buf, 4, len(msg))

	mux.ScanBuffers()
	assert.Equal(t, []string{string(msg)}, e.received())
}

func TestMissIsDroppedSilently(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	queue := NewQueueSource()
	mux := NewMultiplexer([]MessageSource{queue}, WithLogger(zap.New(core)))
	e := &recorder{}
	mux.OnNewConnection(1, e)

	msg := heartbeat(1)
	queue.Enqueue(99, msg, 0, len(msg))

	assert.NotPanics(t, func() {
		assert.Equal(t, 0, mux.ScanBuffers())
	})
	assert.Equal(t, 0, e.count())
	assert.Equal(t, uint64(1), mux.Dropped())
	assert.Equal(t, uint64(0), mux.Delivered())

	dropped := logs.FilterMessage("Dropped message for unknown connection").All()
	require.Len(t, dropped, 1)
	assert.Equal(t, int64(99), dropped[0].ContextMap()["connection_id"])
}

func TestMissIsNotLoggedAboveDebug(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	queue := NewQueueSource()
	mux := NewMultiplexer([]MessageSource{queue}, WithLogger(zap.New(core)))

	msg := heartbeat(1)
	queue.Enqueue(5, msg, 0, len(msg))
	mux.ScanBuffers()

	assert.Equal(t, uint64(1), mux.Dropped())
	assert.Equal(t, 0, logs.FilterMessage("Dropped message for unknown connection").Len())
}

func TestScanBuffersIsASinglePass(t *testing.T) {
	msg := heartbeat(1)
	a := &stubSource{connectionID: 1, msg: msg}
	b := &stubSource{connectionID: 2, msg: msg}
	mux := NewMultiplexer([]MessageSource{a, b})
	mux.OnNewConnection(1, &recorder{})

	// b's message is dropped so only a's counts
	assert.Equal(t, 1, mux.ScanBuffers())
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)

	assert.Equal(t, 1, mux.ScanBuffers())
	assert.Equal(t, 2, a.calls)
	assert.Equal(t, 2, b.calls)
}

func TestScanBuffersWithNothingPending(t *testing.T) {
	mux := NewMultiplexer([]MessageSource{NewQueueSource(), NewQueueSource()})
	assert.Equal(t, 0, mux.ScanBuffers())

	empty := NewMultiplexer(nil)
	assert.Equal(t, 0, empty.ScanBuffers())
}

func TestLastRegistrationWins(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	queue := NewQueueSource()
	mux := NewMultiplexer([]MessageSource{queue}, WithLogger(zap.New(core)))
	first, second := &recorder{}, &recorder{}
	mux.OnNewConnection(1, first)
	mux.OnNewConnection(1, second)

	msg := heartbeat(1)
	queue.Enqueue(1, msg, 0, len(msg))
	mux.ScanBuffers()

	assert.Equal(t, 0, first.count())
	assert.Equal(t, 1, second.count())
	assert.Equal(t, 1, mux.Connections())

	registered := logs.FilterMessage("Registered connection").All()
	require.Len(t, registered, 2)
	assert.Equal(t, false, registered[0].ContextMap()["replaced"])
	assert.Equal(t, true, registered[1].ContextMap()["replaced"])
}

func TestAddSourceJoinsNextScan(t *testing.T) {
	mux := NewMultiplexer(nil)
	e := &recorder{}
	mux.OnNewConnection(3, e)

	queue := NewQueueSource()
	msg := heartbeat(1)
	queue.Enqueue(3, msg, 0, len(msg))
	mux.AddSource(queue)

	assert.Equal(t, 1, mux.ScanBuffers())
	assert.Equal(t, 1, e.count())
}

func TestSenderEndPointFunc(t *testing.T) {
	queue := NewQueueSource()
	mux := NewMultiplexer([]MessageSource{queue})
	var got int
	mux.OnNewConnection(1, SenderEndPointFunc(func(buf []byte, offset, length int) {
		got += length
	}))

	msg := heartbeat(1)
	queue.Enqueue(1, msg, 0, len(msg))
	mux.ScanBuffers()
	assert.Equal(t, len(msg), got)
}

func TestRegistrationDuringScans(t *testing.T) {
	const connections = 64
	ring, err := NewRingSource(1024, 0)
	require.NoError(t, err)
	mux := NewMultiplexer([]MessageSource{ring})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for id := int64(0); id < connections; id++ {
			mux.OnNewConnection(id, &recorder{})
		}
	}()

	msg := heartbeat(1)
	for mux.Connections() < connections {
		ring.TryPublish(0, msg, 0, len(msg))
		mux.ScanBuffers()
	}
	wg.Wait()

	assert.Equal(t, connections, mux.Connections())
	assert.Equal(t, 0, ring.Len())
}

func TestScanMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	fm := metrics.NewFramer(reg, "test")
	queue := NewQueueSource()
	mux := NewMultiplexer([]MessageSource{queue}, WithMetrics(fm))
	mux.OnNewConnection(1, &recorder{})
	mux.OnNewConnection(2, &recorder{})

	msg := heartbeat(1)
	queue.Enqueue(1, msg, 0, len(msg))
	queue.Enqueue(2, msg, 0, len(msg))
	queue.Enqueue(3, msg, 0, len(msg))
	mux.ScanBuffers()

	// direct deliveries are picked up by the next pass
	mux.OnMessage(msg, 0, len(msg), 1)
	mux.ScanBuffers()

	assert.Equal(t, float64(3), testutil.ToFloat64(fm.Dispatched))
	assert.Equal(t, float64(1), testutil.ToFloat64(fm.Dropped))
	assert.Equal(t, float64(2), testutil.ToFloat64(fm.Scans))
	assert.Equal(t, float64(2), testutil.ToFloat64(fm.Connections))
}

// sideDelivery has another goroutine deliver directly while it drains
type sideDelivery struct {
	mux *Multiplexer
	msg []byte
}

func (s *sideDelivery) DrainTo(handler MessageHandler) int {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.mux.OnMessage(s.msg, 0, len(s.msg), 1)
	}()
	<-done
	handler.OnMessage(s.msg, 0, len(s.msg), 1)
	return 1
}

func TestScanBuffersCountsOnlyItsOwnDeliveries(t *testing.T) {
	msg := heartbeat(1)
	source := &sideDelivery{msg: msg}
	mux := NewMultiplexer([]MessageSource{source})
	source.mux = mux
	e := &recorder{}
	mux.OnNewConnection(1, e)

	assert.Equal(t, 1, mux.ScanBuffers())
	assert.Equal(t, uint64(2), mux.Delivered())
	assert.Equal(t, 2, e.count())

	// a direct delivery between scans is not credited to the next one
	mux.OnMessage(msg, 0, len(msg), 1)
	assert.Equal(t, 1, mux.ScanBuffers())
	assert.Equal(t, uint64(4), mux.Delivered())
}
