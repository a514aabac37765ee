package framer

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fix-gateway/codec"
)

func TestRingSourceRejectsBadSize(t *testing.T) {
	for _, size := range []int{0, -4, 3, 1000} {
		_, err := NewRingSource(size, 0)
		assert.ErrorIs(t, err, ErrRingSize, "size %d", size)
	}
}

func TestRingSourceFullAndBatch(t *testing.T) {
	ring, err := NewRingSource(4, 3)
	require.NoError(t, err)
	msg := heartbeat(1)

	for i := 0; i < 4; i++ {
		require.True(t, ring.TryPublish(int64(i), msg, 0, len(msg)))
	}
	assert.False(t, ring.TryPublish(9, msg, 0, len(msg)))
	assert.Equal(t, 4, ring.Len())
	assert.Equal(t, 4, ring.Cap())

	c := &collector{}
	assert.Equal(t, 3, ring.DrainTo(c))
	assert.Equal(t, []int64{0, 1, 2}, c.ids)

	// freed slots are reusable
	assert.True(t, ring.TryPublish(4, msg, 0, len(msg)))
	assert.Equal(t, 2, ring.DrainTo(c))
	assert.Equal(t, []int64{0, 1, 2, 3, 4}, c.ids)
	assert.Equal(t, 0, ring.DrainTo(c))
}

func TestRingSourceSingleProducerOrder(t *testing.T) {
	const total = 100000
	ring, err := NewRingSource(256, 0)
	require.NoError(t, err)
	msg := heartbeat(1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := int64(0); i < total; {
			if ring.TryPublish(i, msg, 0, len(msg)) {
				i++
			}
		}
	}()

	c := &collector{}
	for len(c.ids) < total {
		n := ring.DrainTo(c)
		assert.LessOrEqual(t, n, DefaultMaxBatch)
	}
	wg.Wait()

	for i, id := range c.ids {
		if id != int64(i) {
			t.Fatalf("message %d carried connection %d", i, id)
		}
	}
}

func TestQueueSourceDrainsSnapshot(t *testing.T) {
	queue := NewQueueSource()
	msg := heartbeat(1)
	queue.Enqueue(1, msg, 0, len(msg))
	queue.Enqueue(2, msg, 0, len(msg))

	// a handler enqueuing while draining does not extend the drain
	reentrant := &reenqueue{queue: queue}
	assert.Equal(t, 2, queue.DrainTo(reentrant))
	assert.Equal(t, 2, queue.Len())

	c := &collector{}
	assert.Equal(t, 2, queue.DrainTo(c))
	assert.Equal(t, []int64{101, 102}, c.ids)
	assert.Equal(t, 0, queue.DrainTo(c))
}

type reenqueue struct {
	queue *QueueSource
}

func (r *reenqueue) OnMessage(buf []byte, offset, length int, connectionID int64) {
	r.queue.Enqueue(connectionID+100, buf, offset, length)
}

func TestConnectionBufferFramesSplitWrites(t *testing.T) {
	cb := NewConnectionBuffer(5, 1024)
	m1, m2, m3 := heartbeat(1), heartbeat(2), heartbeat(3)
	stream := bytes.Join([][]byte{m1, m2, m3}, nil)

	c := &collector{}
	// m1 whole plus the head of m2
	cut := len(m1) + 7
	_, err := cb.Write(stream[:cut])
	require.NoError(t, err)
	assert.Equal(t, 1, cb.DrainTo(c))
	assert.Equal(t, 7, cb.Buffered())

	_, err = cb.Write(stream[cut:])
	require.NoError(t, err)
	assert.Equal(t, 2, cb.DrainTo(c))
	assert.Equal(t, 0, cb.Buffered())

	assert.Equal(t, []string{string(m1), string(m2), string(m3)}, c.msgs)
	assert.Equal(t, []int64{5, 5, 5}, c.ids)
	assert.NoError(t, cb.Err())
}

func TestConnectionBufferByteAtATime(t *testing.T) {
	cb := NewConnectionBuffer(1, 256)
	msg := heartbeat(1)
	c := &collector{}
	for i := range msg {
		_, err := cb.Write(msg[i : i+1])
		require.NoError(t, err)
		n := cb.DrainTo(c)
		if i < len(msg)-1 {
			require.Equal(t, 0, n, "framed after %d bytes", i+1)
		}
	}
	assert.Equal(t, []string{string(msg)}, c.msgs)
}

func TestConnectionBufferGarbageClosesIt(t *testing.T) {
	cb := NewConnectionBuffer(1, 256)
	good := heartbeat(1)
	_, err := cb.Write(append(append([]byte(nil), good...), "XYZ=1\x01"...))
	require.NoError(t, err)

	c := &collector{}
	assert.Equal(t, 1, cb.DrainTo(c))
	assert.ErrorIs(t, cb.Err(), codec.ErrBadBeginString)
	assert.Equal(t, 0, cb.Buffered())

	_, err = cb.Write(good)
	assert.ErrorIs(t, err, codec.ErrBadBeginString)
	assert.Equal(t, 0, cb.DrainTo(c))
}

func TestConnectionBufferLimit(t *testing.T) {
	msg := heartbeat(1)
	cb := NewConnectionBuffer(1, len(msg)+3)

	_, err := cb.Write(msg[:10])
	require.NoError(t, err)
	n, err := cb.Write(msg)
	assert.ErrorIs(t, err, ErrBufferFull)
	assert.Equal(t, 0, n)

	// a full buffer is not closed: draining makes room
	_, err = cb.Write(msg[10:])
	require.NoError(t, err)
	assert.Equal(t, 1, cb.DrainTo(&collector{}))
	_, err = cb.Write(msg)
	assert.NoError(t, err)
	assert.NoError(t, cb.Err())
}

func TestConnectionBufferRejectsMessageThatCannotFit(t *testing.T) {
	cb := NewConnectionBuffer(1, 128)
	c := &collector{}
	good := heartbeat(1)
	_, err := cb.Write(good)
	require.NoError(t, err)
	_, err = cb.Write([]byte("8=FIX.4.4\x019=999999\x0135=0\x01"))
	require.NoError(t, err)

	assert.Equal(t, 1, cb.DrainTo(c))
	assert.ErrorIs(t, cb.Err(), ErrMessageTooLarge)
	assert.Equal(t, 0, cb.Buffered())

	_, err = cb.Write(good)
	assert.ErrorIs(t, err, ErrMessageTooLarge)
	assert.Equal(t, []string{string(good)}, c.msgs)
}

func TestConnectionBuffersThroughMultiplexer(t *testing.T) {
	ids := NewConnectionIDs(0)
	a := NewConnectionBuffer(ids.Next(), 1024)
	b := NewConnectionBuffer(ids.Next(), 1024)
	mux := NewMultiplexer([]MessageSource{a, b})
	ea, eb := &recorder{}, &recorder{}
	mux.OnNewConnection(a.ConnectionID(), ea)
	mux.OnNewConnection(b.ConnectionID(), eb)

	_, _ = a.Write(heartbeat(1))
	_, _ = a.Write(heartbeat(2))
	_, _ = b.Write(heartbeat(9))

	assert.Equal(t, 3, mux.ScanBuffers())
	assert.Equal(t, []string{string(heartbeat(1)), string(heartbeat(2))}, ea.received())
	assert.Equal(t, []string{string(heartbeat(9))}, eb.received())
}

func TestConnectionIDsAreUnique(t *testing.T) {
	const workers, each = 8, 1000
	ids := NewConnectionIDs(100)

	var mu sync.Mutex
	seen := make(map[int64]bool, workers*each)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int64, 0, each)
			for i := 0; i < each; i++ {
				local = append(local, ids.Next())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				seen[id] = true
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*each)
	assert.Equal(t, int64(100+workers*each+1), ids.Next())
}
