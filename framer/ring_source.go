package framer

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
	"golang.org/x/xerrors"
)

var ErrRingSize = xerrors.New("ring size must be a power of two")

// DefaultMaxBatch bounds how many messages one DrainTo call takes from a
// ring, so one busy connection cannot starve the rest of a scan pass
const DefaultMaxBatch = 128

type ringEntry struct {
	connectionID int64
	buf          []byte
	offset       int
	length       int
}

// RingSource is a single-producer, single-consumer ring of framed messages.
// The producer publishes views into its own buffers and must not reuse a
// buffer until the message has been drained.
//
// Performance:
//   - Power-of-two capacity, index by mask
//   - Producer and consumer sequences sit on separate cache lines
//   - Consumer publishes its position once per batch, not per message
type RingSource struct {
	entries  []ringEntry
	mask     int64
	maxBatch int

	_        cpu.CacheLinePad
	writeSeq atomic.Int64
	_        cpu.CacheLinePad
	readSeq  atomic.Int64
	_        cpu.CacheLinePad
}

// NewRingSource creates a ring holding size messages. maxBatch <= 0 selects
// DefaultMaxBatch.
func NewRingSource(size, maxBatch int) (*RingSource, error) {
	if size <= 0 || size&(size-1) != 0 {
		return nil, xerrors.Errorf("%d: %w", size, ErrRingSize)
	}
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	return &RingSource{
		entries:  make([]ringEntry, size),
		mask:     int64(size - 1),
		maxBatch: maxBatch,
	}, nil
}

// TryPublish enqueues a message without blocking. It reports false when the
// ring is full.
func (r *RingSource) TryPublish(connectionID int64, buf []byte, offset, length int) bool {
	seq := r.writeSeq.Load()
	if seq-r.readSeq.Load() > r.mask {
		return false
	}
	r.entries[seq&r.mask] = ringEntry{connectionID: connectionID, buf: buf, offset: offset, length: length}
	r.writeSeq.Store(seq + 1)
	return true
}

// DrainTo hands up to maxBatch published messages to handler
func (r *RingSource) DrainTo(handler MessageHandler) int {
	read := r.readSeq.Load()
	available := r.writeSeq.Load() - read
	if available == 0 {
		return 0
	}
	if available > int64(r.maxBatch) {
		available = int64(r.maxBatch)
	}

	for i := int64(0); i < available; i++ {
		e := &r.entries[(read+i)&r.mask]
		handler.OnMessage(e.buf, e.offset, e.length, e.connectionID)
		e.buf = nil
	}
	r.readSeq.Store(read + available)
	return int(available)
}

// Len returns the number of published messages not yet drained
func (r *RingSource) Len() int {
	return int(r.writeSeq.Load() - r.readSeq.Load())
}

// Cap returns the ring capacity
func (r *RingSource) Cap() int {
	return len(r.entries)
}
