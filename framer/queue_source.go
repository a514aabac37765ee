package framer

import (
	"github.com/eapache/queue"
)

type pendingMessage struct {
	connectionID int64
	buf          []byte
	offset       int
	length       int
}

// QueueSource is an unbounded FIFO of framed messages for callers that
// enqueue on the scan thread itself, such as loopback connections and
// tests. It is not safe for concurrent use.
type QueueSource struct {
	pending *queue.Queue
}

func NewQueueSource() *QueueSource {
	return &QueueSource{pending: queue.New()}
}

// Enqueue appends a message. buf must stay untouched until it is drained.
func (q *QueueSource) Enqueue(connectionID int64, buf []byte, offset, length int) {
	q.pending.Add(&pendingMessage{connectionID: connectionID, buf: buf, offset: offset, length: length})
}

// DrainTo hands every message queued before the call to handler. Messages
// enqueued by handler itself wait for the next drain.
func (q *QueueSource) DrainTo(handler MessageHandler) int {
	n := q.pending.Length()
	for i := 0; i < n; i++ {
		m := q.pending.Remove().(*pendingMessage)
		handler.OnMessage(m.buf, m.offset, m.length, m.connectionID)
	}
	return n
}

func (q *QueueSource) Len() int {
	return q.pending.Length()
}
