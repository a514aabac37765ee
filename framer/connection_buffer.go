package framer

import (
	"sync"

	"golang.org/x/xerrors"

	"fix-gateway/codec"
)

var (
	ErrBufferFull      = xerrors.New("connection buffer full")
	ErrMessageTooLarge = xerrors.New("message larger than connection buffer")
)

// ConnectionBuffer accumulates the raw byte stream of one connection and
// frames complete FIX messages out of it. A reader goroutine Writes what
// it receives; the scan thread drains.
//
// Once the stream stops looking like FIX the buffer discards everything it
// holds, reports the error from Err and rejects further writes: there is no
// resynchronising inside a tag=value stream.
type ConnectionBuffer struct {
	connectionID int64

	mu    sync.Mutex
	buf   []byte
	limit int
	err   error
}

// NewConnectionBuffer creates a buffer for connectionID holding at most
// limit unframed bytes. A message declaring more than limit bytes closes
// the buffer with ErrMessageTooLarge.
func NewConnectionBuffer(connectionID int64, limit int) *ConnectionBuffer {
	return &ConnectionBuffer{
		connectionID: connectionID,
		buf:          make([]byte, 0, limit),
		limit:        limit,
	}
}

func (c *ConnectionBuffer) ConnectionID() int64 {
	return c.connectionID
}

// Write appends received bytes. It accepts all of p or none of it.
func (c *ConnectionBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return 0, c.err
	}
	if len(c.buf)+len(p) > c.limit {
		return 0, xerrors.Errorf("connection %d: %d pending + %d: %w", c.connectionID, len(c.buf), len(p), ErrBufferFull)
	}
	c.buf = append(c.buf, p...)
	return len(p), nil
}

// DrainTo hands every complete message to handler, then moves the
// incomplete tail to the front of the buffer. Writers wait while handler
// runs, since the messages are views into the buffer.
func (c *ConnectionBuffer) DrainTo(handler MessageHandler) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return 0
	}

	start, count := 0, 0
	for start < len(c.buf) {
		n, err := codec.ScanFrame(c.buf, start, len(c.buf)-start)
		if err != nil {
			c.err = xerrors.Errorf("connection %d at %d: %w", c.connectionID, start, err)
			c.buf = c.buf[:0]
			return count
		}
		if n == 0 {
			// a message that can never fit would block the stream for good
			declared, _ := codec.DeclaredLength(c.buf, start, len(c.buf)-start)
			if declared > c.limit {
				c.err = xerrors.Errorf("connection %d: %d bytes declared, limit %d: %w", c.connectionID, declared, c.limit, ErrMessageTooLarge)
				c.buf = c.buf[:0]
				return count
			}
			break
		}
		handler.OnMessage(c.buf, start, n, c.connectionID)
		start += n
		count++
	}

	if start > 0 {
		c.buf = c.buf[:copy(c.buf, c.buf[start:])]
	}
	return count
}

// Buffered returns the number of bytes not yet framed
func (c *ConnectionBuffer) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}

// Err returns the framing error that closed the buffer, if any
func (c *ConnectionBuffer) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
