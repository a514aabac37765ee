// Package framer moves framed FIX messages from per-connection message
// sources to the sender endpoint registered for each connection.
//
// A Multiplexer is driven by one scan thread: each ScanBuffers call makes a
// single non-blocking pass over every source. Poller runs that loop on a
// locked OS thread.
package framer

// SenderEndPoint receives the framed messages of one connection. The slice
// is only valid for the duration of the call.
type SenderEndPoint interface {
	OnFramedMessage(buf []byte, offset, length int)
}

// MessageHandler consumes framed messages tagged with the connection they
// arrived on
type MessageHandler interface {
	OnMessage(buf []byte, offset, length int, connectionID int64)
}

// MessageSource yields pending framed messages without blocking
type MessageSource interface {
	// DrainTo pushes every ready message to handler and returns how many it
	// pushed
	DrainTo(handler MessageHandler) int
}

// SenderEndPointFunc adapts a function to SenderEndPoint
type SenderEndPointFunc func(buf []byte, offset, length int)

func (f SenderEndPointFunc) OnFramedMessage(buf []byte, offset, length int) {
	f(buf, offset, length)
}
