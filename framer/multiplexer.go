package framer

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"fix-gateway/metrics"
)

// Option configures a Multiplexer
type Option func(*Multiplexer)

func WithLogger(l *zap.Logger) Option {
	return func(m *Multiplexer) { m.logger = l }
}

// WithMetrics records scan passes, deliveries, drops and the registry size
func WithMetrics(fm *metrics.Framer) Option {
	return func(m *Multiplexer) { m.metrics = fm }
}

// Multiplexer routes framed messages to the sender endpoint of the
// connection they arrived on. Messages for a connection with no endpoint
// are dropped and counted.
//
// Registry and source list are immutable snapshots behind atomic.Value:
//   - The scan thread reads them with a single atomic load, no locks
//   - Registration copies the snapshot under a mutex and swaps it in, so it
//     may run on any goroutine
//   - Registrations are rare next to lookups (one per connection against
//     one per message)
//
// There is no removal: connection teardown belongs to whoever owns the
// connection, and a late message for a replaced connection reaches the
// replacement.
type Multiplexer struct {
	endpoints atomic.Value // map[int64]SenderEndPoint
	sources   atomic.Value // []MessageSource
	mu        sync.Mutex   // serializes writers of both snapshots

	delivered atomic.Uint64
	dropped   atomic.Uint64

	// scan thread only
	pass              scanPass
	observedDelivered uint64
	observedDropped   uint64

	logger  *zap.Logger
	metrics *metrics.Framer
}

// NewMultiplexer creates a multiplexer scanning sources in order
func NewMultiplexer(sources []MessageSource, opts ...Option) *Multiplexer {
	m := &Multiplexer{logger: zap.NewNop()}
	m.pass.m = m
	for _, opt := range opts {
		opt(m)
	}
	m.endpoints.Store(make(map[int64]SenderEndPoint))
	m.sources.Store(append([]MessageSource(nil), sources...))
	return m
}

// OnNewConnection registers endpoint for connectionID. A second
// registration for the same id replaces the first.
func (m *Multiplexer) OnNewConnection(connectionID int64, endpoint SenderEndPoint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	endpoints := m.endpoints.Load().(map[int64]SenderEndPoint)
	_, replaced := endpoints[connectionID]

	// Copy-on-write: the scan thread may still be reading the old map
	next := make(map[int64]SenderEndPoint, len(endpoints)+1)
	for k, v := range endpoints {
		next[k] = v
	}
	next[connectionID] = endpoint
	m.endpoints.Store(next)

	m.metrics.SetConnections(len(next))
	m.logger.Info("Registered connection",
		zap.Int64("connection_id", connectionID),
		zap.Bool("replaced", replaced),
		zap.Int("connections", len(next)))
}

// AddSource appends a source to the scan order. Like registration it may be
// called from any goroutine; the source is picked up by the next scan.
func (m *Multiplexer) AddSource(source MessageSource) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sources := m.sources.Load().([]MessageSource)
	next := make([]MessageSource, len(sources), len(sources)+1)
	copy(next, sources)
	m.sources.Store(append(next, source))
}

// OnMessage delivers one framed message to the endpoint registered for
// connectionID, or drops it when there is none.
// Performance: one atomic load and one map lookup per message
func (m *Multiplexer) OnMessage(buf []byte, offset, length int, connectionID int64) {
	m.route(buf, offset, length, connectionID)
}

func (m *Multiplexer) route(buf []byte, offset, length int, connectionID int64) bool {
	endpoints := m.endpoints.Load().(map[int64]SenderEndPoint)
	endpoint, ok := endpoints[connectionID]
	if !ok {
		m.dropped.Add(1)
		if ce := m.logger.Check(zap.DebugLevel, "Dropped message for unknown connection"); ce != nil {
			ce.Write(zap.Int64("connection_id", connectionID), zap.Int("length", length))
		}
		return false
	}
	endpoint.OnFramedMessage(buf, offset, length)
	m.delivered.Add(1)
	return true
}

// scanPass is the handler sources drain into during ScanBuffers. It counts
// the deliveries of one pass only.
type scanPass struct {
	m         *Multiplexer
	delivered int
}

func (p *scanPass) OnMessage(buf []byte, offset, length int, connectionID int64) {
	if p.m.route(buf, offset, length, connectionID) {
		p.delivered++
	}
}

// ScanBuffers drains every source once and returns the number of messages
// those sources delivered to endpoints during the call. It never blocks:
// sources with nothing pending contribute zero. Only one goroutine may scan.
func (m *Multiplexer) ScanBuffers() int {
	m.pass.delivered = 0
	for _, source := range m.sources.Load().([]MessageSource) {
		source.DrainTo(&m.pass)
	}
	delivered := m.delivered.Load()
	dropped := m.dropped.Load()

	m.metrics.ObserveScan(int(delivered-m.observedDelivered), int(dropped-m.observedDropped))
	m.observedDelivered = delivered
	m.observedDropped = dropped

	return m.pass.delivered
}

// Delivered is the total number of messages handed to an endpoint
func (m *Multiplexer) Delivered() uint64 {
	return m.delivered.Load()
}

// Dropped is the total number of messages with no registered endpoint
func (m *Multiplexer) Dropped() uint64 {
	return m.dropped.Load()
}

// Connections returns the number of registered connections
func (m *Multiplexer) Connections() int {
	return len(m.endpoints.Load().(map[int64]SenderEndPoint))
}
