package framer

import (
	"sync/atomic"
)

// ConnectionIDs hands out unique connection ids. Uniqueness comes from the
// atomic counter alone, so it is safe to share between acceptors.
// Performance: one atomic add per id
type ConnectionIDs struct {
	counter atomic.Int64
}

// NewConnectionIDs creates a generator whose first id is start+1
func NewConnectionIDs(start int64) *ConnectionIDs {
	g := &ConnectionIDs{}
	g.counter.Store(start)
	return g
}

// Next returns the next id
func (g *ConnectionIDs) Next() int64 {
	return g.counter.Add(1)
}
