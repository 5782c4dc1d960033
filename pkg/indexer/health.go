package indexer

import (
	"sync/atomic"
	"time"
)

// healthWindow is how long a successful interaction counts as "live", spec
// §4.G's `healthCheck()`: "liveness... from the last observed interaction
// within a 30-second window."
const healthWindow = 30 * time.Second

// Health is the liveness record HealthCheck returns.
type Health struct {
	WS       bool
	RPC      bool
	Database bool
}

// healthTracker records the last successful interaction time for each
// external dependency, read without locking via atomics since it's updated
// from the hot path on every successful call.
type healthTracker struct {
	lastWS  atomic.Int64
	lastRPC atomic.Int64
	lastDB  atomic.Int64
}

func newHealthTracker() *healthTracker {
	return &healthTracker{}
}

func (h *healthTracker) markWS() { h.lastWS.Store(time.Now().UnixNano()) }

func (h *healthTracker) markRPC() { h.lastRPC.Store(time.Now().UnixNano()) }

func (h *healthTracker) markDB() { h.lastDB.Store(time.Now().UnixNano()) }

func (h *healthTracker) snapshot() Health {
	now := time.Now()
	fresh := func(last *atomic.Int64) bool {
		ts := last.Load()
		if ts == 0 {
			return false
		}
		return now.Sub(time.Unix(0, ts)) <= healthWindow
	}
	return Health{
		WS:       fresh(&h.lastWS),
		RPC:      fresh(&h.lastRPC),
		Database: fresh(&h.lastDB),
	}
}
