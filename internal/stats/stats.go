// Package stats tracks transport usage counters.
package stats

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of the collector's counters. Callers get a
// value, never a reference into the live collector.
type Snapshot struct {
	MessagesReceived int64
	MessagesSent     int64
	Reconnections    int64
	ParseErrors      int64
	MessagesDropped  int64
	BytesReceived    int64
	BytesSent        int64
	LastMessageTime  time.Time     // last inbound frame of any kind
	Latency          time.Duration // most recent ping round trip
}

// Collector accumulates counters for a single transport client. All methods
// are safe for concurrent use.
type Collector struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// RecordReceived counts one inbound frame of the given serialized size and
// refreshes LastMessageTime.
func (c *Collector) RecordReceived(size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.MessagesReceived++
	c.snap.BytesReceived += int64(size)
	c.snap.LastMessageTime = time.Now()
}

// RecordSent counts one outbound transmission of the given serialized size.
func (c *Collector) RecordSent(size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.MessagesSent++
	c.snap.BytesSent += int64(size)
}

// RecordReconnection counts one transition into the reconnecting state.
func (c *Collector) RecordReconnection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.Reconnections++
}

// RecordParseError counts one dropped malformed frame.
func (c *Collector) RecordParseError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.ParseErrors++
}

// RecordDropped counts one outbound message lost to queue overflow.
func (c *Collector) RecordDropped() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.MessagesDropped++
}

// RecordLatency sets the latency gauge from a completed ping round trip.
func (c *Collector) RecordLatency(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.Latency = d
}

// Latency returns the most recent round-trip measurement.
func (c *Collector) Latency() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.Latency
}

// LastMessageTime returns when the last inbound frame arrived.
func (c *Collector) LastMessageTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.LastMessageTime
}

// Snapshot returns a copy of all counters.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}
