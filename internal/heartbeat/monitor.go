// Package heartbeat probes connection liveness and samples round-trip latency.
package heartbeat

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dkasten/feedlink/internal/stats"
	"github.com/dkasten/feedlink/internal/wire"
)

// SendFunc transmits a ping envelope. It should fail rather than buffer when
// the transport is down.
type SendFunc func(*wire.Envelope) error

// pendingPing is the single outstanding probe. A new tick overwrites it; the
// overwritten probe's latency is never recorded.
type pendingPing struct {
	id     string
	sentAt time.Time
}

// Monitor sends application-level ping envelopes on a fixed interval and
// matches them against inbound pongs. It does not escalate missed pongs into
// a reconnect: liveness is judged from the recency of any inbound traffic,
// and a dead-but-open socket is only detected when the transport closes.
type Monitor struct {
	logger *slog.Logger
	stats  *stats.Collector
	send   SendFunc

	mu       sync.Mutex
	interval time.Duration
	stopCh   chan struct{}
	running  bool
	pending  *pendingPing
	missed   int64
}

// NewMonitor creates a stopped monitor.
func NewMonitor(send SendFunc, collector *stats.Collector, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		logger: logger,
		stats:  collector,
		send:   send,
	}
}

// Start begins probing on the given interval. Restarting with a new interval
// replaces the previous timer.
func (m *Monitor) Start(interval time.Duration) {
	if interval <= 0 {
		return
	}

	m.mu.Lock()
	if m.running {
		close(m.stopCh)
	}
	m.interval = interval
	m.stopCh = make(chan struct{})
	m.running = true
	stopCh := m.stopCh
	m.mu.Unlock()

	go m.probeLoop(interval, stopCh)
}

// Stop cancels the probe timer. Safe to call repeatedly.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	close(m.stopCh)
	m.running = false
	m.pending = nil
}

func (m *Monitor) probeLoop(interval time.Duration, stopCh chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			m.probe()
		}
	}
}

// probe sends one ping, overwriting any outstanding probe.
func (m *Monitor) probe() {
	id := uuid.NewString()
	now := time.Now()

	env, err := wire.New(wire.TypePing, wire.PingPayload{
		ID:        id,
		Timestamp: now.UnixMilli(),
	})
	if err != nil {
		return
	}

	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	if m.pending != nil {
		m.missed++
	}
	m.pending = &pendingPing{id: id, sentAt: now}
	m.mu.Unlock()

	if err := m.send(env); err != nil {
		m.logger.Debug("failed to send ping", "error", err)
	}
}

// HandlePong matches a pong payload against the outstanding probe and records
// the round trip in stats. A pong whose id does not match is ignored.
func (m *Monitor) HandlePong(raw json.RawMessage) {
	p, err := wire.DecodePong(raw)
	if err != nil {
		m.logger.Debug("ignoring malformed pong", "error", err)
		return
	}

	m.mu.Lock()
	pending := m.pending
	if pending == nil || pending.id != p.ID {
		m.mu.Unlock()
		return
	}
	m.pending = nil
	m.mu.Unlock()

	m.stats.RecordLatency(time.Since(pending.sentAt))
}

// Healthy reports whether the connection looks usable: it must be connected
// and some inbound frame must have arrived within two probe intervals. This
// is a heuristic, not a guarantee.
func (m *Monitor) Healthy(connected bool) bool {
	if !connected {
		return false
	}

	m.mu.Lock()
	interval := m.interval
	m.mu.Unlock()
	if interval <= 0 {
		return false
	}

	last := m.stats.LastMessageTime()
	if last.IsZero() {
		return false
	}
	return time.Since(last) < 2*interval
}

// Missed returns how many probes were overwritten before a pong arrived.
func (m *Monitor) Missed() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.missed
}
