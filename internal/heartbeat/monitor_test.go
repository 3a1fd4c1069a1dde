package heartbeat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dkasten/feedlink/internal/stats"
	"github.com/dkasten/feedlink/internal/wire"
)

// capturePings returns a send func that forwards ping envelopes to a channel.
func capturePings(ch chan *wire.Envelope) SendFunc {
	return func(env *wire.Envelope) error {
		select {
		case ch <- env:
		default:
		}
		return nil
	}
}

func waitForPing(t *testing.T, ch chan *wire.Envelope) wire.PingPayload {
	t.Helper()
	select {
	case env := <-ch:
		if env.Type != wire.TypePing {
			t.Fatalf("sent envelope type = %q, want ping", env.Type)
		}
		var p wire.PingPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			t.Fatalf("ping payload not valid: %v", err)
		}
		if p.ID == "" {
			t.Fatal("ping payload missing id")
		}
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ping")
		return wire.PingPayload{}
	}
}

func TestMonitor_SendsPings(t *testing.T) {
	pings := make(chan *wire.Envelope, 10)
	m := NewMonitor(capturePings(pings), stats.NewCollector(), nil)

	m.Start(20 * time.Millisecond)
	defer m.Stop()

	first := waitForPing(t, pings)
	second := waitForPing(t, pings)

	if first.ID == second.ID {
		t.Error("consecutive probes share an id, want unique ids")
	}
}

func TestMonitor_MatchingPongRecordsLatency(t *testing.T) {
	pings := make(chan *wire.Envelope, 10)
	collector := stats.NewCollector()
	m := NewMonitor(capturePings(pings), collector, nil)

	m.Start(20 * time.Millisecond)
	defer m.Stop()

	p := waitForPing(t, pings)

	pong, _ := json.Marshal(wire.PongPayload{ID: p.ID, Timestamp: time.Now().UnixMilli()})
	m.HandlePong(pong)

	if collector.Latency() <= 0 {
		t.Errorf("Latency = %v, want > 0", collector.Latency())
	}
}

func TestMonitor_MismatchedPongIgnored(t *testing.T) {
	pings := make(chan *wire.Envelope, 10)
	collector := stats.NewCollector()
	m := NewMonitor(capturePings(pings), collector, nil)

	m.Start(20 * time.Millisecond)
	defer m.Stop()

	waitForPing(t, pings)

	pong, _ := json.Marshal(wire.PongPayload{ID: "not-the-probe", Timestamp: time.Now().UnixMilli()})
	m.HandlePong(pong)

	if collector.Latency() != 0 {
		t.Errorf("Latency = %v, want 0 for mismatched pong", collector.Latency())
	}
}

func TestMonitor_MalformedPongIgnored(t *testing.T) {
	m := NewMonitor(func(*wire.Envelope) error { return nil }, stats.NewCollector(), nil)
	m.HandlePong(json.RawMessage(`{"id":`)) // must not panic
}

func TestMonitor_MissedProbes(t *testing.T) {
	pings := make(chan *wire.Envelope, 10)
	m := NewMonitor(capturePings(pings), stats.NewCollector(), nil)

	m.Start(10 * time.Millisecond)
	defer m.Stop()

	// Never answer; each new tick overwrites the outstanding probe.
	waitForPing(t, pings)
	waitForPing(t, pings)
	waitForPing(t, pings)

	if m.Missed() < 1 {
		t.Errorf("Missed = %d, want >= 1", m.Missed())
	}
}

func TestMonitor_StopIsIdempotent(t *testing.T) {
	m := NewMonitor(func(*wire.Envelope) error { return nil }, stats.NewCollector(), nil)

	m.Start(10 * time.Millisecond)
	m.Stop()
	m.Stop() // second call is a no-op

	// Stop before Start is also fine
	m2 := NewMonitor(func(*wire.Envelope) error { return nil }, stats.NewCollector(), nil)
	m2.Stop()
}

func TestMonitor_Healthy(t *testing.T) {
	collector := stats.NewCollector()
	m := NewMonitor(func(*wire.Envelope) error { return nil }, collector, nil)

	m.Start(50 * time.Millisecond)
	defer m.Stop()

	// No inbound traffic yet
	if m.Healthy(true) {
		t.Error("Healthy = true before any inbound frame")
	}

	collector.RecordReceived(10)
	if !m.Healthy(true) {
		t.Error("Healthy = false right after an inbound frame")
	}

	// Disconnected is never healthy
	if m.Healthy(false) {
		t.Error("Healthy = true while disconnected")
	}

	// Let the 2x interval window lapse without traffic
	time.Sleep(120 * time.Millisecond)
	if m.Healthy(true) {
		t.Error("Healthy = true after the liveness window lapsed")
	}
}
