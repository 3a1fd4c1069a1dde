package queue

import (
	"testing"

	"github.com/dkasten/feedlink/internal/wire"
)

func env(t *testing.T, msgType string) *wire.Envelope {
	t.Helper()
	e, err := wire.New(msgType, nil)
	if err != nil {
		t.Fatalf("wire.New failed: %v", err)
	}
	return e
}

func TestOutbound_FIFO(t *testing.T) {
	q := NewOutbound(10)

	a := env(t, "a")
	b := env(t, "b")
	c := env(t, "c")

	for _, e := range []*wire.Envelope{a, b, c} {
		if !q.Push(e) {
			t.Fatalf("Push(%s) rejected", e.Type)
		}
	}

	if q.Len() != 3 {
		t.Errorf("Len = %d, want 3", q.Len())
	}

	drained := q.Drain()
	if len(drained) != 3 {
		t.Fatalf("Drain returned %d envelopes, want 3", len(drained))
	}
	for i, want := range []string{"a", "b", "c"} {
		if drained[i].Type != want {
			t.Errorf("drained[%d].Type = %q, want %q", i, drained[i].Type, want)
		}
	}

	if q.Len() != 0 {
		t.Errorf("Len after Drain = %d, want 0", q.Len())
	}
}

func TestOutbound_DropNewest(t *testing.T) {
	q := NewOutbound(2)

	if !q.Push(env(t, "a")) {
		t.Fatal("Push(a) rejected")
	}
	if !q.Push(env(t, "b")) {
		t.Fatal("Push(b) rejected")
	}
	if q.Push(env(t, "c")) {
		t.Error("Push(c) accepted, want rejection at capacity")
	}

	if q.Len() != 2 {
		t.Errorf("Len = %d, want 2", q.Len())
	}

	drained := q.Drain()
	if len(drained) != 2 || drained[0].Type != "a" || drained[1].Type != "b" {
		t.Errorf("drained = [%s %s], want [a b]", drained[0].Type, drained[1].Type)
	}
}

func TestOutbound_ReuseAfterDrain(t *testing.T) {
	q := NewOutbound(2)

	q.Push(env(t, "a"))
	q.Push(env(t, "b"))
	q.Drain()

	// The ring wraps; order must still hold
	if !q.Push(env(t, "c")) {
		t.Fatal("Push(c) rejected after drain")
	}
	if !q.Push(env(t, "d")) {
		t.Fatal("Push(d) rejected after drain")
	}

	drained := q.Drain()
	if len(drained) != 2 || drained[0].Type != "c" || drained[1].Type != "d" {
		t.Fatalf("drained = %v, want [c d]", drained)
	}
}

func TestOutbound_DrainEmpty(t *testing.T) {
	q := NewOutbound(4)
	if got := q.Drain(); got != nil {
		t.Errorf("Drain on empty queue = %v, want nil", got)
	}
}

func TestNewOutbound_MinCapacity(t *testing.T) {
	q := NewOutbound(0)
	if q.Cap() != 1 {
		t.Errorf("Cap = %d, want 1", q.Cap())
	}
}
