package subscription

import (
	"encoding/json"
	"testing"

	"github.com/dkasten/feedlink/internal/wire"
)

func envelope(t *testing.T, msgType string, payload interface{}) *wire.Envelope {
	t.Helper()
	env, err := wire.New(msgType, payload)
	if err != nil {
		t.Fatalf("wire.New failed: %v", err)
	}
	return env
}

func TestRegistry_ExactMatch(t *testing.T) {
	r := NewRegistry()

	calls := 0
	r.Subscribe("trades", func(json.RawMessage) { calls++ }, nil)

	r.Dispatch(envelope(t, "trades", map[string]string{"symbol": "BTC-USD"}))
	r.Dispatch(envelope(t, "quotes", nil))

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRegistry_Wildcard(t *testing.T) {
	r := NewRegistry()

	calls := 0
	r.Subscribe(Wildcard, func(json.RawMessage) { calls++ }, nil)

	r.Dispatch(envelope(t, "trades", nil))
	r.Dispatch(envelope(t, "quotes", nil))
	r.Dispatch(envelope(t, "risk_alerts", nil))

	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRegistry_MultipleOnSameChannel(t *testing.T) {
	r := NewRegistry()

	first, second := 0, 0
	r.Subscribe("orders", func(json.RawMessage) { first++ }, nil)
	r.Subscribe("orders", func(json.RawMessage) { second++ }, nil)

	r.Dispatch(envelope(t, "orders", nil))

	if first != 1 || second != 1 {
		t.Errorf("calls = (%d, %d), want (1, 1)", first, second)
	}
}

func TestRegistry_CancelIsIdempotent(t *testing.T) {
	r := NewRegistry()

	calls := 0
	_, cancel := r.Subscribe("trades", func(json.RawMessage) { calls++ }, nil)

	cancel()
	cancel() // second call is a no-op

	r.Dispatch(envelope(t, "trades", nil))

	if calls != 0 {
		t.Errorf("calls = %d, want 0 after cancel", calls)
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}

func TestRegistry_UnsubscribeUnknownID(t *testing.T) {
	r := NewRegistry()
	r.Unsubscribe("no-such-id") // must not panic
}

func TestRegistry_Filter(t *testing.T) {
	r := NewRegistry()

	calls := 0
	r.Subscribe("trades", func(json.RawMessage) { calls++ }, func(payload json.RawMessage) bool {
		var m map[string]string
		if err := json.Unmarshal(payload, &m); err != nil {
			return false
		}
		return m["symbol"] == "BTC-USD"
	})

	r.Dispatch(envelope(t, "trades", map[string]string{"symbol": "BTC-USD"}))
	r.Dispatch(envelope(t, "trades", map[string]string{"symbol": "ETH-USD"}))

	if calls != 1 {
		t.Errorf("calls = %d, want 1 (filter should suppress ETH-USD)", calls)
	}
}

func TestRegistry_UnsubscribeDuringDispatch(t *testing.T) {
	r := NewRegistry()

	calls := 0
	var cancel func()
	_, cancel = r.Subscribe("trades", func(json.RawMessage) {
		calls++
		cancel() // mutating the registry mid-dispatch must be safe
	}, nil)

	r.Dispatch(envelope(t, "trades", nil))
	r.Dispatch(envelope(t, "trades", nil))

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRegistry_SubscribeDuringDispatch(t *testing.T) {
	r := NewRegistry()

	added := 0
	r.Subscribe("trades", func(json.RawMessage) {
		r.Subscribe("trades", func(json.RawMessage) { added++ }, nil)
	}, nil)

	r.Dispatch(envelope(t, "trades", nil)) // adds a second subscription
	if added != 0 {
		t.Errorf("added = %d, want 0 (new sub must not see current dispatch)", added)
	}

	r.Dispatch(envelope(t, "trades", nil))
	if added != 1 {
		t.Errorf("added = %d, want 1", added)
	}
}

func TestRegistry_NoMatchIsSilent(t *testing.T) {
	r := NewRegistry()
	r.Dispatch(envelope(t, "unrouted", nil)) // must not panic
}
