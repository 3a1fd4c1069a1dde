package client

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dkasten/feedlink/internal/heartbeat"
	"github.com/dkasten/feedlink/internal/queue"
	"github.com/dkasten/feedlink/internal/stats"
	"github.com/dkasten/feedlink/internal/subscription"
	"github.com/dkasten/feedlink/internal/wire"
)

// Client is a multiplexed transport client: one WebSocket connection carrying
// many logical feeds. It owns the connection state machine, the reconnect
// policy, the outbound queue, the heartbeat monitor and the stats collector.
// Failure never surfaces as a panic or an error pushed at the caller; it is
// observable through State, ConnectionError and Stats.
type Client struct {
	cfg    Config
	logger *slog.Logger

	registry  *subscription.Registry
	stats     *stats.Collector
	queue     *queue.Outbound
	heartbeat *heartbeat.Monitor

	// mu serializes all state transitions. gen invalidates stale timer and
	// read-loop callbacks after Disconnect or a handled close.
	mu             sync.Mutex
	state          State
	conn           *websocket.Conn
	gen            uint64
	attempts       int
	lastErr        string
	reconnectTimer *time.Timer
	hbEnabled      bool

	// writeMu serializes frame writes, including the flush on connect.
	writeMu sync.Mutex
}

// New creates a client in the Idle state. Nothing is dialed until Connect.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()

	c := &Client{
		cfg:       cfg,
		logger:    logger,
		state:     StateIdle,
		registry:  subscription.NewRegistry(),
		stats:     stats.NewCollector(),
		queue:     queue.NewOutbound(cfg.MessageQueueSize),
		hbEnabled: true,
	}
	c.heartbeat = heartbeat.NewMonitor(c.transmit, c.stats, logger)
	return c
}

// Connect dials the configured URL. It is a no-op while a connection attempt
// is in flight or a connection is open. Calling Connect from Failed resets
// the attempt counter and tries again. The returned error reflects only this
// dial; when auto-reconnect is enabled a failed dial still schedules retries.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateConnected {
		c.mu.Unlock()
		return nil
	}
	c.cancelReconnectTimerLocked()
	c.gen++
	c.attempts = 0
	gen := c.gen
	c.mu.Unlock()

	return c.dial(gen)
}

// Disconnect tears everything down from any state: pending reconnect timer
// first, then the heartbeat, then the transport. No callback fires afterwards.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.gen++
	c.cancelReconnectTimerLocked()
	conn := c.conn
	c.conn = nil
	c.attempts = 0
	c.lastErr = ""
	c.setStateLocked(StateIdle)
	writeTimeout := c.cfg.WriteTimeout
	c.mu.Unlock()

	c.heartbeat.Stop()

	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout),
		)
		conn.Close()
	}
}

// Reconnect is Disconnect followed by Connect.
func (c *Client) Reconnect() error {
	c.Disconnect()
	return c.Connect()
}

// dial performs one connection attempt. gen must be the generation captured
// when the attempt was decided; a stale generation means Disconnect won.
func (c *Client) dial(gen uint64) error {
	c.mu.Lock()
	if gen != c.gen || c.state == StateConnecting || c.state == StateConnected {
		c.mu.Unlock()
		return nil
	}
	c.setStateLocked(StateConnecting)
	cfg := c.cfg
	c.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
		Subprotocols:     cfg.Subprotocols,
	}

	conn, _, err := dialer.Dial(cfg.URL, nil)
	if err != nil {
		c.handleFailure(gen, fmt.Sprintf("connect %s: %v", cfg.URL, err))
		return err
	}

	c.mu.Lock()
	if gen != c.gen || c.state != StateConnecting {
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.attempts = 0
	c.lastErr = ""
	c.setStateLocked(StateConnected)
	readGen := c.gen
	pending := c.queue.Drain()
	startHeartbeat := c.hbEnabled && c.cfg.HeartbeatInterval > 0
	interval := c.cfg.HeartbeatInterval
	c.mu.Unlock()

	c.logger.Info("connected", "url", cfg.URL, "queued", len(pending))

	// Flush in enqueue order. The queue is empty from here on; a message
	// that fails to transmit is not re-queued.
	for _, env := range pending {
		if err := c.transmit(env); err != nil {
			c.logger.Warn("flush failed", "type", env.Type, "error", err)
		}
	}

	go c.readLoop(conn, readGen)

	if startHeartbeat {
		c.heartbeat.Start(interval)
	}

	return nil
}

// readLoop delivers frames until the connection dies, then hands the close
// to the state machine.
func (c *Client) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if isCleanClose(err) {
				c.handleCleanClose(gen)
			} else {
				c.handleFailure(gen, err.Error())
			}
			return
		}
		c.handleFrame(data)
	}
}

// handleFrame processes one inbound frame: stats, parse, heartbeat match,
// dispatch. A malformed frame is dropped and counted; it never tears down
// the connection.
func (c *Client) handleFrame(data []byte) {
	c.stats.RecordReceived(len(data))

	env, err := wire.Parse(data)
	if err != nil {
		c.stats.RecordParseError()
		c.logger.Warn("dropping malformed frame", "error", err)
		return
	}

	if env.Type == wire.TypePong {
		c.heartbeat.HandlePong(env.Payload)
	}

	c.registry.Dispatch(env)
}

// handleCleanClose transitions Connected -> Idle without reconnecting.
func (c *Client) handleCleanClose(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.conn = nil
	c.attempts = 0
	c.lastErr = ""
	c.setStateLocked(StateIdle)
	c.mu.Unlock()

	c.heartbeat.Stop()
	c.logger.Info("connection closed cleanly")
}

// handleFailure records an unclean close or failed dial and decides between
// Idle (auto-reconnect off), Reconnecting and Failed.
func (c *Client) handleFailure(gen uint64, msg string) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.gen++
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.lastErr = msg

	if !c.cfg.EnableAutoReconnect {
		c.setStateLocked(StateIdle)
		c.mu.Unlock()
		c.heartbeat.Stop()
		c.logger.Warn("connection lost, auto-reconnect disabled", "error", msg)
		return
	}

	c.attempts++
	if c.attempts >= c.cfg.ReconnectAttempts {
		c.setStateLocked(StateFailed)
		c.mu.Unlock()
		c.heartbeat.Stop()
		c.logger.Error("reconnect attempts exhausted",
			"attempts", c.cfg.ReconnectAttempts,
			"error", msg,
		)
		return
	}

	c.stats.RecordReconnection()
	c.setStateLocked(StateReconnecting)
	attempt := c.attempts
	retryGen := c.gen
	delay := c.cfg.ReconnectInterval
	c.reconnectTimer = time.AfterFunc(delay, func() { c.retry(retryGen) })
	c.mu.Unlock()

	c.heartbeat.Stop()
	c.logger.Warn("connection lost, scheduling reconnect",
		"attempt", attempt,
		"delay", delay,
		"error", msg,
	)
}

// retry re-enters Connecting when the reconnect timer fires.
func (c *Client) retry(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state != StateReconnecting {
		c.mu.Unlock()
		return
	}
	attempt := c.attempts
	c.mu.Unlock()

	c.logger.Info("attempting reconnection", "attempt", attempt)
	c.dial(gen)
}

// cancelReconnectTimerLocked stops a pending reconnect timer. mu must be held.
func (c *Client) cancelReconnectTimerLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

// setStateLocked transitions the state machine. mu must be held.
func (c *Client) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.logger.Debug("state transition", "from", c.state, "to", s)
	c.state = s
}

// Send transmits an envelope when connected, otherwise enqueues it for the
// next connection. A full queue drops the new message (drop-newest) and
// counts it in stats; from the caller's point of view Send still succeeds.
// A transmit error is returned for visibility but the close handling is
// driven by the read loop, not by the caller.
func (c *Client) Send(env *wire.Envelope) error {
	c.mu.Lock()
	if c.state != StateConnected {
		if !c.queue.Push(env) {
			c.stats.RecordDropped()
			c.logger.Warn("outbound queue full, dropping message", "type", env.Type)
		}
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	return c.transmit(env)
}

// SendTyped builds an envelope from a type and payload and sends it.
func (c *Client) SendTyped(msgType string, payload interface{}) error {
	env, err := wire.New(msgType, payload)
	if err != nil {
		return err
	}
	return c.Send(env)
}

// SubscribeFeed asks the server to start streaming a feed. This is the wire
// convention for server-side feed selection; pair it with Subscribe to
// receive the frames locally.
func (c *Client) SubscribeFeed(channel, symbol string) error {
	return c.SendTyped(wire.TypeSubscribe, wire.SubscribeRequest{Channel: channel, Symbol: symbol})
}

// UnsubscribeFeed asks the server to stop streaming a feed.
func (c *Client) UnsubscribeFeed(channel, symbol string) error {
	return c.SendTyped(wire.TypeUnsubscribe, wire.SubscribeRequest{Channel: channel, Symbol: symbol})
}

// transmit serializes and writes one envelope. Fails when not connected.
func (c *Client) transmit(env *wire.Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected
	writeTimeout := c.cfg.WriteTimeout
	c.mu.Unlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}

	c.stats.RecordSent(len(data))
	return nil
}

// Subscribe registers a local handler for a channel ("*" matches every type)
// and returns the subscription id plus an idempotent cancel func.
func (c *Client) Subscribe(channel string, handler subscription.Handler, filter subscription.Filter) (string, func()) {
	return c.registry.Subscribe(channel, handler, filter)
}

// Unsubscribe removes a local subscription by id.
func (c *Client) Unsubscribe(id string) {
	c.registry.Unsubscribe(id)
}

// EnableHeartbeat starts (or retunes) the heartbeat. A non-positive interval
// falls back to the configured one. When not connected, the heartbeat starts
// on the next successful connect.
func (c *Client) EnableHeartbeat(interval time.Duration) {
	c.mu.Lock()
	if interval <= 0 {
		interval = c.cfg.HeartbeatInterval
	}
	if interval <= 0 {
		interval = DefaultConfig().HeartbeatInterval
	}
	c.cfg.HeartbeatInterval = interval
	c.hbEnabled = true
	connected := c.state == StateConnected
	c.mu.Unlock()

	if connected {
		c.heartbeat.Start(interval)
	}
}

// DisableHeartbeat stops the heartbeat until EnableHeartbeat is called again.
func (c *Client) DisableHeartbeat() {
	c.mu.Lock()
	c.hbEnabled = false
	c.mu.Unlock()

	c.heartbeat.Stop()
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the transport is open.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// IsConnecting reports whether a connection attempt is in flight.
func (c *Client) IsConnecting() bool {
	return c.State() == StateConnecting
}

// ConnectionError returns the most recent connection failure, or "" when
// there is none. It clears on successful connect, clean close and Disconnect.
func (c *Client) ConnectionError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Stats returns a snapshot of the usage counters.
func (c *Client) Stats() stats.Snapshot {
	return c.stats.Snapshot()
}

// Latency returns the most recent heartbeat round trip.
func (c *Client) Latency() time.Duration {
	return c.stats.Latency()
}

// Healthy reports the liveness heuristic: connected and inbound traffic seen
// within two heartbeat intervals.
func (c *Client) Healthy() bool {
	return c.heartbeat.Healthy(c.IsConnected())
}

// MissedPongs returns how many heartbeat probes went unanswered before the
// next probe replaced them.
func (c *Client) MissedPongs() int64 {
	return c.heartbeat.Missed()
}

// Queued returns the number of envelopes waiting for the next connection.
func (c *Client) Queued() int {
	return c.queue.Len()
}

// isCleanClose reports whether the read error represents a deliberate close.
func isCleanClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
