package client

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected = errors.New("not connected")
)

// State is the connection lifecycle state. Exactly one transition happens at
// a time; all mutations go through the Client's methods and event handlers.
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

// Config configures a transport client.
type Config struct {
	URL                 string        // WebSocket URL (e.g. wss://feeds.example.com/stream)
	Subprotocols        []string      // Optional subprotocol list offered at handshake
	ReconnectAttempts   int           // Consecutive unclean closes tolerated before Failed
	ReconnectInterval   time.Duration // Fixed delay between reconnect attempts
	HeartbeatInterval   time.Duration // Ping period; 0 disables the heartbeat
	MessageQueueSize    int           // Outbound buffer capacity while disconnected
	EnableAutoReconnect bool          // When false, unclean closes never schedule a retry
	HandshakeTimeout    time.Duration // Dial deadline
	WriteTimeout        time.Duration // Write deadline per frame
}

// DefaultConfig returns sensible defaults. URL must still be set.
func DefaultConfig() Config {
	return Config{
		ReconnectAttempts:   5,
		ReconnectInterval:   3 * time.Second,
		HeartbeatInterval:   30 * time.Second,
		MessageQueueSize:    100,
		EnableAutoReconnect: true,
		HandshakeTimeout:    10 * time.Second,
		WriteTimeout:        5 * time.Second,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.ReconnectAttempts == 0 {
		c.ReconnectAttempts = def.ReconnectAttempts
	}
	if c.ReconnectInterval == 0 {
		c.ReconnectInterval = def.ReconnectInterval
	}
	if c.MessageQueueSize == 0 {
		c.MessageQueueSize = def.MessageQueueSize
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = def.WriteTimeout
	}
}
