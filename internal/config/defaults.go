package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultReconnectAttempts = 5
	DefaultReconnectInterval = 3 * time.Second
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultMessageQueueSize  = 100
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
)

func (c *Config) applyDefaults() {
	if c.Transport.ReconnectAttempts == 0 {
		c.Transport.ReconnectAttempts = DefaultReconnectAttempts
	}
	if c.Transport.ReconnectInterval == 0 {
		c.Transport.ReconnectInterval = DefaultReconnectInterval
	}
	if c.Transport.HeartbeatInterval == 0 {
		c.Transport.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Transport.MessageQueueSize == 0 {
		c.Transport.MessageQueueSize = DefaultMessageQueueSize
	}
	if c.Transport.HandshakeTimeout == 0 {
		c.Transport.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Transport.WriteTimeout == 0 {
		c.Transport.WriteTimeout = DefaultWriteTimeout
	}
}
