package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return errors.New("server.url is required")
	}
	if !strings.HasPrefix(c.Server.URL, "ws://") && !strings.HasPrefix(c.Server.URL, "wss://") {
		return fmt.Errorf("server.url must be a ws:// or wss:// URL, got %q", c.Server.URL)
	}

	if c.Transport.ReconnectAttempts < 1 {
		return errors.New("transport.reconnect_attempts must be >= 1")
	}
	if c.Transport.ReconnectInterval <= 0 {
		return errors.New("transport.reconnect_interval must be > 0")
	}
	if c.Transport.HeartbeatInterval < 0 {
		return errors.New("transport.heartbeat_interval must be >= 0")
	}
	if c.Transport.MessageQueueSize < 1 {
		return errors.New("transport.message_queue_size must be >= 1")
	}

	for i, feed := range c.Feeds {
		if feed.Channel == "" {
			return fmt.Errorf("feeds[%d].channel is required", i)
		}
	}

	return nil
}
