package config

import "time"

// Config is the root configuration for a feedlink instance.
type Config struct {
	Instance  InstanceConfig  `yaml:"instance"`
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	Feeds     []FeedConfig    `yaml:"feeds"`
}

// InstanceConfig identifies this client instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ServerConfig holds the transport endpoint. The endpoint is fixed for the
// lifetime of a connection; changing it requires a disconnect/connect cycle.
type ServerConfig struct {
	URL          string   `yaml:"url"`
	Subprotocols []string `yaml:"subprotocols"`
}

// TransportConfig holds connection lifecycle settings.
type TransportConfig struct {
	ReconnectAttempts   int           `yaml:"reconnect_attempts"`
	ReconnectInterval   time.Duration `yaml:"reconnect_interval"`
	HeartbeatInterval   time.Duration `yaml:"heartbeat_interval"`
	MessageQueueSize    int           `yaml:"message_queue_size"`
	EnableAutoReconnect *bool         `yaml:"enable_auto_reconnect"` // nil -> enabled
	HandshakeTimeout    time.Duration `yaml:"handshake_timeout"`
	WriteTimeout        time.Duration `yaml:"write_timeout"`
}

// AutoReconnect resolves the tri-state flag.
func (t TransportConfig) AutoReconnect() bool {
	return t.EnableAutoReconnect == nil || *t.EnableAutoReconnect
}

// FeedConfig names a server-side feed to request on connect.
type FeedConfig struct {
	Channel string `yaml:"channel"`
	Symbol  string `yaml:"symbol"`
}
