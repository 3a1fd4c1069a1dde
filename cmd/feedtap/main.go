// feedtap connects to a feed server and streams decoded payloads to console.
// Usage: go run ./cmd/feedtap --config configs/feedlink.example.yaml
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dkasten/feedlink/internal/client"
	"github.com/dkasten/feedlink/internal/config"
	"github.com/dkasten/feedlink/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/feedlink.example.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "print full payload JSON")
	statsEvery := flag.Duration("stats", 10*time.Second, "stats print interval")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting feedtap",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"url", cfg.Server.URL,
		"feeds", len(cfg.Feeds),
	)

	cli := client.New(client.Config{
		URL:                 cfg.Server.URL,
		Subprotocols:        cfg.Server.Subprotocols,
		ReconnectAttempts:   cfg.Transport.ReconnectAttempts,
		ReconnectInterval:   cfg.Transport.ReconnectInterval,
		HeartbeatInterval:   cfg.Transport.HeartbeatInterval,
		MessageQueueSize:    cfg.Transport.MessageQueueSize,
		EnableAutoReconnect: cfg.Transport.AutoReconnect(),
		HandshakeTimeout:    cfg.Transport.HandshakeTimeout,
		WriteTimeout:        cfg.Transport.WriteTimeout,
	}, logger)

	// Tap every frame the server delivers
	cli.Subscribe("*", func(payload json.RawMessage) {
		if *verbose {
			fmt.Printf("%s\n", payload)
		}
	}, nil)

	// Print a line per frame on the configured feed channels
	for _, feed := range cfg.Feeds {
		channel := feed.Channel
		cli.Subscribe(channel, func(payload json.RawMessage) {
			fmt.Printf("[%s] %s\n", channel, truncate(payload, 120))
		}, nil)
	}

	if err := cli.Connect(); err != nil {
		logger.Error("initial connect failed", "error", err)
		// Keep running - the client retries on its own when auto-reconnect
		// is enabled.
	}

	// Ask the server for the configured feeds
	for _, feed := range cfg.Feeds {
		if err := cli.SubscribeFeed(feed.Channel, feed.Symbol); err != nil {
			logger.Warn("feed subscribe failed",
				"channel", feed.Channel,
				"symbol", feed.Symbol,
				"error", err,
			)
		}
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*statsEvery)
	defer ticker.Stop()

	for {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			cli.Disconnect()
			return

		case <-ticker.C:
			snap := cli.Stats()
			logger.Info("transport stats",
				"state", cli.State(),
				"healthy", cli.Healthy(),
				"received", snap.MessagesReceived,
				"sent", snap.MessagesSent,
				"reconnections", snap.Reconnections,
				"parse_errors", snap.ParseErrors,
				"dropped", snap.MessagesDropped,
				"latency", snap.Latency,
			)
			if errStr := cli.ConnectionError(); errStr != "" {
				logger.Warn("connection error", "error", errStr)
			}
		}
	}
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
