// feedsim is a demo feed server for exercising the transport client. It
// streams simulated trade and quote envelopes, answers ping with pong, and
// honors subscribe/unsubscribe requests per connection.
// Usage: go run ./cmd/feedsim --addr :8090 --interval 500ms
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/dkasten/feedlink/internal/wire"
)

var symbols = []string{"BTC-USD", "ETH-USD", "SOL-USD", "AAPL", "TSLA"}

// feedConn is one connected client and the feeds it asked for.
type feedConn struct {
	conn *websocket.Conn

	mu   sync.Mutex
	subs map[string]struct{}
}

func (fc *feedConn) subscribed(channel string) bool {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	_, ok := fc.subs[channel]
	return ok
}

func (fc *feedConn) write(env *wire.Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return err
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return fc.conn.WriteMessage(websocket.TextMessage, data)
}

// sim owns the connection set and the publish loop.
type sim struct {
	logger   *slog.Logger
	interval time.Duration

	mu    sync.Mutex
	conns map[*feedConn]struct{}
}

func newSim(interval time.Duration, logger *slog.Logger) *sim {
	return &sim{
		logger:   logger,
		interval: interval,
		conns:    make(map[*feedConn]struct{}),
	}
}

// handle upgrades one HTTP request and serves its control messages.
func (s *sim) handle(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "error", err)
		return
	}

	fc := &feedConn{conn: conn, subs: make(map[string]struct{})}
	s.mu.Lock()
	s.conns[fc] = struct{}{}
	s.mu.Unlock()
	s.logger.Info("client connected", "remote", conn.RemoteAddr())

	defer func() {
		s.mu.Lock()
		delete(s.conns, fc)
		s.mu.Unlock()
		conn.Close()
		s.logger.Info("client disconnected", "remote", conn.RemoteAddr())
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		env, err := wire.Parse(data)
		if err != nil {
			s.logger.Warn("ignoring malformed frame", "error", err)
			continue
		}

		switch env.Type {
		case wire.TypePing:
			// Echo the probe id back so the client can match it.
			pong, err := wire.New(wire.TypePong, json.RawMessage(env.Payload))
			if err != nil {
				continue
			}
			if err := fc.write(pong); err != nil {
				return
			}

		case wire.TypeSubscribe:
			req, err := wire.DecodeSubscribeRequest(env.Payload)
			if err != nil {
				s.logger.Warn("bad subscribe request", "error", err)
				continue
			}
			fc.mu.Lock()
			fc.subs[req.Channel] = struct{}{}
			fc.mu.Unlock()
			s.logger.Info("feed subscribed", "channel", req.Channel, "symbol", req.Symbol)

		case wire.TypeUnsubscribe:
			req, err := wire.DecodeSubscribeRequest(env.Payload)
			if err != nil {
				continue
			}
			fc.mu.Lock()
			delete(fc.subs, req.Channel)
			fc.mu.Unlock()
			s.logger.Info("feed unsubscribed", "channel", req.Channel)
		}
	}
}

// publish emits one round of simulated data to every subscribed connection.
func (s *sim) publish() {
	symbol := symbols[rand.Intn(len(symbols))]
	price := 100 + rand.Float64()*900

	trade := map[string]interface{}{
		"symbol": symbol,
		"price":  price,
		"size":   1 + rand.Intn(500),
		"side":   []string{"buy", "sell"}[rand.Intn(2)],
	}
	quote := map[string]interface{}{
		"symbol": symbol,
		"bid":    price - 0.05,
		"ask":    price + 0.05,
	}

	s.mu.Lock()
	conns := make([]*feedConn, 0, len(s.conns))
	for fc := range s.conns {
		conns = append(conns, fc)
	}
	s.mu.Unlock()

	for _, fc := range conns {
		if fc.subscribed("trades") {
			if env, err := wire.New("trades", trade); err == nil {
				fc.write(env)
			}
		}
		if fc.subscribed("quotes") {
			if env, err := wire.New("quotes", quote); err == nil {
				fc.write(env)
			}
		}
	}
}

func main() {
	addr := flag.String("addr", ":8090", "listen address")
	interval := flag.Duration("interval", 500*time.Millisecond, "publish interval")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	s := newSim(*interval, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/stream", s.handle)

	server := &http.Server{Addr: *addr, Handler: mux}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("feedsim listening", "addr", *addr, "interval", *interval)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				s.publish()
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("feedsim exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("feedsim stopped")
}
