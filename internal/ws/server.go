// Package ws is the WebSocket transport of the relay: it upgrades HTTP
// connections, assigns each one a fresh session identity, reads client frames
// in a per-connection goroutine, and exposes outbound delivery with
// retraction handles through the Outbox.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"

	"github.com/maskchat/pairbot/internal/metrics"
	"github.com/maskchat/pairbot/internal/protocol"
)

// ServerConfig holds tunable parameters for the WebSocket server.
type ServerConfig struct {
	ListenAddr     string        // address to listen on, e.g. ":8080"
	MaxConnections int           // hard cap on total connections
	WriteTimeout   time.Duration // timeout for outbound frame writes
}

// DefaultServerConfig returns a ServerConfig with production defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:     ":8080",
		MaxConnections: 100000,
		WriteTimeout:   10 * time.Second,
	}
}

// Server accepts WebSocket connections and runs one reader goroutine per
// connection. Frames are handed to the onMessage callback; connection loss is
// reported through onDisconnect after the connection is unregistered.
type Server struct {
	config       ServerConfig
	conns        *ConnectionManager
	onMessage    func(conn *Connection, data []byte)
	onDisconnect func(connID string)
	httpServer   *http.Server
	done         chan struct{}
	startedAt    time.Time
}

// NewServer creates a Server with the given configuration. Callbacks are
// attached with SetOnMessage and SetOnDisconnect before Start.
func NewServer(config ServerConfig) *Server {
	return &Server{
		config: config,
		conns:  NewConnectionManager(),
		done:   make(chan struct{}),
	}
}

// SetOnMessage registers the callback invoked with every complete text frame.
// It is called from the connection's reader goroutine.
func (s *Server) SetOnMessage(fn func(conn *Connection, data []byte)) {
	s.onMessage = fn
}

// SetOnDisconnect registers the callback invoked after a connection has been
// removed, whatever the cause: read error, close frame, heartbeat timeout, or
// shutdown.
func (s *Server) SetOnDisconnect(fn func(connID string)) {
	s.onDisconnect = fn
}

// Start configures the HTTP server and begins accepting WebSocket
// connections. It blocks on http.Server.ListenAndServe.
func (s *Server) Start() error {
	s.startedAt = time.Now()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleUpgrade)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:    s.config.ListenAddr,
		Handler: mux,
	}

	StartHeartbeat(s, DefaultHeartbeatConfig())

	log.Printf("[ws] server listening on %s (max_conns=%d)",
		s.config.ListenAddr, s.config.MaxConnections)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ws: http server error: %w", err)
	}
	return nil
}

// handleUpgrade upgrades an HTTP request to a WebSocket connection using the
// gobwas/ws zero-copy upgrader, assigns a fresh session ID, announces it to
// the client, and starts the reader goroutine.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if s.conns.Count() >= s.config.MaxConnections {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}

	c := &Connection{
		ID:        uuid.New().String(),
		Conn:      conn,
		CreatedAt: time.Now(),
	}
	c.Touch()

	s.conns.Add(c)
	metrics.ConnectionsTotal.Set(float64(s.conns.Count()))

	msg, err := protocol.NewServerMessage(protocol.TypeSessionCreated, protocol.SessionCreatedMsg{
		SessionID: c.ID,
	})
	if err != nil {
		log.Printf("[ws] build session_created session=%s: %v", c.ID, err)
	} else if err := c.WriteMessage(msg); err != nil {
		log.Printf("[ws] send session_created session=%s: %v", c.ID, err)
	}

	log.Printf("[ws] new connection session=%s (total=%d)", c.ID, s.conns.Count())

	go s.readLoop(c)
}

// readLoop reads frames from one connection until it dies. Control frames are
// handled with wsutil.NextReader so a ping or close never blocks behind a
// data frame; data frames go to the onMessage callback. The loop exits on any
// read error and removes the connection.
func (s *Server) readLoop(c *Connection) {
	defer s.RemoveConnection(c)

	for {
		header, reader, err := wsutil.NextReader(c.Conn, ws.StateServerSide)
		if err != nil {
			return
		}

		c.Touch()

		if header.OpCode.IsControl() {
			if header.OpCode == ws.OpClose {
				return
			}
			// Ping/pong: proof of life, nothing else to do. The frame
			// body must still be drained.
			if _, err := io.Copy(io.Discard, reader); err != nil {
				return
			}
			continue
		}

		data := make([]byte, header.Length)
		if header.Length > 0 {
			if _, err := io.ReadFull(reader, data); err != nil {
				return
			}
		}
		if len(data) == 0 {
			continue
		}

		if s.onMessage != nil {
			s.onMessage(c, data)
		}
	}
}

// handleHealth responds with the server's health status as JSON, including
// the current connection count and uptime.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	resp := struct {
		Status      string `json:"status"`
		Connections int    `json:"connections"`
		Uptime      string `json:"uptime"`
	}{
		Status:      "ok",
		Connections: s.conns.Count(),
		Uptime:      time.Since(s.startedAt).Round(time.Second).String(),
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// RemoveConnection unregisters and closes a connection and fires the
// disconnect callback. Safe to call from racing goroutines; only the first
// caller proceeds past the manager.
func (s *Server) RemoveConnection(c *Connection) {
	if !s.conns.Remove(c.ID) {
		return
	}
	metrics.ConnectionsTotal.Set(float64(s.conns.Count()))

	if s.onDisconnect != nil {
		s.onDisconnect(c.ID)
	}

	log.Printf("[ws] connection closed session=%s (total=%d)", c.ID, s.conns.Count())
}

// SendMessage writes a WebSocket text frame to the connection identified by
// connID. Goroutine-safe thanks to the per-connection write mutex.
func (s *Server) SendMessage(connID string, data []byte) error {
	c := s.conns.Get(connID)
	if c == nil {
		return fmt.Errorf("ws: connection %s not found", connID)
	}

	if s.config.WriteTimeout > 0 {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	}

	err := c.WriteMessage(data)

	// Clear the deadline so it does not affect heartbeat pings.
	_ = c.Conn.SetWriteDeadline(time.Time{})

	if err != nil {
		return fmt.Errorf("ws: write to %s: %w", connID, err)
	}
	return nil
}

// Connections returns the ConnectionManager, used by the heartbeat monitor.
func (s *Server) Connections() *ConnectionManager {
	return s.conns
}

// Shutdown gracefully stops the server: the HTTP listener is drained, the
// heartbeat goroutine is signalled, and every active connection is closed,
// which terminates its reader goroutine.
func (s *Server) Shutdown() error {
	log.Println("[ws] shutting down server...")

	close(s.done)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Printf("[ws] http shutdown error: %v", err)
		}
	}

	for _, c := range s.conns.All() {
		s.RemoveConnection(c)
	}

	log.Printf("[ws] server stopped, all connections closed")
	return nil
}
