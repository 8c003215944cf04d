// Package ingress accepts persistent WebSocket connections from watch,
// phone, and overlay clients. Inbound text frames are trimmed and handed
// to the single registered frame handler; outbound messages are broadcast
// to every connected client.
package ingress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mattjoyce/lectern/internal/config"
	"github.com/mattjoyce/lectern/internal/log"
)

const (
	writeWait      = 5 * time.Second
	maxFrameBytes  = 64 * 1024
	sendBufferSize = 64
)

// FrameHandler receives each trimmed inbound frame. The gate implements
// it; the listener itself performs no protocol logic beyond framing.
type FrameHandler interface {
	HandleFrame(raw string)
}

// Server is the WebSocket ingress listener.
type Server struct {
	cfg      config.Ingress
	handler  FrameHandler
	logger   *slog.Logger
	server   *http.Server
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// New creates the listener. handler must be non-nil.
func New(cfg config.Ingress, handler FrameHandler) *Server {
	return &Server{
		cfg:     cfg,
		handler: handler,
		logger:  log.WithComponent("ingress"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Local clients only; the listener binds to loopback by default.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// Start runs the HTTP server hosting the WebSocket endpoint (blocking).
func (s *Server) Start(ctx context.Context) error {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealthz)
	r.Get(s.cfg.Path, s.handleWS)

	s.server = &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      r,
		ReadTimeout:  0, // WebSocket connections are long-lived
		WriteTimeout: 0,
		IdleTimeout:  0,
	}

	s.logger.Info("ingress listening", "listen", s.cfg.Listen, "path", s.cfg.Path)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("ingress shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("ingress shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("ingress server error: %w", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	s.mu.Lock()
	s.clients[c.id] = c
	count := len(s.clients)
	s.mu.Unlock()

	logger := log.WithClient(c.id)
	logger.Info("client connected", "remote", r.RemoteAddr, "clients", count)

	go s.writePump(c, logger)
	s.readPump(c, logger)
}

// readPump delivers inbound frames to the handler until the connection
// dies, then removes the client. Removal is idempotent.
func (s *Server) readPump(c *client, logger *slog.Logger) {
	defer s.remove(c, logger)

	c.conn.SetReadLimit(maxFrameBytes)

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("read failed", "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		frame := strings.TrimSpace(string(data))
		if frame == "" {
			continue
		}
		s.handler.HandleFrame(frame)
	}
}

// writePump is the single writer for one connection.
func (s *Server) writePump(c *client, logger *slog.Logger) {
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Debug("write failed", "error", err)
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Server) remove(c *client, logger *slog.Logger) {
	s.mu.Lock()
	if _, ok := s.clients[c.id]; ok {
		delete(s.clients, c.id)
		close(c.send)
	}
	count := len(s.clients)
	s.mu.Unlock()

	_ = c.conn.Close()
	logger.Info("client disconnected", "clients", count)
}

// Broadcast sends v to every connected client. Non-string payloads are
// marshaled to JSON. Per-client failures (full buffer, dead socket) are
// swallowed; the broadcast continues to the remaining clients.
func (s *Server) Broadcast(v any) {
	var data []byte
	switch msg := v.(type) {
	case string:
		data = []byte(msg)
	case []byte:
		data = msg
	default:
		b, err := json.Marshal(v)
		if err != nil {
			s.logger.Error("broadcast marshal failed", "error", err)
			return
		}
		data = b
	}

	s.mu.Lock()
	for _, c := range s.clients {
		select {
		case c.send <- data:
		default:
			// Slow client: drop the message, not the broadcast.
		}
	}
	s.mu.Unlock()
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
