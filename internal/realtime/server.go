// Package realtime exposes the notification hub over websockets.
//
// Frames in both directions are JSON objects {"event": name, "data": payload}.
// Clients authenticate with the same bearer token used by the HTTP API, passed
// either as the "token" query parameter or an Authorization header.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mtlprog/taskhub/internal/domain"
	"github.com/mtlprog/taskhub/internal/notify"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

var (
	errSessionClosed = errors.New("session closed")
	errBufferFull    = errors.New("session send buffer full")
	errShuttingDown  = errors.New("server is shutting down")
)

// Authenticator resolves a bearer token to a user.
type Authenticator interface {
	GetByToken(ctx context.Context, token string) (*domain.User, error)
}

// Registry is the part of the hub a connection needs.
type Registry interface {
	Register(sessionID, userID string, ch notify.Channel)
	Join(sessionID, room string) error
	Unregister(sessionID string)
}

// Server upgrades HTTP requests to websocket sessions bound to the hub.
type Server struct {
	registry Registry
	auth     Authenticator
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  map[string]*conn
	closed bool
	wg     sync.WaitGroup
}

// NewServer creates a Server. allowedOrigin "*" accepts any origin; an empty
// value accepts only same-origin requests.
func NewServer(registry Registry, auth Authenticator, allowedOrigin string) *Server {
	s := &Server{registry: registry, auth: auth, conns: make(map[string]*conn)}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if allowedOrigin == "*" {
		s.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	} else if allowedOrigin != "" {
		s.upgrader.CheckOrigin = func(r *http.Request) bool {
			return r.Header.Get("Origin") == allowedOrigin
		}
	}
	return s
}

// ServeHTTP authenticates the client, upgrades the connection and runs the session.
// @Summary Open a realtime session
// @Description Upgrades to a websocket. Frames are {"event": name, "data": payload}; the server sends connected, task-update, task-notification and task-created, the client may send join-room.
// @Tags realtime
// @Param token query string false "Bearer token, if no Authorization header is sent"
// @Success 101
// @Failure 401 {string} string
// @Security BearerAuth
// @Router /ws [get]
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := tokenFromRequest(r)
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	user, err := s.auth.GetByToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		slog.Error("websocket authentication failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		slog.Warn("websocket upgrade failed", "user_id", user.ID, "error", err)
		return
	}

	c := newConn(uuid.New().String(), user.ID, ws)
	if err := s.track(c); err != nil {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()), time.Now().Add(writeWait))
		_ = ws.Close()
		return
	}
	defer s.untrack(c)

	s.registry.Register(c.id, c.userID, c)
	slog.Info("websocket connected", "session_id", c.id, "user_id", c.userID)

	go c.writePump()

	if err := c.sendEvent(notify.EventConnected, map[string]string{"message": "Connected to WebSocket"}); err != nil {
		slog.Warn("failed to queue connected event", "session_id", c.id, "error", err)
	}

	c.readPump(s.registry)

	s.registry.Unregister(c.id)
	c.close()
	slog.Info("websocket disconnected", "session_id", c.id, "user_id", c.userID)
}

// Shutdown closes every live session and waits until they have unregistered
// or ctx is done. New upgrades are refused afterwards.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	for _, c := range s.conns {
		c.close()
	}
	n := len(s.conns)
	s.mu.Unlock()

	slog.Info("closing websocket sessions", "sessions", n)

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) track(c *conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errShuttingDown
	}
	s.conns[c.id] = c
	s.wg.Add(1)
	return nil
}

func (s *Server) untrack(c *conn) {
	s.mu.Lock()
	delete(s.conns, c.id)
	s.mu.Unlock()
	s.wg.Done()
}

func tokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// inbound is a frame sent by the client.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type conn struct {
	id       string
	userID   string
	ws       *websocket.Conn
	send     chan []byte
	done     chan struct{}
	doneOnce sync.Once
}

func newConn(id, userID string, ws *websocket.Conn) *conn {
	return &conn{
		id:     id,
		userID: userID,
		ws:     ws,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

// Send implements notify.Channel. It never blocks.
func (c *conn) Send(frame []byte) error {
	select {
	case <-c.done:
		return errSessionClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	default:
		return errBufferFull
	}
}

func (c *conn) sendEvent(event string, data any) error {
	frame, err := json.Marshal(notify.Envelope{Event: event, Data: data})
	if err != nil {
		return err
	}
	return c.Send(frame)
}

func (c *conn) close() {
	c.doneOnce.Do(func() { close(c.done) })
}

// readPump handles client frames until the connection fails or closes.
func (c *conn) readPump(registry Registry) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg inbound
		if err := c.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read failed", "session_id", c.id, "error", err)
			}
			return
		}

		switch msg.Event {
		case notify.EventJoinRoom:
			var room string
			if err := json.Unmarshal(msg.Data, &room); err != nil {
				slog.Warn("invalid join-room payload", "session_id", c.id, "error", err)
				continue
			}
			if err := registry.Join(c.id, room); err != nil {
				slog.Warn("join room failed", "session_id", c.id, "room", room, "error", err)
			}
		default:
			slog.Debug("ignoring client event", "session_id", c.id, "event", msg.Event)
		}
	}
}

// writePump is the only writer on the websocket.
func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				slog.Warn("websocket write failed", "session_id", c.id, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
