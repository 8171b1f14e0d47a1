// Package notify fans task events out to live client sessions.
//
// The Hub keeps an in-memory registry of sessions grouped into rooms. Each
// session joins the room of its user on registration and may join ad-hoc
// rooms later. Nothing is persisted: a session lives exactly as long as its
// connection.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// TopicAll addresses every registered session.
const TopicAll = "*"

const userTopicPrefix = "user:"

// UserTopic is the room of a single user.
func UserTopic(userID string) string {
	return userTopicPrefix + userID
}

// Envelope is one named event delivered to a client.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Publisher delivers an envelope to every session subscribed to topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, env Envelope) error
}

// Channel is the delivery side of a live session.
// Send must not block for long; transports buffer internally.
type Channel interface {
	Send(frame []byte) error
}

type session struct {
	userID  string
	channel Channel
	rooms   map[string]struct{}
}

// Hub is the process-wide room registry.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session
	rooms    map[string]map[string]struct{} // room -> session ids
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]*session),
		rooms:    make(map[string]map[string]struct{}),
	}
}

// Register binds a session to a user and joins it to the user's room.
// Registering the same session again replaces its channel and keeps its rooms.
func (h *Hub) Register(sessionID, userID string, ch Channel) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[sessionID]
	if !ok {
		s = &session{rooms: make(map[string]struct{})}
		h.sessions[sessionID] = s
	}
	if s.userID != "" && s.userID != userID {
		h.leaveLocked(sessionID, UserTopic(s.userID))
	}
	s.userID = userID
	s.channel = ch
	h.joinLocked(sessionID, UserTopic(userID))

	slog.Debug("session registered", "session_id", sessionID, "user_id", userID)
}

// Join adds a registered session to an ad-hoc room. Rooms of other users are
// off limits.
func (h *Hub) Join(sessionID, room string) error {
	if room == "" || room == TopicAll {
		return fmt.Errorf("invalid room %q", room)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s is not registered", sessionID)
	}
	if strings.HasPrefix(room, userTopicPrefix) && room != UserTopic(s.userID) {
		return fmt.Errorf("room %q belongs to another user", room)
	}
	h.joinLocked(sessionID, room)
	return nil
}

// Unregister removes a session from every room it joined.
func (h *Hub) Unregister(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	for room := range s.rooms {
		h.leaveLocked(sessionID, room)
	}
	delete(h.sessions, sessionID)

	slog.Debug("session unregistered", "session_id", sessionID, "user_id", s.userID)
}

// Sessions returns the number of registered sessions.
func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Publish implements Publisher. Recipients are snapshotted under the read lock
// and sent to outside it; failed sends are joined into the returned error.
func (h *Hub) Publish(_ context.Context, topic string, env Envelope) error {
	frame, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", env.Event, err)
	}

	var errs []error
	for _, ch := range h.recipients(topic) {
		if err := ch.Send(frame); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("publish %s to %s: %d failed deliveries: %w", env.Event, topic, len(errs), errors.Join(errs...))
	}
	return nil
}

func (h *Hub) recipients(topic string) []Channel {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if topic == TopicAll {
		out := make([]Channel, 0, len(h.sessions))
		for _, s := range h.sessions {
			out = append(out, s.channel)
		}
		return out
	}

	members := h.rooms[topic]
	out := make([]Channel, 0, len(members))
	for id := range members {
		out = append(out, h.sessions[id].channel)
	}
	return out
}

func (h *Hub) joinLocked(sessionID, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[room] = members
	}
	members[sessionID] = struct{}{}
	h.sessions[sessionID].rooms[room] = struct{}{}
}

func (h *Hub) leaveLocked(sessionID, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if s, ok := h.sessions[sessionID]; ok {
		delete(s.rooms, room)
	}
}
