package strata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// StreamConfig configures the change-event streaming hub.
type StreamConfig struct {
	// Enabled turns on event streaming
	Enabled bool `yaml:"enabled"`
	// BufferSize is the channel buffer size per subscription
	BufferSize int `yaml:"buffer_size"`
	// PingInterval is how often to ping clients
	PingInterval time.Duration `yaml:"ping_interval"`
	// WriteTimeout for WebSocket writes
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DefaultStreamConfig returns default streaming configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Enabled:      false,
		BufferSize:   defaultStreamBufferSize,
		PingInterval: defaultStreamPingEvery,
		WriteTimeout: defaultStreamWriteLimit,
	}
}

// Subscription represents an active stream subscription. Events for the
// subscribed entity subtree are delivered on C until Close.
type Subscription struct {
	ID string
	// Prefix filters events to this entity and its descendants. The root
	// path matches everything.
	Prefix  EntityPath
	ch      chan StoreEvent
	done    chan struct{}
	closed  bool
	mu      sync.Mutex
	created time.Time
}

// C returns the channel for receiving events.
func (s *Subscription) C() <-chan StoreEvent {
	return s.ch
}

// Close signals that the subscriber is done. The event channel stays open
// until Unsubscribe removes the subscription from the hub; closing it here
// could race a concurrent Publish and panic the writer.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}

// Done is closed when the subscription has been closed.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// ChangeHub fans store change events out to subscribers. Deletion events
// double as the invalidation signal: consumers must drop chunk references
// when the chunk's deletion arrives.
type ChangeHub struct {
	config StreamConfig
	mu     sync.RWMutex
	subs   map[string]*Subscription
	nextID uint64
}

// NewChangeHub creates a new streaming hub.
func NewChangeHub(cfg StreamConfig) *ChangeHub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultStreamBufferSize
	}
	return &ChangeHub{
		config: cfg,
		subs:   make(map[string]*Subscription),
	}
}

// Subscribe creates a new subscription for an entity subtree.
func (h *ChangeHub) Subscribe(prefix EntityPath) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := fmt.Sprintf("sub-%d", h.nextID)

	sub := &Subscription{
		ID:      id,
		Prefix:  prefix,
		ch:      make(chan StoreEvent, h.config.BufferSize),
		done:    make(chan struct{}),
		created: time.Now(),
	}

	h.subs[id] = sub
	return sub
}

// Unsubscribe removes a subscription and closes its event channel. The
// channel close is safe here and only here: Publish holds the hub read lock
// while sending, so once the subscription has left the map under the write
// lock no publisher can still reach it.
func (h *ChangeHub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	h.mu.Unlock()

	if ok {
		sub.Close()
		close(sub.ch)
	}
}

// Publish sends an event to all matching subscriptions.
func (h *ChangeHub) Publish(ev StoreEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !matchesPrefix(sub.Prefix, ev.Entity) {
			continue
		}

		select {
		case <-sub.done:
			// Subscriber closed but not yet unsubscribed
			continue
		default:
		}

		select {
		case sub.ch <- ev:
		default:
			// Buffer full, drop the event
		}
	}
}

// PublishBatch sends multiple events to matching subscriptions.
func (h *ChangeHub) PublishBatch(events []StoreEvent) {
	for _, ev := range events {
		h.Publish(ev)
	}
}

func matchesPrefix(prefix, entity EntityPath) bool {
	return prefix.IsRoot() || prefix == entity || prefix.IsAncestorOf(entity)
}

// Count returns the number of active subscriptions.
func (h *ChangeHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// List returns all active subscription IDs.
func (h *ChangeHub) List() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	return ids
}

// WebSocket handling

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamMessage is the JSON format for WebSocket messages.
type StreamMessage struct {
	Type   string       `json:"type"`
	Entity string       `json:"entity,omitempty"`
	Event  *StreamEvent `json:"event,omitempty"`
	SubID  string       `json:"sub_id,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// StreamEvent is the wire form of a store event.
type StreamEvent struct {
	Kind     string `json:"kind"`
	ChunkID  string `json:"chunk_id"`
	Entity   string `json:"entity"`
	IsStatic bool   `json:"is_static"`
	NumRows  int    `json:"num_rows"`
}

func toStreamEvent(ev StoreEvent) *StreamEvent {
	out := &StreamEvent{
		Kind:     ev.Kind.String(),
		ChunkID:  ev.ChunkID.String(),
		Entity:   ev.Entity.String(),
		IsStatic: ev.IsStatic,
	}
	if ev.Chunk != nil {
		out.NumRows = ev.Chunk.NumRows()
	}
	return out
}

// WebSocketHandler returns an HTTP handler for WebSocket connections.
func (h *ChangeHub) WebSocketHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer func() { _ = conn.Close() }()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Map of active subscriptions for this connection
		connSubs := make(map[string]*Subscription)
		var connMu sync.Mutex

		// Read commands from client
		go func() {
			defer cancel()
			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					return
				}

				var cmd StreamMessage
				if err := json.Unmarshal(msg, &cmd); err != nil {
					h.sendError(conn, "invalid message format")
					continue
				}

				switch cmd.Type {
				case "subscribe":
					sub := h.Subscribe(NewEntityPath(cmd.Entity))
					connMu.Lock()
					connSubs[sub.ID] = sub
					connMu.Unlock()

					resp, _ := json.Marshal(StreamMessage{
						Type:  "subscribed",
						SubID: sub.ID,
					})
					_ = conn.WriteMessage(websocket.TextMessage, resp)

					// Start forwarding events for this subscription
					go h.forwardEvents(ctx, conn, sub)

				case "unsubscribe":
					connMu.Lock()
					if sub, ok := connSubs[cmd.SubID]; ok {
						delete(connSubs, cmd.SubID)
						h.Unsubscribe(sub.ID)
					}
					connMu.Unlock()

					resp, _ := json.Marshal(StreamMessage{
						Type:  "unsubscribed",
						SubID: cmd.SubID,
					})
					_ = conn.WriteMessage(websocket.TextMessage, resp)

				default:
					h.sendError(conn, "unknown command: "+cmd.Type)
				}
			}
		}()

		// Wait for context cancellation
		<-ctx.Done()

		// Cleanup subscriptions
		connMu.Lock()
		for _, sub := range connSubs {
			h.Unsubscribe(sub.ID)
		}
		connMu.Unlock()
	}
}

func (h *ChangeHub) forwardEvents(ctx context.Context, conn *websocket.Conn, sub *Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.done:
			return
		case ev, ok := <-sub.ch:
			if !ok {
				return
			}
			msg, _ := json.Marshal(StreamMessage{
				Type:  "event",
				SubID: sub.ID,
				Event: toStreamEvent(ev),
			})
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

func (h *ChangeHub) sendError(conn *websocket.Conn, msg string) {
	resp, _ := json.Marshal(StreamMessage{
		Type:  "error",
		Error: msg,
	})
	_ = conn.WriteMessage(websocket.TextMessage, resp)
}

// AttachHub wires a hub into the store so every Insert, Remove, GC, and
// Compact publishes its events. Attach before concurrent use begins.
func (s *Store) AttachHub(hub *ChangeHub) {
	s.hub = hub
}

// Hub returns the attached hub, nil when streaming is disabled.
func (s *Store) Hub() *ChangeHub {
	return s.hub
}

// Subscribe creates a subscription on the attached hub.
func (s *Store) Subscribe(prefix EntityPath) (*Subscription, error) {
	if s.hub == nil {
		return nil, ErrStreamingDisabled
	}
	return s.hub.Subscribe(prefix), nil
}
