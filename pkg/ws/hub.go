// Package ws fans broker messages out to WebSocket clients. Each connection
// holds a plain set of subscribed topics; an empty set means "send
// everything". Delivery is best-effort, at-most-once, and independent per
// connection: a slow or dead client never stalls the others.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Sudhakarkrish2002/task-1-backend/pkg/bridge"
	"github.com/Sudhakarkrish2002/task-1-backend/pkg/metrics"
)

// Envelope wraps a broker message for downstream delivery. Type is the
// broker-source discriminator ("mqtt" or "nats").
type Envelope struct {
	Type       string    `json:"type"`
	Topic      string    `json:"topic"`
	Data       any       `json:"data"`
	Raw        string    `json:"raw"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// controlMessage is the only inbound message kind clients may send.
type controlMessage struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}

// Hub tracks the open downstream connections.
type Hub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[*conn]struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard frontend is served from a different origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*conn]struct{}),
	}
}

// Run consumes bridge messages until ctx is canceled or the channel closes.
func (h *Hub) Run(ctx context.Context, msgs <-chan bridge.Message) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case msg, ok := <-msgs:
			if !ok {
				h.closeAll()
				return
			}
			h.Broadcast(msg)
		}
	}
}

// Broadcast delivers one message to every connection whose subscription set
// is empty or contains the topic. The envelope is marshaled once; failures
// on one connection never affect the others.
func (h *Hub) Broadcast(msg bridge.Message) {
	envelope := Envelope{
		Type:       msg.Source,
		Topic:      msg.Topic,
		Data:       msg.Data,
		Raw:        msg.Raw,
		ReceivedAt: msg.ReceivedAt,
	}
	if envelope.Type == "" {
		envelope.Type = bridge.SourceMQTT
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		h.logger.Error("marshal envelope", zap.String("topic", msg.Topic), zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.wants(msg.Topic) {
			continue
		}
		select {
		case c.send <- data:
			metrics.FanoutDeliveries.Inc()
		default:
			// Backed-up client: drop, don't wait.
			metrics.FanoutDropped.Inc()
		}
	}
}

// ServeHTTP upgrades the request and registers the connection. The initial
// subscription set comes from the comma-separated "topics" query parameter;
// absent or empty means receive all.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newConn(socket, parseTopics(r.URL.Query().Get("topics")))
	h.register(c)

	h.logger.Info("websocket client connected",
		zap.String("remote", r.RemoteAddr),
		zap.Int("topics", c.topicCount()))

	go c.writePump(func() { h.unregister(c) })
	go c.readPump(h.logger, func() { h.unregister(c) })
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) register(c *conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
	metrics.ConnectedClients.Inc()
}

func (h *Hub) unregister(c *conn) {
	h.mu.Lock()
	_, open := h.conns[c]
	if open {
		delete(h.conns, c)
	}
	h.mu.Unlock()

	if open {
		metrics.ConnectedClients.Dec()
		c.close()
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	conns := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
		delete(h.conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		metrics.ConnectedClients.Dec()
		c.close()
	}
}

func parseTopics(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	topics := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			topics = append(topics, p)
		}
	}
	return topics
}
