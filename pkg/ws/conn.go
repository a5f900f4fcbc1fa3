package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// sendBuffer is the per-connection outbound queue; overflow drops.
	sendBuffer = 64

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxControlMessageSize = 512
)

// conn is one downstream connection and its subscription set. The send
// channel is never closed; done signals shutdown so concurrent broadcasters
// can never hit a closed channel.
type conn struct {
	socket *websocket.Conn
	send   chan []byte
	done   chan struct{}

	mu     sync.RWMutex
	topics map[string]struct{}

	closeOnce sync.Once
}

func newConn(socket *websocket.Conn, topics []string) *conn {
	c := &conn{
		socket: socket,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		topics: make(map[string]struct{}, len(topics)),
	}
	for _, t := range topics {
		c.topics[t] = struct{}{}
	}
	return c
}

// wants reports whether the connection should receive topic. An empty
// subscription set means "receive all topics".
func (c *conn) wants(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.topics) == 0 {
		return true
	}
	_, ok := c.topics[topic]
	return ok
}

func (c *conn) subscribe(topic string) {
	c.mu.Lock()
	c.topics[topic] = struct{}{}
	c.mu.Unlock()
}

func (c *conn) unsubscribe(topic string) {
	c.mu.Lock()
	delete(c.topics, topic)
	c.mu.Unlock()
}

func (c *conn) topicCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.topics)
}

// readPump consumes control messages until the connection dies. Malformed
// messages are ignored; the connection stays open.
func (c *conn) readPump(logger *zap.Logger, onClose func()) {
	defer onClose()

	c.socket.SetReadLimit(maxControlMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var ctrl controlMessage
		if err := json.Unmarshal(data, &ctrl); err != nil || ctrl.Topic == "" {
			continue
		}
		switch ctrl.Action {
		case "subscribe":
			c.subscribe(ctrl.Topic)
		case "unsubscribe":
			c.unsubscribe(ctrl.Topic)
		default:
			// unknown action: ignore, keep the connection open
		}
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (c *conn) writePump(onClose func()) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		onClose()
	}()

	for {
		select {
		case <-c.done:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case data := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.socket.Close()
	})
}
