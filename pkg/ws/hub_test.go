package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Sudhakarkrish2002/task-1-backend/pkg/bridge"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(zaptest.NewLogger(t))
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	socket, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { socket.Close() })
	return socket
}

func readEnvelope(t *testing.T, socket *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, socket.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := socket.ReadMessage()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBroadcastFiltersBySubscription(t *testing.T) {
	hub, srv := newTestHub(t)

	subscribed := dial(t, srv, "?topics=a/b")
	all := dial(t, srv, "")
	waitForClients(t, hub, 2)

	hub.Broadcast(bridge.Message{Topic: "c/d", Data: "skip", Raw: "skip", Source: bridge.SourceMQTT, ReceivedAt: time.Now()})
	hub.Broadcast(bridge.Message{Topic: "a/b", Data: "hit", Raw: "hit", Source: bridge.SourceMQTT, ReceivedAt: time.Now()})

	// the filtered client sees only a/b
	env := readEnvelope(t, subscribed)
	assert.Equal(t, "mqtt", env.Type)
	assert.Equal(t, "a/b", env.Topic)
	assert.Equal(t, "hit", env.Data)

	// the empty-set client sees everything, in order
	env = readEnvelope(t, all)
	assert.Equal(t, "c/d", env.Topic)
	env = readEnvelope(t, all)
	assert.Equal(t, "a/b", env.Topic)
}

func TestControlMessagesMutateSubscriptions(t *testing.T) {
	hub, srv := newTestHub(t)

	socket := dial(t, srv, "?topics=a/b")
	waitForClients(t, hub, 1)

	require.NoError(t, socket.WriteJSON(controlMessage{Action: "subscribe", Topic: "x/y"}))
	// malformed control messages are ignored and must not close the connection
	require.NoError(t, socket.WriteMessage(websocket.TextMessage, []byte("garbage")))
	require.NoError(t, socket.WriteJSON(controlMessage{Action: "unsubscribe", Topic: "a/b"}))

	// give readPump a moment to apply the mutations
	time.Sleep(100 * time.Millisecond)

	hub.Broadcast(bridge.Message{Topic: "a/b", Raw: "old", Data: "old", Source: bridge.SourceMQTT})
	hub.Broadcast(bridge.Message{Topic: "x/y", Raw: "new", Data: "new", Source: bridge.SourceMQTT})

	env := readEnvelope(t, socket)
	assert.Equal(t, "x/y", env.Topic, "a/b was unsubscribed, x/y subscribed")
	assert.Equal(t, 1, hub.ClientCount(), "connection stays open after malformed control message")
}

func TestEnvelopeDefaultsToMQTTType(t *testing.T) {
	hub, srv := newTestHub(t)
	socket := dial(t, srv, "")
	waitForClients(t, hub, 1)

	hub.Broadcast(bridge.Message{Topic: "a/b", Raw: "x", Data: "x"})

	env := readEnvelope(t, socket)
	assert.Equal(t, "mqtt", env.Type)
}

func TestDisconnectedClientIsRemoved(t *testing.T) {
	hub, srv := newTestHub(t)

	socket := dial(t, srv, "")
	waitForClients(t, hub, 1)

	socket.Close()
	waitForClients(t, hub, 0)

	// broadcasting with no clients must not panic or block
	hub.Broadcast(bridge.Message{Topic: "a/b", Raw: "x", Data: "x"})
}

func TestParseTopics(t *testing.T) {
	assert.Nil(t, parseTopics(""))
	assert.Equal(t, []string{"a/b"}, parseTopics("a/b"))
	assert.Equal(t, []string{"a/b", "c/d"}, parseTopics("a/b, c/d"))
	assert.Empty(t, parseTopics(" , ,"))
}
