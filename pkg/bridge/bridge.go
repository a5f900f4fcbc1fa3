// Package bridge owns the single long-lived upstream broker connection.
// It keeps the latest message per topic, replays subscriptions across
// reconnects, and hands every inbound message to registered listeners.
//
// Two broker kinds implement the same contract: MQTT (the default, via
// eclipse/paho) and NATS. Consumers register through Listen without the
// bridge knowing who they are.
package bridge

import (
	"context"
	"encoding/json"
	"time"
)

// Source kinds, also used as the envelope discriminator on the fan-out side.
const (
	SourceMQTT = "mqtt"
	SourceNATS = "nats"
)

// Message is one inbound broker message. Data holds the parsed JSON payload
// when the payload parses, otherwise the raw string; Raw always holds the
// raw text. Records are immutable after creation.
type Message struct {
	Topic      string    `json:"topic"`
	Data       any       `json:"data"`
	Raw        string    `json:"raw"`
	ReceivedAt time.Time `json:"receivedAt"`
	Source     string    `json:"-"`
}

// Health is the bridge's only introspection surface.
type Health struct {
	Connected     bool     `json:"connected"`
	Subscriptions []string `json:"subscriptions"`
	CachedTopics  int      `json:"cachedTopics"`
}

// Broker is the upstream connection the rest of the process talks to.
type Broker interface {
	// Connect establishes the upstream connection, retrying until ctx is
	// canceled. Subscriptions requested before Connect are replayed once
	// the connection is up.
	Connect(ctx context.Context) error

	// Publish sends a message upstream. Non-string payloads are JSON
	// serialized. Delivery is fire-and-forget beyond the returned error.
	Publish(topic string, payload any) error

	Subscribe(topics ...string) error
	Unsubscribe(topics ...string) error

	// Listen registers a listener and returns its channel plus a cancel
	// func. Sends to a backed-up listener are dropped, never waited on.
	Listen() (<-chan Message, func())

	// Latest returns the cached most recent message for topic.
	Latest(topic string) (Message, bool)

	// Cached returns the cached latest messages for all topics.
	Cached() []Message

	Health() Health
	Close()
}

// newMessage builds a Message record from a raw payload. Parse failure is
// not an error: the raw text becomes the data value.
func newMessage(topic, source string, payload []byte) Message {
	msg := Message{
		Topic:      topic,
		Raw:        string(payload),
		ReceivedAt: time.Now(),
		Source:     source,
	}

	var parsed any
	if err := json.Unmarshal(payload, &parsed); err != nil {
		msg.Data = msg.Raw
	} else {
		msg.Data = parsed
	}
	return msg
}
