package bridge

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/Sudhakarkrish2002/task-1-backend/pkg/metrics"
	"github.com/Sudhakarkrish2002/task-1-backend/pkg/util/rand"
)

// MQTTOptions is the static broker configuration, read once at startup.
type MQTTOptions struct {
	Scheme            string `json:"scheme"` // tcp, ssl, ws or wss
	Host              string `json:"host"`
	Port              int    `json:"port"`
	Username          string `json:"username"`
	Password          string `json:"password"`
	ClientID          string `json:"clientID"`
	// Topics are the subscribe patterns requested as soon as the first
	// connection is established.
	Topics            []string      `json:"topics"`
	QoS               byte          `json:"qos"`
	ConnectTimeout    time.Duration `json:"connectTimeout"`
	ReconnectInterval time.Duration `json:"reconnectInterval"`
}

func (o MQTTOptions) brokerURL() string {
	scheme := cmp.Or(o.Scheme, "tcp")
	host := cmp.Or(o.Host, "127.0.0.1")
	port := o.Port
	if port == 0 {
		port = 1883
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

// MQTT is the paho-backed Broker implementation.
type MQTT struct {
	opts      MQTTOptions
	client    mqtt.Client
	logger    *zap.Logger
	cache     *topicCache
	listeners *listeners

	// subs is the desired subscription set. Entries added before the first
	// connect stay queued here and are replayed by the OnConnect handler,
	// which also re-subscribes after every reconnect.
	mu   sync.RWMutex
	subs map[string]byte
}

// NewMQTT creates the client without connecting.
func NewMQTT(opts MQTTOptions, logger ...*zap.Logger) *MQTT {
	b := &MQTT{
		opts:      opts,
		cache:     newTopicCache(0),
		listeners: newListeners(),
		subs:      make(map[string]byte),
	}
	if len(logger) > 0 && logger[0] != nil {
		b.logger = logger[0]
	} else {
		b.logger = zap.NewNop()
	}

	for _, topic := range opts.Topics {
		if topic != "" {
			b.subs[topic] = opts.QoS
		}
	}
	return b
}

// Connect dials the broker, retrying with exponential backoff until ctx is
// canceled. Once up, paho's auto-reconnect keeps the connection alive and
// the OnConnect handler replays all recorded subscriptions.
func (b *MQTT) Connect(ctx context.Context) error {
	pahoOpts := mqtt.NewClientOptions()
	pahoOpts.AddBroker(b.opts.brokerURL())
	pahoOpts.SetClientID(cmp.Or(b.opts.ClientID, "iotdash-"+rand.NewName()))
	if b.opts.Username != "" {
		pahoOpts.SetUsername(b.opts.Username)
	}
	if b.opts.Password != "" {
		pahoOpts.SetPassword(b.opts.Password)
	}
	if b.opts.ConnectTimeout > 0 {
		pahoOpts.SetConnectTimeout(b.opts.ConnectTimeout)
	}
	pahoOpts.SetAutoReconnect(true)
	if b.opts.ReconnectInterval > 0 {
		pahoOpts.SetMaxReconnectInterval(b.opts.ReconnectInterval)
	}
	pahoOpts.SetCleanSession(true)
	pahoOpts.SetOnConnectHandler(b.onConnect)
	pahoOpts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		metrics.BrokerReconnects.WithLabelValues(SourceMQTT).Inc()
		b.logger.Warn("broker connection lost, reconnecting", zap.Error(err))
	})

	b.client = mqtt.NewClient(pahoOpts)

	expo := backoff.NewExponentialBackOff()
	expo.MaxElapsedTime = 0 // retry until canceled
	if b.opts.ReconnectInterval > 0 {
		expo.MaxInterval = b.opts.ReconnectInterval
	}

	operation := func() error {
		token := b.client.Connect()
		token.Wait()
		if err := token.Error(); err != nil {
			b.logger.Warn("broker connect failed, retrying",
				zap.String("broker", b.opts.brokerURL()),
				zap.Error(err))
			return err
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(expo, ctx)); err != nil {
		return fmt.Errorf("connect to MQTT broker %s: %w", b.opts.brokerURL(), err)
	}

	b.logger.Info("connected to MQTT broker", zap.String("broker", b.opts.brokerURL()))
	return nil
}

// onConnect replays every recorded subscription. Runs on first connect and
// on every reconnect, so no subscribe request is lost to ordering.
func (b *MQTT) onConnect(client mqtt.Client) {
	b.mu.RLock()
	subs := make(map[string]byte, len(b.subs))
	for topic, qos := range b.subs {
		subs[topic] = qos
	}
	b.mu.RUnlock()

	for topic, qos := range subs {
		token := client.Subscribe(topic, qos, b.handleMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			b.logger.Error("subscribe failed", zap.String("topic", topic), zap.Error(err))
			continue
		}
		b.logger.Debug("subscribed", zap.String("topic", topic))
	}
}

// handleMessage turns every inbound broker message into a Message record,
// overwrites the topic cache and notifies listeners. Malformed payloads
// degrade to raw text; nothing here fails.
func (b *MQTT) handleMessage(_ mqtt.Client, m mqtt.Message) {
	msg := newMessage(m.Topic(), SourceMQTT, m.Payload())
	b.cache.Put(msg)
	b.listeners.publish(msg)
	metrics.MessagesReceived.WithLabelValues(SourceMQTT).Inc()
}

// Subscribe records the topics and, when connected, issues the broker
// subscriptions. Before the first connect the topics stay queued for the
// OnConnect replay.
func (b *MQTT) Subscribe(topics ...string) error {
	b.mu.Lock()
	for _, topic := range topics {
		b.subs[topic] = b.opts.QoS
	}
	connected := b.client != nil && b.client.IsConnectionOpen()
	b.mu.Unlock()

	if !connected {
		return nil // queued until the OnConnect replay
	}

	for _, topic := range topics {
		token := b.client.Subscribe(topic, b.opts.QoS, b.handleMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			return fmt.Errorf("subscribe to %s: %w", topic, err)
		}
	}
	return nil
}

func (b *MQTT) Unsubscribe(topics ...string) error {
	b.mu.Lock()
	for _, topic := range topics {
		delete(b.subs, topic)
	}
	connected := b.client != nil && b.client.IsConnectionOpen()
	b.mu.Unlock()

	if !connected {
		return nil
	}

	token := b.client.Unsubscribe(topics...)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	return nil
}

// Publish sends a message upstream. Delivery errors are logged, not
// surfaced: the broker ack never reaches the original caller.
func (b *MQTT) Publish(topic string, payload any) error {
	data, err := encodePayload(payload)
	if err != nil {
		return err
	}
	if b.client == nil {
		return fmt.Errorf("publish to %s: not connected", topic)
	}

	token := b.client.Publish(topic, b.opts.QoS, false, data)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			metrics.PublishErrors.WithLabelValues(SourceMQTT).Inc()
			b.logger.Error("publish failed", zap.String("topic", topic), zap.Error(err))
		}
	}()
	return nil
}

func (b *MQTT) Listen() (<-chan Message, func()) {
	return b.listeners.add()
}

func (b *MQTT) Latest(topic string) (Message, bool) {
	return b.cache.Get(topic)
}

func (b *MQTT) Cached() []Message {
	return b.cache.All()
}

func (b *MQTT) Health() Health {
	b.mu.RLock()
	subs := make([]string, 0, len(b.subs))
	for topic := range b.subs {
		subs = append(subs, topic)
	}
	b.mu.RUnlock()
	sort.Strings(subs)

	return Health{
		Connected:     b.client != nil && b.client.IsConnectionOpen(),
		Subscriptions: subs,
		CachedTopics:  b.cache.Len(),
	}
}

func (b *MQTT) Close() {
	b.listeners.closeAll()
	if b.client != nil {
		b.client.Disconnect(250)
	}
	b.logger.Info("disconnected from MQTT broker")
}

// encodePayload serializes outbound payloads: strings and byte slices pass
// through, everything else is JSON.
func encodePayload(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(p), nil
	case []byte:
		return p, nil
	case json.RawMessage:
		return p, nil
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		return data, nil
	}
}
