package bridge

import (
	"cmp"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Sudhakarkrish2002/task-1-backend/pkg/metrics"
)

// NATSOptions is the static configuration for the NATS-backed bridge.
type NATSOptions struct {
	URL           string        `json:"url"`
	Username      string        `json:"username"`
	Password      string        `json:"password"`
	Name          string        `json:"name"`
	Subjects      []string      `json:"subjects"`
	ReconnectWait time.Duration `json:"reconnectWait"`
}

// NATS implements Broker over core NATS subjects. Semantics mirror the MQTT
// client: latest-per-subject cache, queued pre-connect subscriptions,
// unlimited reconnect. No JetStream: the bridge is deliberately
// non-durable.
type NATS struct {
	opts      NATSOptions
	nc        *nats.Conn
	logger    *zap.Logger
	cache     *topicCache
	listeners *listeners

	// pending holds subjects requested before the connection is up. Connect
	// drains it, so no subscribe request is lost to ordering.
	mu      sync.RWMutex
	subs    map[string]*nats.Subscription
	pending map[string]struct{}
}

func NewNATS(opts NATSOptions, logger ...*zap.Logger) *NATS {
	b := &NATS{
		opts:      opts,
		cache:     newTopicCache(0),
		listeners: newListeners(),
		subs:      make(map[string]*nats.Subscription),
		pending:   make(map[string]struct{}),
	}
	if len(logger) > 0 && logger[0] != nil {
		b.logger = logger[0]
	} else {
		b.logger = zap.NewNop()
	}

	for _, subject := range opts.Subjects {
		if subject != "" {
			b.pending[subject] = struct{}{}
		}
	}
	return b
}

// Connect establishes the connection and drains the pending subject set.
// RetryOnFailedConnect plus unlimited MaxReconnects gives the same
// always-retrying behavior as the MQTT client; after the first connect the
// library resends live subscriptions across reconnects itself.
func (b *NATS) Connect(ctx context.Context) error {
	reconnectWait := b.opts.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}

	opts := []nats.Option{
		nats.Name(cmp.Or(b.opts.Name, "iotdash-bridge")),
		nats.Timeout(5 * time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			metrics.BrokerReconnects.WithLabelValues(SourceNATS).Inc()
			b.logger.Warn("NATS connection lost, reconnecting", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			b.logger.Info("reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	if b.opts.Username != "" {
		opts = append(opts, nats.UserInfo(b.opts.Username, b.opts.Password))
	}

	url := cmp.Or(b.opts.URL, nats.DefaultURL)
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return fmt.Errorf("connect to NATS server %s: %w", url, err)
	}

	b.mu.Lock()
	b.nc = nc
	queued := make([]string, 0, len(b.pending))
	for subject := range b.pending {
		queued = append(queued, subject)
	}
	b.mu.Unlock()

	if err := b.Subscribe(queued...); err != nil {
		return err
	}

	b.logger.Info("connected to NATS", zap.String("url", url))
	return nil
}

func (b *NATS) handleMessage(m *nats.Msg) {
	msg := newMessage(m.Subject, SourceNATS, m.Data)
	b.cache.Put(msg)
	b.listeners.publish(msg)
	metrics.MessagesReceived.WithLabelValues(SourceNATS).Inc()
}

// Subscribe records the subjects and, when connected, issues the server
// subscriptions. Before the first connect the subjects stay queued for the
// replay in Connect.
func (b *NATS) Subscribe(subjects ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, subject := range subjects {
		if subject == "" {
			continue
		}
		if b.nc == nil {
			b.pending[subject] = struct{}{}
			continue
		}
		if _, exists := b.subs[subject]; exists {
			continue
		}
		sub, err := b.nc.Subscribe(subject, b.handleMessage)
		if err != nil {
			return fmt.Errorf("subscribe to %s: %w", subject, err)
		}
		b.subs[subject] = sub
		delete(b.pending, subject)
	}
	return nil
}

func (b *NATS) Unsubscribe(subjects ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, subject := range subjects {
		delete(b.pending, subject)
		sub, ok := b.subs[subject]
		if !ok {
			continue
		}
		if err := sub.Unsubscribe(); err != nil {
			return fmt.Errorf("unsubscribe from %s: %w", subject, err)
		}
		delete(b.subs, subject)
	}
	return nil
}

func (b *NATS) Publish(subject string, payload any) error {
	data, err := encodePayload(payload)
	if err != nil {
		return err
	}
	if b.nc == nil {
		return fmt.Errorf("publish to %s: not connected", subject)
	}
	if err := b.nc.Publish(subject, data); err != nil {
		metrics.PublishErrors.WithLabelValues(SourceNATS).Inc()
		b.logger.Error("publish failed", zap.String("subject", subject), zap.Error(err))
		return err
	}
	return nil
}

func (b *NATS) Listen() (<-chan Message, func()) {
	return b.listeners.add()
}

func (b *NATS) Latest(subject string) (Message, bool) {
	return b.cache.Get(subject)
}

func (b *NATS) Cached() []Message {
	return b.cache.All()
}

func (b *NATS) Health() Health {
	b.mu.RLock()
	subs := make([]string, 0, len(b.subs)+len(b.pending))
	for subject := range b.subs {
		subs = append(subs, subject)
	}
	for subject := range b.pending {
		subs = append(subs, subject)
	}
	b.mu.RUnlock()
	sort.Strings(subs)

	return Health{
		Connected:     b.nc != nil && b.nc.IsConnected(),
		Subscriptions: subs,
		CachedTopics:  b.cache.Len(),
	}
}

func (b *NATS) Close() {
	b.listeners.closeAll()
	if b.nc != nil {
		b.nc.Close()
	}
	b.logger.Info("disconnected from NATS")
}
