package bridge

import "sync"

// defaultCacheCapacity bounds how many distinct topics keep a cached record.
const defaultCacheCapacity = 1024

// topicCache retains the single most recent message per topic. It is an
// explicit bounded map: when a new topic would exceed capacity, the topic
// seen longest ago is evicted first.
type topicCache struct {
	mu    sync.RWMutex
	max   int
	items map[string]Message
	order []string // topics in first-seen order
}

func newTopicCache(capacity int) *topicCache {
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	return &topicCache{
		max:   capacity,
		items: make(map[string]Message, capacity),
	}
}

// Put overwrites the cached record for msg.Topic. Prior records for the
// topic are discarded, not versioned.
func (c *topicCache) Put(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, known := c.items[msg.Topic]; !known {
		c.order = append(c.order, msg.Topic)
		for len(c.order) > c.max {
			delete(c.items, c.order[0])
			c.order = c.order[1:]
		}
	}
	c.items[msg.Topic] = msg
}

func (c *topicCache) Get(topic string) (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	msg, ok := c.items[topic]
	return msg, ok
}

func (c *topicCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// All returns the cached records in first-seen topic order.
func (c *topicCache) All() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, 0, len(c.items))
	for _, topic := range c.order {
		if msg, ok := c.items[topic]; ok {
			out = append(out, msg)
		}
	}
	return out
}
