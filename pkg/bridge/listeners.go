package bridge

import "sync"

// listenerBuffer is the per-listener channel depth. A listener that falls
// this far behind starts losing messages rather than stalling the bridge.
const listenerBuffer = 64

// listeners is the bridge-side pub/sub registry. Each listener gets its own
// buffered channel; publishing never blocks.
type listeners struct {
	mu   sync.RWMutex
	subs map[chan Message]struct{}
}

func newListeners() *listeners {
	return &listeners{subs: make(map[chan Message]struct{})}
}

func (l *listeners) add() (chan Message, func()) {
	ch := make(chan Message, listenerBuffer)

	l.mu.Lock()
	l.subs[ch] = struct{}{}
	l.mu.Unlock()

	cancel := func() {
		l.mu.Lock()
		if _, ok := l.subs[ch]; ok {
			delete(l.subs, ch)
			close(ch)
		}
		l.mu.Unlock()
	}
	return ch, cancel
}

// publish delivers msg to every listener without blocking. Sends happen
// under the read lock so a concurrent cancel can never close a channel
// mid-send.
func (l *listeners) publish(msg Message) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for ch := range l.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (l *listeners) closeAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ch := range l.subs {
		delete(l.subs, ch)
		close(ch)
	}
}
