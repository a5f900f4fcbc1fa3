// Package store is the process-resident persistence layer: five independent
// keyed collections with no transactions across them and no durability.
// Loss on crash is by design; a production rebuild would swap this for a
// real database behind the same services.
package store

import (
	"errors"
	"sync"
)

var (
	// ErrNotFound is returned when a key has no record in its collection.
	ErrNotFound = errors.New("record not found")

	// ErrForbidden is returned when the caller-supplied owner string does
	// not match the record's owner.
	ErrForbidden = errors.New("owner mismatch")
)

// Collection is a mutex-guarded map. Single operations are atomic;
// check-then-set sequences across calls are not, so concurrent writers are
// last-write-wins.
type Collection[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

func NewCollection[V any]() *Collection[V] {
	return &Collection[V]{items: make(map[string]V)}
}

func (c *Collection[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *Collection[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
}

// Delete removes key and reports whether it was present.
func (c *Collection[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	delete(c.items, key)
	return ok
}

func (c *Collection[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Range calls fn for each entry until fn returns false. It iterates over a
// snapshot, so fn may call back into the collection.
func (c *Collection[V]) Range(fn func(key string, value V) bool) {
	c.mu.RLock()
	snapshot := make(map[string]V, len(c.items))
	for k, v := range c.items {
		snapshot[k] = v
	}
	c.mu.RUnlock()

	for k, v := range snapshot {
		if !fn(k, v) {
			return
		}
	}
}

// Store bundles the five collections. Cross-references between them (for
// example dashboard -> shared snapshot) are convention, not enforced.
type Store struct {
	ResetTokens *Collection[ResetToken]
	Dashboards  *Collection[*Dashboard]
	Shared      *Collection[*SharedDashboard]
	Sessions    *Collection[Session]
	Devices     *Collection[*Device]
}

func New() *Store {
	return &Store{
		ResetTokens: NewCollection[ResetToken](),
		Dashboards:  NewCollection[*Dashboard](),
		Shared:      NewCollection[*SharedDashboard](),
		Sessions:    NewCollection[Session](),
		Devices:     NewCollection[*Device](),
	}
}
