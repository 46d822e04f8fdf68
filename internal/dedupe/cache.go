// ABOUTME: TTL cache for suppressing redelivered inbound transport messages
// ABOUTME: Keyed by transport message ID; size-bounded with oldest-first eviction

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// Cache tracks transport message IDs that have already entered the ingest
// pipeline. Transports may redeliver events after reconnects; a seen ID
// within the TTL window is dropped before it reaches a user's queue.
type Cache struct {
	mu      sync.Mutex
	seen    map[string]*entry
	order   *list.List // message IDs, oldest at front
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

type entry struct {
	seenAt  time.Time
	element *list.Element
}

// New creates a dedupe cache. A background goroutine sweeps expired entries
// once a minute until Close is called.
func New(ttl time.Duration, maxSize int) *Cache {
	c := &Cache{
		seen:    make(map[string]*entry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Seen atomically checks whether the message ID was already recorded within
// the TTL and records it if not. Returns true for duplicates. The empty ID
// is never a duplicate: messages without a transport ID are not deduped.
func (c *Cache) Seen(messageID string) bool {
	if messageID == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.seen[messageID]; ok && time.Since(e.seenAt) < c.ttl {
		return true
	}

	if e, ok := c.seen[messageID]; ok {
		// Expired entry: refresh in place.
		e.seenAt = time.Now()
		c.order.MoveToBack(e.element)
		return false
	}

	if len(c.seen) >= c.maxSize {
		c.evictOldest()
	}
	c.seen[messageID] = &entry{
		seenAt:  time.Now(),
		element: c.order.PushBack(messageID),
	}
	return false
}

// evictOldest drops the oldest entry. Must be called with mu held.
func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}
	id, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.seen, id)
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.done:
			return
		}
	}
}

func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for id, e := range c.seen {
		if now.Sub(e.seenAt) > c.ttl {
			c.order.Remove(e.element)
			delete(c.seen, id)
		}
	}
}

// Len reports the number of tracked IDs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// Close stops the background sweep. Safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
