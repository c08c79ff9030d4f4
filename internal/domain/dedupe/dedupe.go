// Package dedupe tracks processed message ids for the current period.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen message IDs so a replayed message can be skipped.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id, so a message that was recorded but not applied can be retried.
	Unrecord(ctx context.Context, id string)

	// Reset forgets every id. Called when the period is reset.
	Reset(ctx context.Context)

	Size() int64
}

// node is one entry in the insertion-ordered list.
type node struct {
	id         string
	prev, next *node
}

// inMemoryDeduper keeps ids in a map. In bounded mode (maxSize > 0) a doubly linked list
// records insertion order and the oldest id is evicted first.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*node
	oldest  *node
	newest  *node
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper. The default is unbounded.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{seen: make(map[string]*node)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SeenAndRecord implements Deduper.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}
	if d.maxSize <= 0 {
		d.seen[id] = nil
		return false
	}

	if len(d.seen) >= d.maxSize {
		d.unlink(d.oldest)
	}
	n := &node{id: id, prev: d.newest}
	if d.newest != nil {
		d.newest.next = n
	}
	d.newest = n
	if d.oldest == nil {
		d.oldest = n
	}
	d.seen[id] = n
	return false
}

// Unrecord implements Deduper.
func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, exists := d.seen[id]
	if !exists {
		return
	}
	if n == nil {
		delete(d.seen, id)
		return
	}
	d.unlink(n)
}

// unlink removes n from the list and the map. Must be called with d.mu held.
func (d *inMemoryDeduper) unlink(n *node) {
	if n == nil {
		return
	}
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		d.oldest = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		d.newest = n.prev
	}
	delete(d.seen, n.id)
	n.prev, n.next = nil, nil
}

// Reset implements Deduper.
func (d *inMemoryDeduper) Reset(_ context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = make(map[string]*node)
	d.oldest, d.newest = nil, nil
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
