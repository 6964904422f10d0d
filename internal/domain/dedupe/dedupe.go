// Package dedupe tracks recently seen event IDs so a resent event is applied
// at most once.
package dedupe

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMaxSize = 10000

// Deduper records seen event IDs.
type Deduper interface {
	// SeenAndRecord reports whether id was already seen and records it if
	// not. The check and the record are one atomic step.
	SeenAndRecord(ctx context.Context, id string) bool

	Size() int
}

// inMemoryDeduper keeps the most recently seen IDs; the oldest are evicted
// once maxSize is reached.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    *lru.Cache[string, struct{}]
	maxSize int
}

// NewInMemoryDeduper creates a bounded in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	// size is always positive here, so New cannot fail
	d.seen, _ = lru.New[string, struct{}](d.maxSize)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen.Contains(id) {
		return true
	}
	d.seen.Add(id, struct{}{})
	return false
}

func (d *inMemoryDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seen.Len()
}
