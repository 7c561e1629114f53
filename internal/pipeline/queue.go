package pipeline

import (
	"context"
	"sync"
	"time"
)

// Queue is the FIFO hand-off between the watcher and the worker. Admit
// deduplicates: a path enters at most once while its dedup entry is live
// (session lifetime when ttl is zero, otherwise the configured ttl), so
// repeated creation events for the same path are dropped. Requeue bypasses
// the dedup check and appends to the tail; it is how the worker retries a
// failed delivery without losing the path's admitted status.
type Queue struct {
	mu     sync.Mutex
	items  []string
	seen   map[string]time.Time
	ttl    time.Duration
	notify chan struct{}
}

func NewQueue(ttl time.Duration) *Queue {
	return &Queue{
		seen:   make(map[string]time.Time),
		ttl:    ttl,
		notify: make(chan struct{}, 1),
	}
}

// Admit pushes path unless it was already admitted. Returns false when the
// path was dropped as a duplicate.
func (q *Queue) Admit(path string) bool {
	q.mu.Lock()

	if at, ok := q.seen[path]; ok {
		if q.ttl <= 0 || time.Since(at) < q.ttl {
			q.mu.Unlock()
			return false
		}
	}

	q.seen[path] = time.Now()
	q.items = append(q.items, path)
	q.mu.Unlock()

	q.wake()
	return true
}

func (q *Queue) Requeue(path string) {
	q.mu.Lock()
	q.items = append(q.items, path)
	q.mu.Unlock()

	q.wake()
}

// Pop blocks until an item is available or ctx is done.
func (q *Queue) Pop(ctx context.Context) (string, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			path := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return path, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", false
		case <-q.notify:
		}
	}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
