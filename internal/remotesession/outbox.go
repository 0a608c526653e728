package remotesession

import (
	"sync"
	"sync/atomic"
)

// outboxCapacity is the backpressure threshold (spec.md §4.5/§8): past
// this many queued frames, a new entity_change event evicts the oldest
// queued change for the same entity rather than growing unbounded.
const outboxCapacity = 256

// outboxItem is one queued outbound frame. entityID is empty for
// responses and acks, which are never evicted.
type outboxItem struct {
	payload  []byte
	entityID string
}

// outbox is the bounded, ordered, single-writer-fed outbound queue for
// one remote session: a plain FIFO slice rather than a channel, since
// eviction needs to target "the oldest queued change for this entity",
// not just the oldest item overall.
type outbox struct {
	mu      sync.Mutex
	items   []outboxItem
	dropped atomic.Int64
	notify  chan struct{}
}

func newOutbox() *outbox {
	return &outbox{notify: make(chan struct{}, 1)}
}

// push enqueues a frame. For change frames (entityID != ""), once the
// queue is at capacity the oldest queued change for the same entity is
// evicted to make room; if none exists, the oldest queued change of
// any entity is evicted instead. Responses/acks (entityID == "") are
// never evicted and never trigger eviction themselves.
func (o *outbox) push(payload []byte, entityID string) {
	o.mu.Lock()
	if entityID != "" && len(o.items) >= outboxCapacity {
		if !o.evictOldest(entityID) {
			o.evictOldest("")
		}
	}
	o.items = append(o.items, outboxItem{payload: payload, entityID: entityID})
	o.mu.Unlock()

	select {
	case o.notify <- struct{}{}:
	default:
	}
}

// evictOldest removes the oldest queued change item, preferring one
// matching entityID when entityID is non-empty, falling back to any
// change item when entityID is empty. Must be called with o.mu held.
func (o *outbox) evictOldest(entityID string) bool {
	for i, it := range o.items {
		if it.entityID == "" {
			continue
		}
		if entityID == "" || it.entityID == entityID {
			o.items = append(o.items[:i], o.items[i+1:]...)
			o.dropped.Add(1)
			return true
		}
	}
	return false
}

func (o *outbox) pop() ([]byte, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.items) == 0 {
		return nil, false
	}
	it := o.items[0]
	o.items = o.items[1:]
	return it.payload, true
}

func (o *outbox) droppedCount() int64 {
	return o.dropped.Load()
}

func (o *outbox) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.items)
}

// writerLoop drains the outbox to conn in FIFO order, the single
// writer goroutine every session's frames funnel through (spec.md
// §4.4's ordering guarantee). It returns once conn.send fails or done
// is closed.
func (o *outbox) writerLoop(conn *wsConn, done <-chan struct{}) {
	for {
		for {
			payload, ok := o.pop()
			if !ok {
				break
			}
			if err := conn.send(payload); err != nil {
				return
			}
		}
		select {
		case <-o.notify:
		case <-done:
			return
		}
	}
}
