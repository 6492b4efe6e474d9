package stripe

import (
	"sync"
	"time"
)

// EventStore remembers the webhook events already handled, so redelivered
// events are acknowledged without being processed twice.
type EventStore interface {
	EventExists(eventID string) bool
	MarkProcessed(eventID string) error
}

// MemoryEventStore is an in-memory EventStore whose entries expire after a TTL.
type MemoryEventStore struct {
	events map[string]time.Time
	mutex  sync.RWMutex
	ttl    time.Duration
	done   chan struct{}
	once   sync.Once
}

// NewMemoryEventStore creates a new in-memory event store. A zero ttl means
// 24 hours. Close stops the background cleanup.
func NewMemoryEventStore(ttl time.Duration) *MemoryEventStore {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	store := &MemoryEventStore{
		events: make(map[string]time.Time),
		ttl:    ttl,
		done:   make(chan struct{}),
	}
	go store.cleanup(time.Hour)
	return store
}

// EventExists checks if an event has already been processed
func (m *MemoryEventStore) EventExists(eventID string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	processedAt, exists := m.events[eventID]
	return exists && time.Since(processedAt) <= m.ttl
}

// MarkProcessed marks an event as processed
func (m *MemoryEventStore) MarkProcessed(eventID string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.events[eventID] = time.Now()
	return nil
}

// Close stops the cleanup goroutine.
func (m *MemoryEventStore) Close() {
	m.once.Do(func() { close(m.done) })
}

// Size returns the number of stored events
func (m *MemoryEventStore) Size() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.events)
}

// cleanup removes expired events periodically
func (m *MemoryEventStore) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.purge(time.Now())
		}
	}
}

func (m *MemoryEventStore) purge(now time.Time) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for eventID, timestamp := range m.events {
		if now.Sub(timestamp) > m.ttl {
			delete(m.events, eventID)
		}
	}
}
