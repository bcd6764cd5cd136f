// Package events provides the event bus that decouples the navigation and
// transfer state machines from their observers (CLI output, progress UI,
// tests). State transitions publish; observers subscribe.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	// Navigation events
	EventNavStarted    EventType = "nav_started"    // Listing fetch launched for a path
	EventNavLoaded     EventType = "nav_loaded"     // Listing arrived, entries replaced
	EventNavFailed     EventType = "nav_failed"     // Listing fetch failed
	EventNavSuperseded EventType = "nav_superseded" // Stale fetch result discarded

	EventPathChanged    EventType = "path_changed"    // Current location moved (push or back/forward)
	EventHistoryChanged EventType = "history_changed" // History entries or cursor changed

	// Transfer events
	EventTransferQueued    EventType = "transfer_queued"    // Item added to the session
	EventTransferStarted   EventType = "transfer_started"   // Upload launched
	EventTransferProgress  EventType = "transfer_progress"  // Per-item progress update
	EventTransferCompleted EventType = "transfer_completed" // Upload finished successfully
	EventTransferFailed    EventType = "transfer_failed"    // Upload failed (includes cancellation)
	EventTransferRemoved   EventType = "transfer_removed"   // Item removed from the session
	EventBatchFinished     EventType = "batch_finished"     // Every item of a batch reached a terminal state

	// Node health events
	EventNodeHealth EventType = "node_health" // Health snapshot from the gateway
)

const (
	defaultBufferSize = 1000
	maxBufferSize     = 10000
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// NavEvent carries navigation state transitions.
type NavEvent struct {
	BaseEvent
	Path       string // Canonical display path the event concerns
	Files      int    // Entry counts, set on EventNavLoaded
	Dirs       int
	Err        error // Set on EventNavFailed and on superseded fetches that errored
	Superseded bool  // True on EventNavSuperseded
}

// HistoryEvent carries history stack changes.
type HistoryEvent struct {
	BaseEvent
	Path    string // Path at the new cursor
	Cursor  int
	Entries int
}

// TransferEvent carries per-item transfer updates.
type TransferEvent struct {
	BaseEvent
	ItemID  string // Unique item id
	Name    string // Display name (filename)
	Size    int64  // Payload size in bytes
	Percent int    // 0 to 100
	Err     error  // Set on EventTransferFailed
}

// BatchEvent carries batch-level aggregates.
type BatchEvent struct {
	BaseEvent
	BatchSize int
	Succeeded int
	Failed    int
	Percent   int // Aggregate percent across the batch
}

// NodeHealthEvent carries one gateway health snapshot.
type NodeHealthEvent struct {
	BaseEvent
	Nodes map[string]string // node id -> status string
}

// EventBus manages event subscriptions and publishing.
// Publish never blocks: slow subscribers drop events, counted for monitoring.
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event // Subscribers to all events
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64
}

// NewEventBus creates a new event bus with the specified buffer size.
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if bufferSize > maxBufferSize {
		bufferSize = maxBufferSize
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		all:         make([]chan Event, 0),
		bufferSize:  bufferSize,
	}
}

// newSubscriberLocked allocates a subscriber channel; on a closed bus the
// channel comes back already closed so ranging over it terminates.
func (eb *EventBus) newSubscriberLocked() chan Event {
	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}
	return make(chan Event, eb.bufferSize)
}

// Subscribe creates a subscription to a specific event type.
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := eb.newSubscriberLocked()
	if !eb.closed {
		eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	}
	return ch
}

// SubscribeAll creates a subscription to all events.
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := eb.newSubscriberLocked()
	if !eb.closed {
		eb.all = append(eb.all, ch)
	}
	return ch
}

// Publish sends an event to all subscribers without blocking. A subscriber
// whose buffer is full misses the event; the drop is counted.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		eb.send(ch, event)
	}
	for _, ch := range eb.all {
		eb.send(ch, event)
	}
}

func (eb *EventBus) send(ch chan Event, event Event) {
	select {
	case ch <- event:
	default:
		eb.droppedEvents.Add(1)
	}
}

// without preserves order; subscriber slices are small.
func without(channels []chan Event, ch <-chan Event) []chan Event {
	for i, c := range channels {
		if c == ch {
			return append(channels[:i], channels[i+1:]...)
		}
	}
	return channels
}

// Unsubscribe removes a subscription channel from a specific event type.
func (eb *EventBus) Unsubscribe(eventType EventType, ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.subscribers[eventType] = without(eb.subscribers[eventType], ch)
}

// UnsubscribeAll removes a subscription channel from every event type
// and from the all-events list.
func (eb *EventBus) UnsubscribeAll(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	for eventType := range eb.subscribers {
		eb.subscribers[eventType] = without(eb.subscribers[eventType], ch)
	}
	eb.all = without(eb.all, ch)
}

// Close shuts down the event bus and closes all channels.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range eb.all {
		close(ch)
	}
}

// DroppedEventCount returns the total number of events dropped due to
// full subscriber buffers.
func (eb *EventBus) DroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}
