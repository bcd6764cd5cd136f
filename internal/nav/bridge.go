package nav

import (
	"sync"

	"github.com/dfslink/dfslink/internal/dfspath"
)

// Bridge keeps an indexable navigation history consistent with a host Port.
// The history is append-only except for forward-stack truncation on Push,
// the branch-discard rule of a linear undo stack.
//
// Invariant: 0 <= cursor < len(entries). The history always holds at least
// the root entry.
type Bridge struct {
	mu      sync.Mutex
	port    Port
	entries []dfspath.Path
	cursor  int
	handler func(dfspath.Path)
}

// NewBridge creates a bridge over the given port, seeded with the root
// entry, and registers itself for the port's change notifications.
func NewBridge(port Port) *Bridge {
	b := &Bridge{
		port:    port,
		entries: []dfspath.Path{dfspath.Root()},
		cursor:  0,
	}
	port.OnChange(b.handlePortChange)
	return b
}

// OnChange registers the handler invoked with the resolved path whenever
// the host reports a location change. Duplicate notifications for the
// path already current are dropped before the handler is reached.
func (b *Bridge) OnChange(handler func(dfspath.Path)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
}

// Push appends a new location, discarding forward entries here and in the
// host stack.
func (b *Bridge) Push(path dfspath.Path) {
	b.mu.Lock()
	b.entries = append(b.entries[:b.cursor+1], path)
	b.cursor = len(b.entries) - 1
	b.mu.Unlock()

	b.port.Push(path)
}

// handlePortChange translates a host location change into a cursor move.
// The cursor is resolved by linear match against known entries; a path
// the bridge has never seen is treated as an externally-injected new
// entry and appended rather than rejected.
func (b *Bridge) handlePortChange(path dfspath.Path) {
	b.mu.Lock()

	// Idempotent under duplicate notifications for the current path.
	if b.entries[b.cursor].Equal(path) {
		b.mu.Unlock()
		return
	}

	matched := false
	for i, entry := range b.entries {
		if entry.Equal(path) {
			b.cursor = i
			matched = true
			break
		}
	}
	if !matched {
		b.entries = append(b.entries, path)
		b.cursor = len(b.entries) - 1
	}

	handler := b.handler
	b.mu.Unlock()

	if handler != nil {
		handler(path)
	}
}

// Back asks the host to move back. A no-op at the oldest entry.
func (b *Bridge) Back() {
	b.mu.Lock()
	atStart := b.cursor == 0
	b.mu.Unlock()

	if atStart {
		return
	}
	b.port.Back()
}

// Forward asks the host to move forward. A no-op at the newest entry.
func (b *Bridge) Forward() {
	b.mu.Lock()
	atEnd := b.cursor >= len(b.entries)-1
	b.mu.Unlock()

	if atEnd {
		return
	}
	b.port.Forward()
}

// Current returns the entry at the cursor.
func (b *Bridge) Current() dfspath.Path {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.entries[b.cursor]
}

// Cursor returns the cursor index.
func (b *Bridge) Cursor() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursor
}

// Entries returns a copy of the history entries.
func (b *Bridge) Entries() []dfspath.Path {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]dfspath.Path, len(b.entries))
	copy(out, b.entries)
	return out
}

// CanBack reports whether a back move is possible.
func (b *Bridge) CanBack() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursor > 0
}

// CanForward reports whether a forward move is possible.
func (b *Bridge) CanForward() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursor < len(b.entries)-1
}
