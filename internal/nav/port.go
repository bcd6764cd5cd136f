// Package nav owns the current-location state machine: a history stack
// synchronized with a host navigation port, and a navigator that drives
// listing fetches with last-request-wins semantics.
package nav

import (
	"sync"

	"github.com/dfslink/dfslink/internal/dfspath"
)

// Port is the host's addressable-location mechanism: somewhere to push new
// locations, a back/forward affordance, and a change notification when the
// user moves within it. In a browser this is the history API; here it is
// an injected dependency so the navigation core runs against anything.
type Port interface {
	// Push adds a new location, discarding any forward locations.
	// Push does not trigger a change notification; only user movement
	// (Back/Forward or an external jump) does.
	Push(path dfspath.Path)

	// Back asks the host to move one location back. A no-op at the
	// oldest location. Movement is reported through the OnChange handler.
	Back()

	// Forward asks the host to move one location forward. A no-op at the
	// newest location.
	Forward()

	// OnChange registers the handler invoked whenever the host's current
	// location changes through Back/Forward or an external jump.
	OnChange(handler func(path dfspath.Path))
}

// MemoryPort is the in-process Port: the CLI's own back/forward stack,
// and the test double for the navigation core. Notifications fire
// synchronously on the calling goroutine, matching the reentrant dispatch
// of a host event loop.
type MemoryPort struct {
	mu      sync.Mutex
	stack   []dfspath.Path
	cursor  int
	handler func(dfspath.Path)
}

// NewMemoryPort creates a MemoryPort positioned at the root.
func NewMemoryPort() *MemoryPort {
	return &MemoryPort{
		stack:  []dfspath.Path{dfspath.Root()},
		cursor: 0,
	}
}

// Push implements Port.
func (m *MemoryPort) Push(path dfspath.Path) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stack = append(m.stack[:m.cursor+1], path)
	m.cursor = len(m.stack) - 1
}

// Back implements Port.
func (m *MemoryPort) Back() {
	m.mu.Lock()
	if m.cursor == 0 {
		m.mu.Unlock()
		return
	}
	m.cursor--
	path := m.stack[m.cursor]
	handler := m.handler
	m.mu.Unlock()

	if handler != nil {
		handler(path)
	}
}

// Forward implements Port.
func (m *MemoryPort) Forward() {
	m.mu.Lock()
	if m.cursor >= len(m.stack)-1 {
		m.mu.Unlock()
		return
	}
	m.cursor++
	path := m.stack[m.cursor]
	handler := m.handler
	m.mu.Unlock()

	if handler != nil {
		handler(path)
	}
}

// OnChange implements Port.
func (m *MemoryPort) OnChange(handler func(dfspath.Path)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = handler
}

// Jump moves the port to an arbitrary path outside the Push/Back/Forward
// flow, the way a user edits a browser's address bar. Used to exercise the
// bridge's externally-injected-entry handling.
func (m *MemoryPort) Jump(path dfspath.Path) {
	m.mu.Lock()
	m.stack = append(m.stack[:m.cursor+1], path)
	m.cursor = len(m.stack) - 1
	handler := m.handler
	m.mu.Unlock()

	if handler != nil {
		handler(path)
	}
}
