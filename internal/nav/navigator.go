package nav

import (
	"context"
	"sync"
	"time"

	"github.com/dfslink/dfslink/internal/dfspath"
	"github.com/dfslink/dfslink/internal/events"
	"github.com/dfslink/dfslink/internal/models"
)

// Phase is the navigator's listing state.
type Phase string

const (
	PhaseIdle    Phase = "idle"    // No fetch issued yet
	PhaseLoading Phase = "loading" // A listing fetch is in flight
	PhaseLoaded  Phase = "loaded"  // Entries for the current path are available
	PhaseError   Phase = "error"   // The last fetch for the current path failed
)

// Lister fetches one directory listing. The navigator is its only retry
// policy: a Lister implementation must not retry internally.
type Lister interface {
	List(ctx context.Context, dir dfspath.Path) (models.Listing, error)
}

// Navigator owns the current location. It composes the history bridge with
// a Lister and guarantees last-request-wins: when fetches overlap, only the
// most recently requested navigation's result is applied.
//
// All mutation goes through the navigator's own requests or the bridge's
// change notifications; observers read snapshots or subscribe to the bus.
type Navigator struct {
	mu      sync.Mutex
	bridge  *Bridge
	lister  Lister
	bus     *events.EventBus
	ctx     context.Context
	phase   Phase
	current dfspath.Path
	listing models.Listing
	lastErr error
	fetches uint64 // generation counter; result application requires a match
}

// NewNavigator creates a navigator over the given bridge and lister.
// ctx bounds every fetch the navigator launches.
func NewNavigator(ctx context.Context, bridge *Bridge, lister Lister, bus *events.EventBus) *Navigator {
	n := &Navigator{
		bridge:  bridge,
		lister:  lister,
		bus:     bus,
		ctx:     ctx,
		phase:   PhaseIdle,
		current: dfspath.Root(),
	}
	bridge.OnChange(n.handleLocationChange)
	return n
}

// Navigate moves to the given raw path. Once a fetch has been issued,
// navigating to the current path is a complete no-op: no history entry, no
// fetch. On a fresh navigator the same call performs the initial load.
// Otherwise the path is pushed and a listing fetch launched; completion
// arrives via the event bus. The call itself never blocks on the network.
func (n *Navigator) Navigate(raw string) {
	n.navigateTo(dfspath.Normalize(raw))
}

// Home navigates to the root.
func (n *Navigator) Home() {
	n.navigateTo(dfspath.Root())
}

func (n *Navigator) navigateTo(path dfspath.Path) {
	n.mu.Lock()
	if path.Equal(n.current) {
		// Nothing fetched yet: the initial load of the starting path lands
		// here. Fetch in place, no history entry.
		if n.phase == PhaseIdle {
			n.beginFetchLocked(path)
		}
		n.mu.Unlock()
		return
	}
	n.mu.Unlock()

	n.bridge.Push(path)

	n.mu.Lock()
	n.beginFetchLocked(path)
	n.mu.Unlock()
}

// Back moves one history entry back. A no-op at the oldest entry. The
// resulting bridge notification performs the actual transition, keeping a
// single source of truth for the current path.
func (n *Navigator) Back() {
	n.bridge.Back()
}

// Forward moves one history entry forward. A no-op at the newest entry.
func (n *Navigator) Forward() {
	n.bridge.Forward()
}

// Retry refetches the current path without touching the history position.
// Intended for recovering from PhaseError.
func (n *Navigator) Retry() {
	n.mu.Lock()
	n.beginFetchLocked(n.current)
	n.mu.Unlock()
}

// handleLocationChange is the bridge's notification path: back/forward
// moves and externally-injected locations land here.
func (n *Navigator) handleLocationChange(path dfspath.Path) {
	n.mu.Lock()
	if path.Equal(n.current) && n.phase != PhaseIdle {
		n.mu.Unlock()
		return
	}
	n.beginFetchLocked(path)
	n.mu.Unlock()
}

// beginFetchLocked transitions to Loading for path and launches the fetch.
// Caller holds n.mu.
func (n *Navigator) beginFetchLocked(path dfspath.Path) {
	n.current = path
	n.phase = PhaseLoading
	n.lastErr = nil
	n.fetches++
	generation := n.fetches

	n.publish(&events.HistoryEvent{
		BaseEvent: events.BaseEvent{EventType: events.EventHistoryChanged, Time: time.Now()},
		Path:      path.Display(),
		Cursor:    n.bridge.Cursor(),
		Entries:   len(n.bridge.Entries()),
	})
	n.publish(&events.NavEvent{
		BaseEvent: events.BaseEvent{EventType: events.EventNavStarted, Time: time.Now()},
		Path:      path.Display(),
	})

	go n.fetch(generation, path)
}

// fetch runs one listing call and applies the result only if no newer
// navigation superseded it.
func (n *Navigator) fetch(generation uint64, path dfspath.Path) {
	result, err := n.lister.List(n.ctx, path)

	n.mu.Lock()
	if generation != n.fetches {
		n.mu.Unlock()
		// Discarded outcome, success or failure: announced as superseded
		// with the stale error attached when there was one.
		n.publish(&events.NavEvent{
			BaseEvent:  events.BaseEvent{EventType: events.EventNavSuperseded, Time: time.Now()},
			Path:       path.Display(),
			Err:        err,
			Superseded: true,
		})
		return
	}

	if err != nil {
		n.phase = PhaseError
		n.lastErr = err
		n.mu.Unlock()
		n.publish(&events.NavEvent{
			BaseEvent: events.BaseEvent{EventType: events.EventNavFailed, Time: time.Now()},
			Path:      path.Display(),
			Err:       err,
		})
		return
	}

	n.phase = PhaseLoaded
	n.listing = result
	n.mu.Unlock()

	n.publish(&events.NavEvent{
		BaseEvent: events.BaseEvent{EventType: events.EventNavLoaded, Time: time.Now()},
		Path:      path.Display(),
		Files:     len(result.Files),
		Dirs:      len(result.Directories),
	})
}

func (n *Navigator) publish(ev events.Event) {
	if n.bus != nil {
		n.bus.Publish(ev)
	}
}

// Phase returns the navigator's current phase.
func (n *Navigator) Phase() Phase {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.phase
}

// CurrentPath returns the current location.
func (n *Navigator) CurrentPath() dfspath.Path {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Listing returns the entries for the current path. Valid in PhaseLoaded;
// in other phases it holds the previous listing, which the caller may keep
// showing while a fetch is in flight.
func (n *Navigator) Listing() models.Listing {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.listing
}

// Err returns the failure that put the navigator in PhaseError, or nil.
func (n *Navigator) Err() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastErr
}

// History exposes the bridge for read access to entries and cursor.
func (n *Navigator) History() *Bridge {
	return n.bridge
}
