// Package transfer manages upload batches against the gateway.
// The orchestrator owns all item state; observers read clones and
// watch the event bus.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCancelled is the failure reason recorded when an upload is cancelled.
// Cancelled items land in StatusFailed with this error wrapped in.
var ErrCancelled = errors.New("transfer cancelled")

// Status represents the lifecycle state of an upload item.
type Status string

const (
	StatusPending   Status = "pending"   // Added to the session, not yet launched
	StatusUploading Status = "uploading" // Transfer in flight
	StatusComplete  Status = "complete"  // Terminal, cannot leave
	StatusFailed    Status = "failed"    // Terminal until explicit retry
)

// Item is a single file queued for upload. All fields are guarded by mu;
// external readers get copies via Clone.
type Item struct {
	ID     string // Unique id, stable across retries
	Name   string // Display name (filename)
	Source string // Local filesystem path
	Size   int64  // Payload size in bytes

	Status  Status
	Percent int   // 0 to 100
	Err     error // Set while StatusFailed

	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time

	mu     sync.RWMutex
	cancel context.CancelFunc // Held only while StatusUploading
}

func newItem(name, source string, size int64) *Item {
	return &Item{
		ID:        generateItemID(),
		Name:      name,
		Source:    source,
		Size:      size,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}

// GetStatus returns the current status.
func (it *Item) GetStatus() Status {
	it.mu.RLock()
	defer it.mu.RUnlock()
	return it.Status
}

// GetPercent returns the current progress percent.
func (it *Item) GetPercent() int {
	it.mu.RLock()
	defer it.mu.RUnlock()
	return it.Percent
}

// GetErr returns the recorded failure, or nil.
func (it *Item) GetErr() error {
	it.mu.RLock()
	defer it.mu.RUnlock()
	return it.Err
}

// IsTerminal reports whether the item is complete or failed.
func (it *Item) IsTerminal() bool {
	s := it.GetStatus()
	return s == StatusComplete || s == StatusFailed
}

// markUploading transitions pending/failed to uploading and stores the
// cancel handle for the in-flight transfer.
func (it *Item) markUploading(cancel context.CancelFunc) bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.Status != StatusPending && it.Status != StatusFailed {
		return false
	}
	it.Status = StatusUploading
	it.Percent = 0
	it.Err = nil
	it.StartedAt = time.Now()
	it.FinishedAt = time.Time{}
	it.cancel = cancel
	return true
}

// setPercent records progress. Only meaningful while uploading.
func (it *Item) setPercent(p int) {
	if p < 0 {
		p = 0
	} else if p > 100 {
		p = 100
	}
	it.mu.Lock()
	if it.Status == StatusUploading {
		it.Percent = p
	}
	it.mu.Unlock()
}

// markComplete is terminal. The cancel handle is dropped.
func (it *Item) markComplete() {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.Status == StatusComplete {
		return
	}
	it.Status = StatusComplete
	it.Percent = 100
	it.Err = nil
	it.FinishedAt = time.Now()
	it.cancel = nil
}

// markFailed records err and drops the cancel handle. Complete items
// never regress.
func (it *Item) markFailed(err error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.Status == StatusComplete {
		return
	}
	it.Status = StatusFailed
	it.Err = err
	it.FinishedAt = time.Now()
	it.cancel = nil
}

// resetPending re-queues a failed item for the next batch. Returns false
// for any other state: retry is only valid from failed.
func (it *Item) resetPending() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.Status != StatusFailed {
		return false
	}
	it.Status = StatusPending
	it.Percent = 0
	it.Err = nil
	it.StartedAt = time.Time{}
	it.FinishedAt = time.Time{}
	return true
}

// cancelUpload invokes the stored cancel handle if the item is uploading.
// The transfer goroutine observes the context error and records the
// failure; this method does not change state itself.
func (it *Item) cancelUpload() bool {
	it.mu.Lock()
	cancel := it.cancel
	uploading := it.Status == StatusUploading
	it.mu.Unlock()

	if uploading && cancel != nil {
		cancel()
		return true
	}
	return false
}

// Clone returns a copy safe for external use.
func (it *Item) Clone() Item {
	it.mu.RLock()
	defer it.mu.RUnlock()
	return Item{
		ID:         it.ID,
		Name:       it.Name,
		Source:     it.Source,
		Size:       it.Size,
		Status:     it.Status,
		Percent:    it.Percent,
		Err:        it.Err,
		CreatedAt:  it.CreatedAt,
		StartedAt:  it.StartedAt,
		FinishedAt: it.FinishedAt,
	}
}

var (
	itemCounter uint64
	itemMu      sync.Mutex
)

func generateItemID() string {
	itemMu.Lock()
	defer itemMu.Unlock()
	itemCounter++
	return fmt.Sprintf("item-%d", itemCounter)
}
