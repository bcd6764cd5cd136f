package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dfslink/dfslink/internal/dfspath"
	"github.com/dfslink/dfslink/internal/events"
	"github.com/dfslink/dfslink/internal/models"
)

// Uploader performs one upload to the gateway. *api.Client satisfies this.
type Uploader interface {
	Upload(ctx context.Context, dir, name string, payload io.Reader, size int64, progress func(sent int64)) (*models.GatewayResponse, error)
}

// Orchestrator owns one upload session: the queued items, the batch in
// flight, and its aggregate counters. Nothing else mutates item state.
//
// A batch is the set of items launched together by one StartBatch call.
// Aggregate progress is the arithmetic mean of percent across that set;
// items outside the batch do not participate. The batch finishes by
// exhaustion: every launched item reaching complete or failed, in any
// order.
type Orchestrator struct {
	uploader Uploader
	dest     dfspath.Path
	bus      *events.EventBus

	mu    sync.Mutex
	items []*Item // Session order, ids stable across removals
	byID  map[string]*Item

	// Current batch launch
	batchProgress map[string]int // Per-item percent, survives removal
	batchSize     int
	doneCount     int
	succeeded     int
	failed        int
	aggregate     int
	active        bool
	finished      bool

	ctx       context.Context
	cancelCtx context.CancelFunc
	wg        sync.WaitGroup
	closed    bool
}

// NewOrchestrator creates a session uploading into dest.
func NewOrchestrator(ctx context.Context, uploader Uploader, dest dfspath.Path, bus *events.EventBus) *Orchestrator {
	sctx, cancel := context.WithCancel(ctx)
	return &Orchestrator{
		uploader:      uploader,
		dest:          dest,
		bus:           bus,
		byID:          make(map[string]*Item),
		batchProgress: make(map[string]int),
		ctx:           sctx,
		cancelCtx:     cancel,
	}
}

// AddFiles queues one pending item per path, in order. Duplicate names
// are independent entries with their own ids. Returns the assigned ids.
// Files that cannot be stat'd are still queued and will fail at launch.
func (o *Orchestrator) AddFiles(paths ...string) []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}

	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		var size int64
		if fi, err := os.Stat(p); err == nil {
			size = fi.Size()
		}
		item := newItem(filepath.Base(p), p, size)
		o.items = append(o.items, item)
		o.byID[item.ID] = item
		ids = append(ids, item.ID)
		o.publishItem(events.EventTransferQueued, item)
	}
	return ids
}

// RemoveFile takes an item out of the session. An uploading item is
// cancelled first; remaining items keep their ids.
func (o *Orchestrator) RemoveFile(id string) error {
	o.mu.Lock()
	item, ok := o.byID[id]
	o.mu.Unlock()
	if !ok {
		return errors.New("item not found")
	}

	item.cancelUpload()

	o.mu.Lock()
	delete(o.byID, id)
	for i, it := range o.items {
		if it.ID == id {
			o.items = append(o.items[:i], o.items[i+1:]...)
			break
		}
	}
	o.publishItem(events.EventTransferRemoved, item)
	o.mu.Unlock()
	return nil
}

// StartBatch launches every pending and failed item concurrently and
// returns the batch size. No-op returning 0 when nothing is eligible.
func (o *Orchestrator) StartBatch() int {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return 0
	}

	// Mark first so the batch size reflects what actually launches: an
	// item may leave pending/failed between snapshot and mark otherwise.
	type launch struct {
		item *Item
		ctx  context.Context
	}
	var launches []launch
	for _, item := range o.items {
		s := item.GetStatus()
		if s != StatusPending && s != StatusFailed {
			continue
		}
		ctx, cancel := context.WithCancel(o.ctx)
		if !item.markUploading(cancel) {
			cancel()
			continue
		}
		launches = append(launches, launch{item, ctx})
	}
	if len(launches) == 0 {
		o.mu.Unlock()
		return 0
	}

	o.batchProgress = make(map[string]int, len(launches))
	o.batchSize = len(launches)
	o.doneCount = 0
	o.succeeded = 0
	o.failed = 0
	o.aggregate = 0
	o.active = true
	o.finished = false

	for _, l := range launches {
		o.batchProgress[l.item.ID] = 0
		o.wg.Add(1)
		go o.run(l.ctx, l.item)
	}
	n := o.batchSize
	o.mu.Unlock()
	return n
}

// run executes one item's transfer and records the outcome.
func (o *Orchestrator) run(ctx context.Context, item *Item) {
	defer o.wg.Done()

	o.publishItem(events.EventTransferStarted, item)

	f, err := os.Open(item.Source)
	if err != nil {
		o.finishItem(item, fmt.Errorf("open %s: %w", item.Source, err))
		return
	}
	defer f.Close()

	size := item.Size
	progress := func(sent int64) {
		p := percentOf(sent, size)
		item.setPercent(p)
		o.recordProgress(item.ID, p)
		o.publishItem(events.EventTransferProgress, item)
	}

	_, err = o.uploader.Upload(ctx, o.dest.Display(), item.Name, f, size, progress)
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %s", ErrCancelled, item.Name)
		}
		o.finishItem(item, err)
		return
	}

	item.markComplete()
	o.recordProgress(item.ID, 100)
	o.publishItem(events.EventTransferCompleted, item)
	o.finishOne(item.ID, true)
}

func (o *Orchestrator) finishItem(item *Item, err error) {
	item.markFailed(err)
	o.publishItem(events.EventTransferFailed, item)
	o.finishOne(item.ID, false)
}

// recordProgress folds one item's percent into the batch aggregate.
func (o *Orchestrator) recordProgress(id string, percent int) {
	o.mu.Lock()
	if _, ok := o.batchProgress[id]; ok {
		o.batchProgress[id] = percent
		o.recomputeAggregateLocked()
	}
	o.mu.Unlock()
}

// finishOne counts one terminal item toward batch exhaustion. Only items
// launched with the current batch participate: a stale outcome from an
// earlier launch must not tick the new batch's counters.
func (o *Orchestrator) finishOne(id string, success bool) {
	o.mu.Lock()
	if _, ok := o.batchProgress[id]; !ok {
		o.mu.Unlock()
		return
	}
	o.doneCount++
	if success {
		o.succeeded++
	} else {
		o.failed++
	}
	o.recomputeAggregateLocked()

	batchDone := o.doneCount >= o.batchSize
	if batchDone {
		o.active = false
		o.finished = true
	}
	size, ok, failed, agg := o.batchSize, o.succeeded, o.failed, o.aggregate
	o.mu.Unlock()

	if batchDone && o.bus != nil {
		o.bus.Publish(&events.BatchEvent{
			BaseEvent: events.BaseEvent{EventType: events.EventBatchFinished, Time: time.Now()},
			BatchSize: size,
			Succeeded: ok,
			Failed:    failed,
			Percent:   agg,
		})
	}
}

// Caller holds o.mu.
func (o *Orchestrator) recomputeAggregateLocked() {
	if len(o.batchProgress) == 0 {
		o.aggregate = 0
		return
	}
	sum := 0
	for _, p := range o.batchProgress {
		sum += p
	}
	n := len(o.batchProgress)
	o.aggregate = (sum + n/2) / n // Mean, rounded half up
}

// Retry re-queues a failed item for the next StartBatch. Only failed
// items are eligible.
func (o *Orchestrator) Retry(id string) error {
	o.mu.Lock()
	item, ok := o.byID[id]
	o.mu.Unlock()
	if !ok {
		return errors.New("item not found")
	}
	if !item.resetPending() {
		return errors.New("item is not failed")
	}
	o.publishItem(events.EventTransferQueued, item)
	return nil
}

// CancelAll cancels every uploading item. Pending, complete and failed
// items are untouched. Cancelled items land in failed with ErrCancelled.
func (o *Orchestrator) CancelAll() {
	o.mu.Lock()
	snapshot := make([]*Item, len(o.items))
	copy(snapshot, o.items)
	o.mu.Unlock()

	for _, item := range snapshot {
		item.cancelUpload()
	}
}

// Close cancels every in-flight item, waits for their outcomes to be
// recorded, then releases the session.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()

	o.CancelAll()
	o.wg.Wait()
	o.cancelCtx()
}

// Items returns clones of every item in session order.
func (o *Orchestrator) Items() []Item {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Item, len(o.items))
	for i, it := range o.items {
		out[i] = it.Clone()
	}
	return out
}

// Item returns a clone of one item by id.
func (o *Orchestrator) Item(id string) (Item, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	it, ok := o.byID[id]
	if !ok {
		return Item{}, false
	}
	return it.Clone(), true
}

// AggregateProgress returns the mean percent across the current batch.
func (o *Orchestrator) AggregateProgress() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.aggregate
}

// IsActive reports whether a batch is in flight.
func (o *Orchestrator) IsActive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// IsFinished reports whether the last launched batch ran to exhaustion.
func (o *Orchestrator) IsFinished() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.finished
}

// SuccessCount returns completed items in the current batch.
func (o *Orchestrator) SuccessCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.succeeded
}

// FailureCount returns failed items in the current batch.
func (o *Orchestrator) FailureCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.failed
}

// BatchSize returns the size of the last launched batch.
func (o *Orchestrator) BatchSize() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.batchSize
}

func (o *Orchestrator) publishItem(eventType events.EventType, item *Item) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(&events.TransferEvent{
		BaseEvent: events.BaseEvent{EventType: eventType, Time: time.Now()},
		ItemID:    item.ID,
		Name:      item.Name,
		Size:      item.Size,
		Percent:   item.GetPercent(),
		Err:       item.GetErr(),
	})
}

func percentOf(sent, total int64) int {
	if total <= 0 {
		if sent > 0 {
			return 100
		}
		return 0
	}
	p := int(sent * 100 / total)
	if p > 100 {
		p = 100
	}
	return p
}
