package transfer

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dfslink/dfslink/internal/dfspath"
	"github.com/dfslink/dfslink/internal/events"
	"github.com/dfslink/dfslink/internal/models"
)

// fakeUploader scripts per-name outcomes: an error to return, a hold
// channel to block on, and sent values to report before returning.
type fakeUploader struct {
	mu    sync.Mutex
	errs  map[string]error
	hold  map[string]chan struct{}
	sends map[string][]int64
	calls []string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{
		errs:  make(map[string]error),
		hold:  make(map[string]chan struct{}),
		sends: make(map[string][]int64),
	}
}

func (f *fakeUploader) Upload(ctx context.Context, dir, name string, payload io.Reader, size int64, progress func(sent int64)) (*models.GatewayResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	err := f.errs[name]
	hold := f.hold[name]
	sends := f.sends[name]
	f.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	for _, sent := range sends {
		progress(sent)
	}

	if err != nil {
		return nil, err
	}
	return &models.GatewayResponse{Success: true}, nil
}

func (f *fakeUploader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// writeFiles creates real files of len(name) bytes and returns their paths.
func writeFiles(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, len(names))
	for i, name := range names {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
		paths[i] = p
	}
	return paths
}

func newTestOrchestrator(t *testing.T, up Uploader) (*Orchestrator, *events.EventBus) {
	t.Helper()
	bus := events.NewEventBus(200)
	t.Cleanup(bus.Close)
	o := NewOrchestrator(context.Background(), up, dfspath.Normalize("/incoming"), bus)
	t.Cleanup(o.Close)
	return o, bus
}

func waitBatchFinished(t *testing.T, ch <-chan events.Event) *events.BatchEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev.(*events.BatchEvent)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for batch to finish")
		return nil
	}
}

func TestAddFilesCreatesPendingItems(t *testing.T) {
	o, _ := newTestOrchestrator(t, newFakeUploader())
	paths := writeFiles(t, "a.txt", "b.txt")

	ids := o.AddFiles(paths...)
	if len(ids) != 2 {
		t.Fatalf("ids = %d, want 2", len(ids))
	}
	if ids[0] == ids[1] {
		t.Error("ids must be unique")
	}

	items := o.Items()
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	for i, it := range items {
		if it.Status != StatusPending {
			t.Errorf("item %d status = %s, want pending", i, it.Status)
		}
	}
	if items[0].Name != "a.txt" || items[1].Name != "b.txt" {
		t.Errorf("order not preserved: %s, %s", items[0].Name, items[1].Name)
	}
	if items[0].Size != int64(len("a.txt")) {
		t.Errorf("size = %d, want %d", items[0].Size, len("a.txt"))
	}
}

func TestDuplicateNamesAreIndependentEntries(t *testing.T) {
	o, _ := newTestOrchestrator(t, newFakeUploader())
	dir1 := writeFiles(t, "same.txt")
	dir2 := writeFiles(t, "same.txt")

	ids := o.AddFiles(dir1[0], dir2[0])
	if ids[0] == ids[1] {
		t.Error("duplicate names must still get distinct ids")
	}
	if got := len(o.Items()); got != 2 {
		t.Errorf("items = %d, want 2", got)
	}
}

func TestBatchMixedOutcome(t *testing.T) {
	// a.txt succeeds, b.txt fails with a network error: the batch still
	// finishes by exhaustion with one success and one failure.
	up := newFakeUploader()
	up.errs["b.txt"] = errors.New("connection refused")
	o, bus := newTestOrchestrator(t, up)
	finished := bus.Subscribe(events.EventBatchFinished)

	ids := o.AddFiles(writeFiles(t, "a.txt", "b.txt")...)

	if n := o.StartBatch(); n != 2 {
		t.Fatalf("batch size = %d, want 2", n)
	}
	batch := waitBatchFinished(t, finished)

	a, _ := o.Item(ids[0])
	b, _ := o.Item(ids[1])
	if a.Status != StatusComplete {
		t.Errorf("a.txt status = %s, want complete", a.Status)
	}
	if b.Status != StatusFailed {
		t.Errorf("b.txt status = %s, want failed", b.Status)
	}
	if b.Err == nil {
		t.Error("b.txt must carry its failure")
	}
	if !o.IsFinished() || o.IsActive() {
		t.Errorf("finished = %v active = %v, want true/false", o.IsFinished(), o.IsActive())
	}
	if o.SuccessCount() != 1 || o.FailureCount() != 1 {
		t.Errorf("counts = %d/%d, want 1/1", o.SuccessCount(), o.FailureCount())
	}
	if batch.Succeeded != 1 || batch.Failed != 1 || batch.BatchSize != 2 {
		t.Errorf("batch event = %+v", batch)
	}
}

func TestAggregateWithOneFailureAtZero(t *testing.T) {
	// Three of four complete, one fails without progress: mean is
	// (100*3 + 0) / 4 = 75.
	up := newFakeUploader()
	up.errs["d.txt"] = errors.New("gateway returned status 500")
	o, bus := newTestOrchestrator(t, up)
	finished := bus.Subscribe(events.EventBatchFinished)

	o.AddFiles(writeFiles(t, "a.txt", "b.txt", "c.txt", "d.txt")...)
	o.StartBatch()
	batch := waitBatchFinished(t, finished)

	if got := o.AggregateProgress(); got != 75 {
		t.Errorf("aggregate = %d, want 75", got)
	}
	if batch.Percent != 75 {
		t.Errorf("batch percent = %d, want 75", batch.Percent)
	}
}

func TestAggregateAllComplete(t *testing.T) {
	o, bus := newTestOrchestrator(t, newFakeUploader())
	finished := bus.Subscribe(events.EventBatchFinished)

	o.AddFiles(writeFiles(t, "a.txt", "b.txt", "c.txt")...)
	o.StartBatch()
	waitBatchFinished(t, finished)

	if got := o.AggregateProgress(); got != 100 {
		t.Errorf("aggregate = %d, want 100", got)
	}
}

func TestStartBatchEmptyIsNoop(t *testing.T) {
	o, _ := newTestOrchestrator(t, newFakeUploader())

	if n := o.StartBatch(); n != 0 {
		t.Errorf("batch size = %d, want 0", n)
	}
	if o.IsActive() || o.IsFinished() {
		t.Errorf("empty start must not flip session flags: active=%v finished=%v",
			o.IsActive(), o.IsFinished())
	}
}

func TestRemovePendingItem(t *testing.T) {
	up := newFakeUploader()
	o, bus := newTestOrchestrator(t, up)
	finished := bus.Subscribe(events.EventBatchFinished)

	ids := o.AddFiles(writeFiles(t, "a.txt", "b.txt", "c.txt")...)
	if err := o.RemoveFile(ids[1]); err != nil {
		t.Fatal(err)
	}

	items := o.Items()
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	// Remaining ids are untouched.
	if items[0].ID != ids[0] || items[1].ID != ids[2] {
		t.Errorf("remaining ids changed: %s, %s", items[0].ID, items[1].ID)
	}

	if n := o.StartBatch(); n != 2 {
		t.Errorf("batch size = %d, want 2 after removal", n)
	}
	waitBatchFinished(t, finished)

	if up.callCount() != 2 {
		t.Errorf("uploads = %d, want 2", up.callCount())
	}
}

func TestRemoveUnknownItem(t *testing.T) {
	o, _ := newTestOrchestrator(t, newFakeUploader())
	if err := o.RemoveFile("nope"); err == nil {
		t.Error("removing an unknown id must error")
	}
}

func TestCancelAllFailsUploadingOnly(t *testing.T) {
	up := newFakeUploader()
	up.hold["a.txt"] = make(chan struct{})
	up.hold["b.txt"] = make(chan struct{})
	o, bus := newTestOrchestrator(t, up)
	finished := bus.Subscribe(events.EventBatchFinished)
	started := bus.Subscribe(events.EventTransferStarted)

	ids := o.AddFiles(writeFiles(t, "a.txt", "b.txt")...)
	o.StartBatch()

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatal("uploads did not start")
		}
	}

	o.CancelAll()
	waitBatchFinished(t, finished)

	for _, id := range ids {
		it, _ := o.Item(id)
		if it.Status != StatusFailed {
			t.Errorf("%s status = %s, want failed", it.Name, it.Status)
		}
		if !errors.Is(it.Err, ErrCancelled) {
			t.Errorf("%s err = %v, want ErrCancelled", it.Name, it.Err)
		}
	}
	if !o.IsFinished() {
		t.Error("cancelled batch must still finish by exhaustion")
	}
}

func TestCancelAllLeavesPendingAlone(t *testing.T) {
	o, _ := newTestOrchestrator(t, newFakeUploader())
	ids := o.AddFiles(writeFiles(t, "a.txt")...)

	o.CancelAll()

	it, _ := o.Item(ids[0])
	if it.Status != StatusPending {
		t.Errorf("status = %s, want pending", it.Status)
	}
}

func TestRetryRelaunchesOnlyFailedItem(t *testing.T) {
	up := newFakeUploader()
	up.errs["b.txt"] = errors.New("connection refused")
	o, bus := newTestOrchestrator(t, up)
	finished := bus.Subscribe(events.EventBatchFinished)

	ids := o.AddFiles(writeFiles(t, "a.txt", "b.txt")...)
	o.StartBatch()
	waitBatchFinished(t, finished)

	// The path recovers.
	up.mu.Lock()
	delete(up.errs, "b.txt")
	up.mu.Unlock()

	if err := o.Retry(ids[1]); err != nil {
		t.Fatal(err)
	}
	it, _ := o.Item(ids[1])
	if it.Status != StatusPending {
		t.Fatalf("status after retry = %s, want pending", it.Status)
	}

	if n := o.StartBatch(); n != 1 {
		t.Fatalf("second batch size = %d, want 1 (only the failed item)", n)
	}
	waitBatchFinished(t, finished)

	it, _ = o.Item(ids[1])
	if it.Status != StatusComplete {
		t.Errorf("status = %s, want complete", it.Status)
	}
	// a.txt once, b.txt twice.
	if up.callCount() != 3 {
		t.Errorf("uploads = %d, want 3", up.callCount())
	}
}

func TestRetryRejectsNonFailedItem(t *testing.T) {
	o, bus := newTestOrchestrator(t, newFakeUploader())
	finished := bus.Subscribe(events.EventBatchFinished)

	ids := o.AddFiles(writeFiles(t, "a.txt")...)
	if err := o.Retry(ids[0]); err == nil {
		t.Error("retrying a pending item must error")
	}

	o.StartBatch()
	waitBatchFinished(t, finished)
	if err := o.Retry(ids[0]); err == nil {
		t.Error("retrying a complete item must error")
	}
}

func TestProgressReachesAggregate(t *testing.T) {
	up := newFakeUploader()
	up.hold["slow.txt"] = make(chan struct{})
	size := int64(len("fast.txt"))
	up.sends["fast.txt"] = []int64{size / 2, size}
	o, bus := newTestOrchestrator(t, up)
	completed := bus.Subscribe(events.EventTransferCompleted)
	finished := bus.Subscribe(events.EventBatchFinished)

	o.AddFiles(writeFiles(t, "fast.txt", "slow.txt")...)
	o.StartBatch()

	select {
	case <-completed:
	case <-time.After(2 * time.Second):
		t.Fatal("fast.txt did not complete")
	}

	// fast.txt at 100, slow.txt still at 0: mean is 50.
	if got := o.AggregateProgress(); got != 50 {
		t.Errorf("aggregate = %d, want 50", got)
	}
	if !o.IsActive() {
		t.Error("batch with one item in flight must stay active")
	}

	close(up.hold["slow.txt"])
	waitBatchFinished(t, finished)
	if got := o.AggregateProgress(); got != 100 {
		t.Errorf("aggregate = %d, want 100", got)
	}
}

func TestCloseCancelsInFlight(t *testing.T) {
	up := newFakeUploader()
	up.hold["a.txt"] = make(chan struct{})
	bus := events.NewEventBus(200)
	defer bus.Close()
	o := NewOrchestrator(context.Background(), up, dfspath.Root(), bus)
	started := bus.Subscribe(events.EventTransferStarted)

	ids := o.AddFiles(writeFiles(t, "a.txt")...)
	o.StartBatch()
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("upload did not start")
	}

	o.Close() // Blocks until the cancelled outcome is recorded

	it, _ := o.Item(ids[0])
	if it.Status != StatusFailed || !errors.Is(it.Err, ErrCancelled) {
		t.Errorf("status = %s err = %v, want failed/ErrCancelled", it.Status, it.Err)
	}
	if o.AddFiles(writeFiles(t, "b.txt")...) != nil {
		t.Error("closed session must not accept files")
	}
}

func TestMissingSourceFailsAtLaunch(t *testing.T) {
	o, bus := newTestOrchestrator(t, newFakeUploader())
	finished := bus.Subscribe(events.EventBatchFinished)

	ids := o.AddFiles(filepath.Join(t.TempDir(), "ghost.txt"))
	o.StartBatch()
	waitBatchFinished(t, finished)

	it, _ := o.Item(ids[0])
	if it.Status != StatusFailed {
		t.Errorf("status = %s, want failed", it.Status)
	}
	if it.Err == nil {
		t.Error("open failure must be recorded on the item")
	}
}

func TestStaleOutcomeDoesNotTickNewBatch(t *testing.T) {
	// An item still uploading from an earlier launch reaches its terminal
	// state after a new StartBatch. Its outcome belongs to the old launch
	// and must not advance the new batch toward exhaustion.
	up := newFakeUploader()
	up.hold["a.txt"] = make(chan struct{})
	up.hold["c.txt"] = make(chan struct{})
	o, bus := newTestOrchestrator(t, up)
	started := bus.Subscribe(events.EventTransferStarted)
	completed := bus.Subscribe(events.EventTransferCompleted)
	finished := bus.Subscribe(events.EventBatchFinished)

	o.AddFiles(writeFiles(t, "a.txt")...)
	if n := o.StartBatch(); n != 1 {
		t.Fatalf("first batch size = %d, want 1", n)
	}
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first upload did not start")
	}

	o.AddFiles(writeFiles(t, "c.txt")...)
	if n := o.StartBatch(); n != 1 {
		t.Fatalf("second batch size = %d, want 1", n)
	}
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("second upload did not start")
	}

	close(up.hold["a.txt"])
	select {
	case <-completed:
	case <-time.After(2 * time.Second):
		t.Fatal("first upload did not complete")
	}

	if o.IsFinished() {
		t.Error("batch reported finished while its only item is still uploading")
	}
	if got := o.SuccessCount(); got != 0 {
		t.Errorf("succeeded = %d, want 0 (stale outcome must not count)", got)
	}

	close(up.hold["c.txt"])
	ev := waitBatchFinished(t, finished)
	if ev.BatchSize != 1 || ev.Succeeded != 1 || ev.Failed != 0 {
		t.Errorf("batch event = %+v, want size 1, 1 succeeded", ev)
	}
}
