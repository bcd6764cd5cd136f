package transfer

import (
	"context"
	"errors"
	"testing"
)

func TestItemLifecycle(t *testing.T) {
	it := newItem("a.txt", "/tmp/a.txt", 10)
	if it.GetStatus() != StatusPending {
		t.Fatalf("new item status = %s, want pending", it.GetStatus())
	}

	if !it.markUploading(func() {}) {
		t.Fatal("pending item must accept markUploading")
	}
	it.setPercent(40)
	if it.GetPercent() != 40 {
		t.Errorf("percent = %d, want 40", it.GetPercent())
	}

	it.markComplete()
	if it.GetStatus() != StatusComplete || it.GetPercent() != 100 {
		t.Errorf("status = %s percent = %d, want complete/100", it.GetStatus(), it.GetPercent())
	}
}

func TestCompleteIsAbsorbing(t *testing.T) {
	it := newItem("a.txt", "/tmp/a.txt", 10)
	it.markUploading(func() {})
	it.markComplete()

	it.markFailed(errors.New("late error"))
	if it.GetStatus() != StatusComplete {
		t.Errorf("complete item regressed to %s", it.GetStatus())
	}
	if it.markUploading(func() {}) {
		t.Error("complete item must not re-enter uploading")
	}
	if it.resetPending() {
		t.Error("complete item must not reset to pending")
	}
}

func TestFailedResetsOnlyViaRetry(t *testing.T) {
	it := newItem("a.txt", "/tmp/a.txt", 10)
	it.markUploading(func() {})
	it.setPercent(30)
	it.markFailed(errors.New("connection refused"))

	if it.GetStatus() != StatusFailed || it.GetErr() == nil {
		t.Fatalf("status = %s err = %v", it.GetStatus(), it.GetErr())
	}

	if !it.resetPending() {
		t.Fatal("failed item must reset via retry")
	}
	if it.GetStatus() != StatusPending || it.GetPercent() != 0 || it.GetErr() != nil {
		t.Errorf("reset item = %s/%d/%v, want pending/0/nil",
			it.GetStatus(), it.GetPercent(), it.GetErr())
	}
}

func TestCancelHandleHeldOnlyWhileUploading(t *testing.T) {
	it := newItem("a.txt", "/tmp/a.txt", 10)

	if it.cancelUpload() {
		t.Error("pending item has no cancel handle")
	}

	ctx, cancel := context.WithCancel(context.Background())
	it.markUploading(cancel)
	if !it.cancelUpload() {
		t.Error("uploading item must cancel")
	}
	if ctx.Err() == nil {
		t.Error("cancel handle was not invoked")
	}

	it.markFailed(context.Canceled)
	if it.cancelUpload() {
		t.Error("failed item must have dropped its cancel handle")
	}
}

func TestSetPercentClampsAndGates(t *testing.T) {
	it := newItem("a.txt", "/tmp/a.txt", 10)

	it.setPercent(50)
	if it.GetPercent() != 0 {
		t.Error("percent must not move outside uploading")
	}

	it.markUploading(func() {})
	it.setPercent(200)
	if it.GetPercent() != 100 {
		t.Errorf("percent = %d, want clamped to 100", it.GetPercent())
	}
	it.setPercent(-5)
	if it.GetPercent() != 0 {
		t.Errorf("percent = %d, want clamped to 0", it.GetPercent())
	}
}
