package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"

	"github.com/dfslink/dfslink/internal/events"
)

// BatchUI renders one mpb bar per upload item, driven by transfer events.
// On a non-terminal it falls back to plain line output.
type BatchUI struct {
	progress   *mpb.Progress
	isTerminal bool
	totalFiles int

	mu      sync.Mutex
	bars    map[string]*itemBar // item id -> bar
	started int
}

type itemBar struct {
	bar        *mpb.Bar
	name       string
	size       int64
	index      int
	lastBytes  int64
	lastUpdate time.Time
	startTime  time.Time
}

// NewBatchUI creates a UI sized for totalFiles items.
func NewBatchUI(totalFiles int) *BatchUI {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))

	var p *mpb.Progress
	if isTerminal {
		p = mpb.New(
			mpb.WithOutput(os.Stderr),
			mpb.WithRefreshRate(300*time.Millisecond),
			mpb.WithWidth(80),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}

	return &BatchUI{
		progress:   p,
		isTerminal: isTerminal,
		totalFiles: totalFiles,
		bars:       make(map[string]*itemBar),
	}
}

// Listen consumes bus events and drives the bars. Returns the final
// batch summary when the batch finishes, or nil if ch closes first.
// Subscribe with SubscribeAll so transfer and batch events both arrive.
func (u *BatchUI) Listen(ch <-chan events.Event) *events.BatchEvent {
	for ev := range ch {
		switch e := ev.(type) {
		case *events.TransferEvent:
			u.handleTransfer(e)
		case *events.BatchEvent:
			if e.Type() == events.EventBatchFinished {
				u.Wait()
				return e
			}
		}
	}
	u.Wait()
	return nil
}

func (u *BatchUI) handleTransfer(e *events.TransferEvent) {
	switch e.Type() {
	case events.EventTransferStarted:
		u.addBar(e.ItemID, e.Name, e.Size)
	case events.EventTransferProgress:
		u.update(e.ItemID, e.Percent)
	case events.EventTransferCompleted:
		u.complete(e.ItemID, nil)
	case events.EventTransferFailed:
		u.complete(e.ItemID, e.Err)
	}
}

func (u *BatchUI) addBar(id, name string, size int64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.bars[id]; ok {
		return
	}
	u.started++
	ib := &itemBar{
		name:       name,
		size:       size,
		index:      u.started,
		startTime:  time.Now(),
		lastUpdate: time.Now(),
	}

	if u.isTerminal {
		label := fmt.Sprintf("[%d/%d] %s (%.1f MiB)",
			ib.index, u.totalFiles, name, float64(size)/(1024*1024))
		ib.bar = u.progress.New(size,
			mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]"),
			mpb.PrependDecorators(
				decor.Name(label, decor.WCSyncSpace),
			),
			mpb.AppendDecorators(
				decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
				decor.Name("  "),
				decor.Percentage(decor.WCSyncSpace),
				decor.Name("  "),
				decor.EwmaSpeed(decor.SizeB1024(0), "% .1f", 30, decor.WCSyncSpace),
			),
			mpb.BarRemoveOnComplete(),
		)
	} else {
		fmt.Printf("Uploading [%d/%d]: %s (%.1f MiB)\n",
			ib.index, u.totalFiles, name, float64(size)/(1024*1024))
	}
	u.bars[id] = ib
}

func (u *BatchUI) update(id string, percent int) {
	u.mu.Lock()
	ib := u.bars[id]
	u.mu.Unlock()
	if ib == nil || ib.bar == nil {
		return
	}

	now := time.Now()
	elapsed := now.Sub(ib.lastUpdate)
	currentBytes := int64(percent) * ib.size / 100
	delta := currentBytes - ib.lastBytes

	// Always feed elapsed time so EWMA speed stays accurate, but no more
	// than ~3 times per second.
	if elapsed >= 300*time.Millisecond {
		ib.bar.EwmaIncrBy(int(delta), elapsed)
		ib.lastBytes = currentBytes
		ib.lastUpdate = now
	}
}

func (u *BatchUI) complete(id string, err error) {
	u.mu.Lock()
	ib := u.bars[id]
	u.mu.Unlock()
	if ib == nil {
		return
	}

	elapsed := time.Since(ib.startTime)
	if err == nil {
		if ib.bar != nil {
			ib.bar.SetCurrent(ib.size)
			ib.bar.SetTotal(ib.size, true)
		}
		u.write(fmt.Sprintf("✓ %s (%.1f MiB, %s)\n",
			ib.name, float64(ib.size)/(1024*1024), elapsed.Round(time.Second)))
	} else {
		if ib.bar != nil {
			ib.bar.Abort(false)
		}
		u.write(fmt.Sprintf("✗ %s: %v\n", ib.name, err))
	}
}

// write prints above the bars through mpb's writer on a terminal.
func (u *BatchUI) write(msg string) {
	if u.isTerminal && u.progress != nil {
		u.progress.Write([]byte(msg))
		return
	}
	fmt.Print(msg)
}

// Wait blocks until every bar is done rendering.
func (u *BatchUI) Wait() {
	if u.progress != nil {
		u.progress.Wait()
	}
}

// Writer returns a writer that prints safely above active bars.
func (u *BatchUI) Writer() io.Writer {
	if u.progress != nil && u.isTerminal {
		return u.progress
	}
	return os.Stderr
}
