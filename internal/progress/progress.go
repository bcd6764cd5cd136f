// Package progress renders transfer progress for the CLI: a multi-bar
// display for upload batches and a single bar for one-shot transfers.
package progress

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Reporter reports progress for a single transfer.
type Reporter interface {
	Start(total int64, description string)
	Update(current int64)
	Finish()
	Error(err error)
}

// SingleBar is a Reporter backed by one progress bar on stderr.
type SingleBar struct {
	bar *progressbar.ProgressBar
}

// NewSingleBar creates an unstarted single-transfer reporter.
func NewSingleBar() *SingleBar {
	return &SingleBar{}
}

// Start initializes the bar with total size and description.
func (p *SingleBar) Start(total int64, description string) {
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Update moves the bar to the current byte count.
func (p *SingleBar) Update(current int64) {
	if p.bar != nil {
		_ = p.bar.Set64(current)
	}
}

// Finish completes the bar.
func (p *SingleBar) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Error prints the failure below the bar.
func (p *SingleBar) Error(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
	}
}

// Quiet is a Reporter that renders nothing.
type Quiet struct{}

func (Quiet) Start(int64, string) {}
func (Quiet) Update(int64)        {}
func (Quiet) Finish()             {}
func (Quiet) Error(error)         {}
