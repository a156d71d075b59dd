// Package progress provides byte-level progress reporting for file
// transfers. Bars render to stderr; quiet mode swaps in a no-op reporter.
package progress

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Reporter receives progress updates during a transfer.
type Reporter interface {
	Start(total int64, description string)
	Add(n int64)
	Finish()
}

// New returns a bar reporter, or a no-op one when quiet is set.
func New(quiet bool) Reporter {
	if quiet {
		return noop{}
	}
	return &Bar{}
}

// Bar renders a single transfer's progress to stderr.
type Bar struct {
	bar *progressbar.ProgressBar
}

// Start initializes the bar with the transfer size and a label.
func (p *Bar) Start(total int64, description string) {
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

// Add advances the bar by n bytes.
func (p *Bar) Add(n int64) {
	if p.bar != nil {
		_ = p.bar.Add64(n)
	}
}

// Finish completes the bar.
func (p *Bar) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

type noop struct{}

func (noop) Start(int64, string) {}
func (noop) Add(int64)           {}
func (noop) Finish()             {}
