package graph

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// ProgressReporter is notified as a backfill walks the videos.
type ProgressReporter interface {
	Start(total int)
	Increment()
	Finish()
}

// BarProgress draws a progress bar on a writer.
type BarProgress struct {
	out  io.Writer
	desc string
	bar  *progressbar.ProgressBar
}

// NewBarProgress returns a reporter drawing to out, or nil when disabled.
func NewBarProgress(enabled bool, out io.Writer, desc string) ProgressReporter {
	if !enabled {
		return nil
	}
	if out == nil {
		out = os.Stderr
	}
	return &BarProgress{out: out, desc: desc}
}

func (p *BarProgress) Start(total int) {
	if total <= 0 {
		return
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription(p.desc),
		progressbar.OptionSetWidth(32),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func (p *BarProgress) Increment() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Add(1)
}

func (p *BarProgress) Finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}

// DefaultProgressEnabled reports whether stderr is a terminal.
func DefaultProgressEnabled() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

type nopProgress struct{}

func (nopProgress) Start(int)  {}
func (nopProgress) Increment() {}
func (nopProgress) Finish()    {}
