package app

import (
	"fmt"
	"io"
	"os"
)

// Progress prints an in-place completion percentage.
type Progress struct {
	out  io.Writer
	last int
}

// NewProgress creates a Progress writing to out, or stdout when out is nil.
func NewProgress(out io.Writer) *Progress {
	if out == nil {
		out = os.Stdout
	}
	return &Progress{out: out, last: -1}
}

// Report prints the percentage when it changes.
func (p *Progress) Report(done, total int) {
	if total <= 0 {
		return
	}
	percent := done * 100 / total
	if percent == p.last {
		return
	}
	p.last = percent
	fmt.Fprintf(p.out, "\r Done %d %%", percent)
}

// Done ends the current progress line.
func (p *Progress) Done() {
	if p.last >= 0 {
		fmt.Fprintln(p.out)
	}
	p.last = -1
}
