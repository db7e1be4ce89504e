package main

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// indexProgress renders semantic.ProgressFunc updates. Calls arrive
// serialized, with total fixed for one build.
type indexProgress struct {
	out   io.Writer
	ci    bool
	bar   *progressbar.ProgressBar
	total int
}

func newIndexProgress(out io.Writer) *indexProgress {
	return &indexProgress{
		out: out,
		ci:  os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "",
	}
}

func (p *indexProgress) update(done, total int) {
	if p.ci {
		fmt.Fprintf(p.out, "[%d/%d] chunks\n", done, total)
		return
	}
	if p.bar == nil || p.total != total {
		p.total = total
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("Embedding chunks"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = p.bar.Set(done)
}

func (p *indexProgress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
