package index

import (
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// ProgressEnabled reports whether stderr is a terminal worth drawing a bar on.
func ProgressEnabled() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// BarProgress renders ProgressFunc updates as a progress bar on stderr,
// starting a new bar whenever the phase changes.
type BarProgress struct {
	phase string
	bar   *progressbar.ProgressBar
}

// Update implements ProgressFunc.
func (b *BarProgress) Update(phase string, processed, total int) {
	if total <= 0 {
		return
	}
	if b.bar == nil || phase != b.phase {
		b.Finish()
		b.phase = phase
		b.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription(phase),
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
	_ = b.bar.Set(processed)
}

// Finish clears the current bar, if any.
func (b *BarProgress) Finish() {
	if b.bar == nil {
		return
	}
	_ = b.bar.Finish()
	b.bar = nil
}
