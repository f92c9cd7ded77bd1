package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"intohear/internal/models"
)

// newDownloadProgress renders model downloads as a byte progress bar on out.
// An unknown length renders a spinner.
func newDownloadProgress(out io.Writer) models.ProgressFunc {
	return func(label string, total int64) (io.Writer, func()) {
		bar := progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription("downloading "+label),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(out) }),
		)
		return bar, func() { _ = bar.Finish() }
	}
}

func isTerminal(file *os.File) bool {
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
