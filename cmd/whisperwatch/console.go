package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"whisperwatch/internal/queue"
	"whisperwatch/internal/subtitles"
)

// consoleListener renders pipeline events for a human at the terminal. On a
// TTY it keeps a single progress bar alive per job and interleaves segment
// lines above it; on plain pipes it degrades to one line per stage change.
type consoleListener struct {
	out         io.Writer
	interactive bool

	mu        sync.Mutex
	bar       *progressbar.ProgressBar
	lastStage string
}

func newConsoleListener(out io.Writer) *consoleListener {
	interactive := false
	if f, ok := out.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &consoleListener{out: out, interactive: interactive}
}

func (c *consoleListener) QueueChanged([]queue.Job) {}

func (c *consoleListener) JobStarted(job queue.Job) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "Transcribing %s (model %s)\n", filepath.Base(job.SourcePath), job.Model)
	c.lastStage = ""
	if c.interactive {
		c.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(c.out),
			progressbar.OptionSetDescription("Starting job"),
			progressbar.OptionSetWidth(30),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
}

func (c *consoleListener) Progress(_ string, stage string, percent int, detail string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.interactive && c.bar != nil {
		label := stage
		if detail != "" {
			label = stage + " · " + detail
		}
		c.bar.Describe(label)
		if percent >= 0 {
			_ = c.bar.Set(percent)
		}
		return
	}

	if stage != c.lastStage {
		c.lastStage = stage
		if detail != "" {
			fmt.Fprintf(c.out, "  %s (%s)\n", stage, detail)
		} else {
			fmt.Fprintf(c.out, "  %s\n", stage)
		}
	}
}

func (c *consoleListener) Segment(_ string, start, end float64, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.interactive && c.bar != nil {
		_ = c.bar.Clear()
	}
	fmt.Fprintf(c.out, "  [%s --> %s] %s\n",
		subtitles.FormatTimestamp(start), subtitles.FormatTimestamp(end), text)
}

func (c *consoleListener) JobCompleted(job queue.Job) {
	c.finishBar()
	fmt.Fprintf(c.out, "Done: %s\n", job.SubtitlePath)
}

func (c *consoleListener) JobFailed(job queue.Job) {
	c.finishBar()
	fmt.Fprintf(c.out, "Failed: %s (%s)\n", filepath.Base(job.SourcePath), job.ErrorMessage)
}

func (c *consoleListener) finishBar() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bar != nil {
		_ = c.bar.Finish()
		c.bar = nil
	}
}
