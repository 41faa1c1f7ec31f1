package engine

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// minEmitInterval throttles byte-level progress so callbacks see at most
// about five updates per second. Stage changes bypass the throttle.
const minEmitInterval = 200 * time.Millisecond

// tracker accumulates download byte counts and emits throttled percent/ETA
// progress updates. A panicking callback silences further emission but byte
// accounting continues, so acquisition always finishes with correct totals.
type tracker struct {
	total     int64
	completed int64
	fn        ProgressFunc
	stage     string

	startedAt   time.Time
	lastEmit    time.Time
	lastPercent int
	silent      bool
	now         func() time.Time
}

func newTracker(total, completed int64, fn ProgressFunc) *tracker {
	if total < 1 {
		total = 1
	}
	if completed < 0 {
		completed = 0
	}
	if completed > total {
		completed = total
	}
	t := &tracker{
		total:       total,
		completed:   completed,
		fn:          fn,
		stage:       "Downloading model",
		lastPercent: -1,
		now:         time.Now,
	}
	t.startedAt = t.now()
	return t
}

// SetStage switches the stage label and forces an immediate emit.
func (t *tracker) SetStage(stage string) {
	t.stage = stage
	t.emit(true)
}

// Add accounts newly completed bytes and emits subject to throttling.
func (t *tracker) Add(n int64) {
	if n <= 0 {
		return
	}
	t.completed += n
	if t.completed > t.total {
		t.completed = t.total
	}
	t.emit(false)
}

// Finish accounts all remaining bytes and forces a final emit.
func (t *tracker) Finish(stage string) {
	t.stage = stage
	t.completed = t.total
	t.emit(true)
}

func (t *tracker) emit(force bool) {
	if t.fn == nil || t.silent {
		return
	}

	percent := int(float64(t.completed)/float64(t.total)*100 + 0.5)
	if percent > 100 {
		percent = 100
	}
	now := t.now()
	if !force && percent == t.lastPercent && now.Sub(t.lastEmit) < minEmitInterval {
		return
	}

	t.deliver(t.stage, percent, t.detail(now))
	t.lastPercent = percent
	t.lastEmit = now
}

// deliver invokes the callback, silencing the tracker if it panics. Progress
// reporting must never abort an acquisition.
func (t *tracker) deliver(stage string, percent int, detail string) {
	defer func() {
		if recover() != nil {
			t.silent = true
		}
	}()
	t.fn(stage, percent, detail)
}

func (t *tracker) detail(now time.Time) string {
	remaining := t.total - t.completed
	if remaining <= 0 {
		return fmt.Sprintf("%s of %s", humanize.Bytes(uint64(t.total)), humanize.Bytes(uint64(t.total)))
	}

	eta := "estimating..."
	elapsed := now.Sub(t.startedAt).Seconds()
	if t.completed > 0 && elapsed > 0 {
		rate := float64(t.completed) / elapsed
		if rate > 0 {
			eta = formatETA(float64(remaining) / rate)
		}
	}
	return fmt.Sprintf("%s of %s, ETA %s",
		humanize.Bytes(uint64(t.completed)), humanize.Bytes(uint64(t.total)), eta)
}

func formatETA(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	remaining := int(seconds)
	hours := remaining / 3600
	minutes := (remaining % 3600) / 60
	secs := remaining % 60
	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %02dm %02ds", hours, minutes, secs)
	case minutes > 0:
		return fmt.Sprintf("%dm %02ds", minutes, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}

// emitProgress is a nil-safe helper for one-off stage updates.
func emitProgress(fn ProgressFunc, stage string, percent int, detail string) {
	if fn == nil {
		return
	}
	defer func() {
		// A broken callback must never abort the pipeline.
		_ = recover()
	}()
	fn(stage, percent, detail)
}
