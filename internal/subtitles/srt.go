package subtitles

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"whisperwatch/internal/engine"
	"whisperwatch/internal/services"
)

// collisionSuffixLayout names the alternate file when the target already
// exists, e.g. recording_20260825_143005.srt.
const collisionSuffixLayout = "20060102_150405"

// Writer renders segments to SubRip files.
type Writer struct {
	now func() time.Time
}

// NewWriter returns a Writer using the wall clock for collision suffixes.
func NewWriter() *Writer {
	return &Writer{now: time.Now}
}

// Write renders segments as an .srt file named after mediaPath's base name
// inside outputDir and returns the path written. An empty segment slice
// produces an empty file. If a file with that name already exists it is left
// untouched and the new file gets a timestamp suffix.
func (w *Writer) Write(mediaPath, outputDir string, segments []engine.Segment) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "subtitles", "write srt", "create "+outputDir, err)
	}

	stem := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))
	target := filepath.Join(outputDir, stem+".srt")
	if _, err := os.Stat(target); err == nil {
		target = filepath.Join(outputDir, fmt.Sprintf("%s_%s.srt", stem, w.now().Format(collisionSuffixLayout)))
	}

	if err := writeAtomic(target, Render(segments)); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "subtitles", "write srt", "write "+target, err)
	}
	return target, nil
}

// Render produces the SubRip document for the segments: 1-based indices,
// "start --> end" cue lines, and a blank line after each block.
func Render(segments []engine.Segment) []byte {
	var sb strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n",
			i+1, FormatTimestamp(seg.Start), FormatTimestamp(seg.End), strings.TrimSpace(seg.Text))
	}
	return []byte(sb.String())
}

// FormatTimestamp converts seconds into SubRip "HH:MM:SS,mmm" form.
// Sub-millisecond precision is truncated and negative inputs clamp to zero.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	// The epsilon keeps float noise like 1234.0 representing as 1233.999...
	// from shifting a whole millisecond; genuine sub-millisecond precision
	// still truncates.
	millis := int64(seconds*1000 + 1e-6)
	h := millis / 3_600_000
	m := (millis % 3_600_000) / 60_000
	s := (millis % 60_000) / 1000
	ms := millis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// ParseTimestamp converts a SubRip timestamp back into seconds.
func ParseTimestamp(value string) (float64, error) {
	var h, m, s, ms int
	if _, err := fmt.Sscanf(strings.TrimSpace(value), "%d:%d:%d,%d", &h, &m, &s, &ms); err != nil {
		return 0, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return float64(h)*3600 + float64(m)*60 + float64(s) + float64(ms)/1000, nil
}

// writeAtomic writes data through a temp file in the target directory and
// renames it into place, so readers never observe a half-written file.
func writeAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
