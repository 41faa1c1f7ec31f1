package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"whisperwatch/internal/engine"
	"whisperwatch/internal/logging"
	"whisperwatch/internal/notifications"
	"whisperwatch/internal/queue"
)

// execute runs one job end to end: transcription with streamed segments, then
// subtitle writing. A panic anywhere in the pipeline is recovered into an
// error so the dispatcher always receives a terminal state.
func (m *Manager) execute(ctx context.Context, job queue.Job) (transcript, subtitlePath string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()

	log := m.logger.With(
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldCorrelationID, uuid.NewString()),
	)
	log.Info("job started", logging.String("source", job.SourcePath), logging.String("model", job.Model))

	m.notifier.Progress(job.ID, "Starting job", notifications.PercentUnknown, filepath.Base(job.SourcePath))

	sampler := logging.NewProgressSampler(5)
	progress := func(stage string, percent int, detail string) {
		m.notifier.Progress(job.ID, stage, percent, detail)
		if sampler.ShouldLog(percent, stage) {
			log.Debug("progress",
				logging.String(logging.FieldStage, stage),
				logging.Int("percent", percent),
				logging.String("detail", detail))
		}
	}

	var (
		segments []engine.Segment
		lines    []string
	)
	err = m.transcriber.Transcribe(ctx, job.Model, job.SourcePath, progress, func(seg engine.Segment) error {
		segments = append(segments, seg)
		lines = append(lines, seg.Text)
		m.notifier.Segment(job.ID, seg.Start, seg.End, seg.Text)
		return nil
	})
	if err != nil {
		return "", "", err
	}

	// Silent media is valid input: zero segments still complete the job with
	// an empty transcript and an empty subtitle file.
	m.notifier.Progress(job.ID, "Writing subtitles", notifications.PercentUnknown, "")
	subtitlePath, err = m.writer.Write(job.SourcePath, job.OutputDir, segments)
	if err != nil {
		return "", "", err
	}

	transcript = strings.TrimSpace(strings.Join(lines, "\n"))
	m.notifier.Progress(job.ID, "Complete", 100, filepath.Base(subtitlePath))
	log.Info("job finished", logging.Int("segments", len(segments)), logging.String("subtitle", subtitlePath))
	return transcript, subtitlePath, nil
}
