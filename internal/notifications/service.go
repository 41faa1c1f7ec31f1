package notifications

import (
	"log/slog"
	"sync"

	"whisperwatch/internal/logging"
	"whisperwatch/internal/queue"
)

// PercentUnknown marks a progress event with no meaningful percentage.
const PercentUnknown = -1

// Listener receives pipeline events. Implementations must be fast; delivery is
// synchronous and ordered per job.
type Listener interface {
	QueueChanged(jobs []queue.Job)
	JobStarted(job queue.Job)
	Progress(jobID, stage string, percent int, detail string)
	Segment(jobID string, start, end float64, text string)
	JobCompleted(job queue.Job)
	JobFailed(job queue.Job)
}

// Service fans events out to registered listeners. A panicking listener is
// recovered and logged; event delivery can never fail or abort the pipeline.
type Service struct {
	mu        sync.RWMutex
	listeners []Listener
	logger    *slog.Logger
}

// NewService creates a fan-out service. A nil logger falls back to no-op.
func NewService(logger *slog.Logger) *Service {
	return &Service{logger: logging.NewComponentLogger(logger, "notifications")}
}

// Register adds a listener. Listeners are invoked in registration order.
func (s *Service) Register(l Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Service) each(event string, fn func(Listener)) {
	s.mu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, l := range listeners {
		s.dispatch(event, l, fn)
	}
}

func (s *Service) dispatch(event string, l Listener, fn func(Listener)) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("listener panicked; event dropped for that listener",
				logging.String(logging.FieldEventType, event),
				logging.Any("panic", r),
			)
		}
	}()
	fn(l)
}

// QueueChanged broadcasts the current queue snapshot.
func (s *Service) QueueChanged(jobs []queue.Job) {
	s.each("queue_changed", func(l Listener) { l.QueueChanged(jobs) })
}

// JobStarted broadcasts that a job left the FIFO and began running.
func (s *Service) JobStarted(job queue.Job) {
	s.each("job_started", func(l Listener) { l.JobStarted(job) })
}

// Progress broadcasts a stage/percent/detail update for a job.
func (s *Service) Progress(jobID, stage string, percent int, detail string) {
	s.each("progress", func(l Listener) { l.Progress(jobID, stage, percent, detail) })
}

// Segment broadcasts one recognized segment for a job.
func (s *Service) Segment(jobID string, start, end float64, text string) {
	s.each("segment", func(l Listener) { l.Segment(jobID, start, end, text) })
}

// JobCompleted broadcasts a successful terminal state.
func (s *Service) JobCompleted(job queue.Job) {
	s.each("job_completed", func(l Listener) { l.JobCompleted(job) })
}

// JobFailed broadcasts a failed terminal state.
func (s *Service) JobFailed(job queue.Job) {
	s.each("job_failed", func(l Listener) { l.JobFailed(job) })
}

// Funcs adapts plain functions to the Listener interface; nil fields are
// ignored, so callers can subscribe to a subset of events.
type Funcs struct {
	OnQueueChanged func(jobs []queue.Job)
	OnJobStarted   func(job queue.Job)
	OnProgress     func(jobID, stage string, percent int, detail string)
	OnSegment      func(jobID string, start, end float64, text string)
	OnJobCompleted func(job queue.Job)
	OnJobFailed    func(job queue.Job)
}

func (f Funcs) QueueChanged(jobs []queue.Job) {
	if f.OnQueueChanged != nil {
		f.OnQueueChanged(jobs)
	}
}

func (f Funcs) JobStarted(job queue.Job) {
	if f.OnJobStarted != nil {
		f.OnJobStarted(job)
	}
}

func (f Funcs) Progress(jobID, stage string, percent int, detail string) {
	if f.OnProgress != nil {
		f.OnProgress(jobID, stage, percent, detail)
	}
}

func (f Funcs) Segment(jobID string, start, end float64, text string) {
	if f.OnSegment != nil {
		f.OnSegment(jobID, start, end, text)
	}
}

func (f Funcs) JobCompleted(job queue.Job) {
	if f.OnJobCompleted != nil {
		f.OnJobCompleted(job)
	}
}

func (f Funcs) JobFailed(job queue.Job) {
	if f.OnJobFailed != nil {
		f.OnJobFailed(job)
	}
}
