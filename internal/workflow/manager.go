package workflow

import (
	"context"
	"log/slog"
	"sync"

	"whisperwatch/internal/engine"
	"whisperwatch/internal/logging"
	"whisperwatch/internal/notifications"
	"whisperwatch/internal/queue"
	"whisperwatch/internal/services"
)

// Transcriber produces timed segments for a media file using the named model.
type Transcriber interface {
	Transcribe(ctx context.Context, modelID, mediaPath string, progress engine.ProgressFunc, emit func(engine.Segment) error) error
}

// SubtitleWriter persists segments as a subtitle file and returns its path.
type SubtitleWriter interface {
	Write(mediaPath, outputDir string, segments []engine.Segment) (string, error)
}

// Manager owns the job registry and the single-concurrency dispatch loop.
type Manager struct {
	registry    *queue.Registry
	notifier    *notifications.Service
	transcriber Transcriber
	writer      SubtitleWriter
	logger      *slog.Logger

	mu      sync.Mutex
	started bool
	active  bool
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager wires a manager. A nil logger falls back to no-op.
func NewManager(registry *queue.Registry, notifier *notifications.Service, transcriber Transcriber, writer SubtitleWriter, logger *slog.Logger) *Manager {
	return &Manager{
		registry:    registry,
		notifier:    notifier,
		transcriber: transcriber,
		writer:      writer,
		logger:      logging.NewComponentLogger(logger, "workflow"),
	}
}

// Start arms the dispatcher and immediately attempts to dispatch any jobs
// submitted before startup. Calling Start twice is an error.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return services.Wrap(services.ErrValidation, "workflow", "start", "manager already started", nil)
	}
	m.started = true
	m.runCtx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()

	m.logger.Info("workflow manager started")
	m.StartNext()
	return nil
}

// Stop cancels the running job, prevents further dispatch, and waits for the
// in-flight worker to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
	m.logger.Info("workflow manager stopped")
}

// Wait blocks until the queue has drained and no job is executing.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Submit adds one pending job per usable path and triggers dispatch. Paths
// that are not existing regular files are skipped; a submission where nothing
// was usable emits no events.
func (m *Manager) Submit(paths []string, outputDir, model string) ([]queue.Job, error) {
	created, err := m.registry.Add(paths, outputDir, model)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "submit", "add jobs", err)
	}
	if len(created) == 0 {
		return created, nil
	}

	m.logger.Info("jobs submitted",
		logging.Int("accepted", len(created)),
		logging.Int("skipped", len(paths)-len(created)))
	m.notifier.QueueChanged(m.registry.Snapshot())
	m.StartNext()
	return created, nil
}

// Snapshot returns all jobs in submission order.
func (m *Manager) Snapshot() []queue.Job {
	return m.registry.Snapshot()
}

// StartNext dispatches the next pending job unless one is already running or
// the manager is stopped. The started event is broadcast before the worker
// goroutine spawns, so listeners always observe JobStarted ahead of any
// progress for that job.
func (m *Manager) StartNext() {
	m.mu.Lock()
	if !m.started || m.active || m.runCtx.Err() != nil {
		m.mu.Unlock()
		return
	}
	job, ok := m.registry.ClaimNext()
	if !ok {
		m.mu.Unlock()
		return
	}
	m.active = true
	ctx := m.runCtx
	m.wg.Add(1)
	m.mu.Unlock()

	m.notifier.JobStarted(job)
	m.notifier.QueueChanged(m.registry.Snapshot())
	go m.runJob(ctx, job)
}

// runJob executes one job and records its terminal state. The wg.Done defer
// is registered first so it fires after finish(), whose StartNext call has
// already re-armed wg for the next job; Wait therefore only unblocks when the
// whole queue is drained.
func (m *Manager) runJob(ctx context.Context, job queue.Job) {
	defer m.wg.Done()

	transcript, subtitlePath, err := m.execute(ctx, job)
	m.finish(job, transcript, subtitlePath, err)
}

// finish flips the terminal state, broadcasts it, and chains the dispatcher.
// The registry transition happens before the active slot is released: once
// StartNext can claim the next job, the finished one is already terminal, so
// no snapshot ever shows two running jobs.
func (m *Manager) finish(job queue.Job, transcript, subtitlePath string, err error) {
	var (
		terminal queue.Job
		ok       bool
	)
	if err != nil {
		terminal, ok = m.registry.Fail(job.ID, err.Error())
	} else {
		terminal, ok = m.registry.Complete(job.ID, transcript, subtitlePath)
	}

	m.mu.Lock()
	m.active = false
	m.mu.Unlock()

	if ok {
		if err != nil {
			m.logger.Error("job failed",
				logging.String(logging.FieldJobID, job.ID),
				logging.Error(err))
			m.notifier.JobFailed(terminal)
		} else {
			m.logger.Info("job completed",
				logging.String(logging.FieldJobID, job.ID),
				logging.String("subtitle", subtitlePath))
			m.notifier.JobCompleted(terminal)
		}
	}

	m.notifier.QueueChanged(m.registry.Snapshot())
	m.StartNext()
}
