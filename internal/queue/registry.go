package queue

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry holds every job submitted during the process lifetime: a lookup map,
// the display-insertion order, and the FIFO of pending job ids. It owns no
// goroutines; the workflow manager drives all mutation.
type Registry struct {
	mu      sync.RWMutex
	jobs    map[string]*Job
	order   []string
	pending []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

// Add creates one pending job per path that resolves to an existing regular
// file; other paths are skipped silently. The output directory is created if
// needed. The returned slice contains only the jobs actually created; an empty
// slice with a nil error means no path was usable.
func (r *Registry) Add(paths []string, outputDir, model string) ([]Job, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure output directory: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	created := make([]Job, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		job := &Job{
			ID:         uuid.NewString(),
			SourcePath: path,
			OutputDir:  outputDir,
			Model:      model,
			Status:     StatusPending,
			CreatedAt:  time.Now().UTC(),
		}
		r.jobs[job.ID] = job
		r.order = append(r.order, job.ID)
		r.pending = append(r.pending, job.ID)
		created = append(created, *job)
	}
	return created, nil
}

// Snapshot returns copies of all jobs in display-insertion order.
func (r *Registry) Snapshot() []Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Job, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.jobs[id])
	}
	return out
}

// Get returns a copy of the job with the given id.
func (r *Registry) Get(id string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// PendingCount reports how many jobs are waiting to be dispatched.
func (r *Registry) PendingCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pending)
}

// ClaimNext pops the front of the pending FIFO and marks it running in one
// step, so a claimed id is never observable as both pending and active.
func (r *Registry) ClaimNext() (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.pending) == 0 {
		return Job{}, false
	}
	id := r.pending[0]
	r.pending = r.pending[1:]

	job := r.jobs[id]
	job.Status = StatusRunning
	return *job, true
}

// Complete records a successful terminal state for a running job.
func (r *Registry) Complete(id, transcript, subtitlePath string) (Job, bool) {
	return r.finish(id, func(job *Job) {
		job.Status = StatusCompleted
		job.Transcript = transcript
		job.SubtitlePath = subtitlePath
		job.ErrorMessage = ""
	})
}

// Fail records a failed terminal state for a running job.
func (r *Registry) Fail(id, message string) (Job, bool) {
	return r.finish(id, func(job *Job) {
		job.Status = StatusFailed
		job.ErrorMessage = message
	})
}

func (r *Registry) finish(id string, apply func(*Job)) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || job.Status != StatusRunning {
		return Job{}, false
	}
	apply(job)
	return *job, true
}
