// Package workflow runs the transcription pipeline: it accepts media
// submissions into the job registry, dispatches one job at a time in FIFO
// order, and drives each job through transcription and subtitle writing while
// broadcasting queue, progress, and segment events.
//
// Concurrency model: exactly one job executes at any moment. A terminal state
// for the running job immediately triggers a dispatch attempt for the next
// pending job, so the queue drains itself without external polling.
package workflow
