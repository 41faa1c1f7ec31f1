// Package queue tracks transcription jobs in memory for the process lifetime.
//
// The Registry is the single source of truth for job state: a lookup map, the
// insertion order used for display snapshots, and the strict FIFO of pending
// ids used for dispatch. Job status only moves forward through pending,
// running, and a terminal completed or failed; ClaimNext couples the FIFO pop
// with the running transition so at no point is an id both pending and active.
package queue
