// Package notifications delivers pipeline events to registered listeners.
//
// The Service is a synchronous fan-out: the workflow manager publishes queue
// snapshots, lifecycle transitions, progress, and segments, and every
// registered Listener sees them in emission order. Listener panics are
// contained so a misbehaving consumer can never fail a job. The Funcs adapter
// lets callers subscribe with plain closures.
package notifications
