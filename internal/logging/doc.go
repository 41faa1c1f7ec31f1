// Package logging builds the application's slog loggers and shared structured
// logging helpers.
//
// New constructs console or JSON handlers from Options; NewFromConfig wires in
// the configured log directory so daemonless CLI runs still leave a log trail.
// The attr helpers and Field* constants keep key names consistent across
// packages, and ProgressSampler deduplicates high-frequency progress records.
package logging
