// Package preflight verifies the environment before transcription work
// starts: the whisper binary, directory permissions, and model hub
// reachability.
package preflight
