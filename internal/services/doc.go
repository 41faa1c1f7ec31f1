// Package services defines the shared error taxonomy for the transcription
// pipeline.
//
// Errors are tagged with sentinel markers via Wrap so callers can classify
// failures with errors.Is without string matching: validation and
// configuration problems, missing models, external tool failures, and
// accelerator runtime errors that warrant a device fallback.
package services
