package testsupport

import (
	"path/filepath"
	"testing"

	"whisperwatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.OutputDir = filepath.Join(base, "output")
	cfg.LogDir = filepath.Join(base, "logs")
	cfg.Models.CacheDir = filepath.Join(base, "models")
	cfg.Model = "tiny"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithModel overrides the configured model on the test config.
func WithModel(model string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Model = model
	}
}

// WithModelHub points the model base URL at a test server.
func WithModelHub(baseURL string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Models.BaseURL = baseURL
	}
}

// WithGPU opts the test config into the accelerated device.
func WithGPU() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Whisper.GPU = true
	}
}
