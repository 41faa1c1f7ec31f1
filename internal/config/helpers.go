package config

import (
	"fmt"
	"os"
)

// ExpandPath resolves a leading ~ and relativity into an absolute path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

// CreateSample writes the annotated sample configuration to path.
func CreateSample(path string) error {
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories the application writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.OutputDir, c.LogDir, c.Models.CacheDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}
