package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sys/unix"

	"whisperwatch/internal/config"
	"whisperwatch/internal/engine"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckBinary("Whisper binary", cfg.Whisper.Binary),
		CheckDirectoryAccess("Output directory", cfg.OutputDir),
		CheckDirectoryAccess("Model cache", cfg.Models.CacheDir),
		CheckDirectoryAccess("Log directory", cfg.LogDir),
		CheckModelHub(ctx, cfg.Models.BaseURL),
		CheckModel(cfg),
	}
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}

// CheckBinary verifies that the named executable is resolvable via PATH.
func CheckBinary(name, command string) Result {
	if command == "" {
		return Result{Name: name, Detail: "no binary configured"}
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s not found in PATH", command)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDirectoryAccess verifies that the directory exists (creating it if
// missing) and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "no directory configured"}
	}
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(path, 0o755); mkErr != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: create: %v)", path, mkErr)}
		}
	case err != nil:
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	case !info.IsDir():
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckModelHub verifies that the model hub answers HTTP requests. Failure is
// not fatal when the configured model is already cached.
func CheckModelHub(ctx context.Context, baseURL string) Result {
	const name = "Model hub"
	if baseURL == "" {
		return Result{Name: name, Detail: "no base url configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, baseURL, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("request failed (%v)", err)}
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetworkError(err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("hub returned %s", resp.Status)}
	}
	return Result{Name: name, Passed: true, Detail: "reachable"}
}

// CheckModel reports whether the configured model resolves and whether its
// artifacts are already cached.
func CheckModel(cfg *config.Config) Result {
	const name = "Configured model"
	if _, err := engine.Resolve(cfg.Model); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s does not resolve: %v", cfg.Model, err)}
	}
	for _, option := range engine.Models(cfg.Models.CacheDir) {
		if option.ID == cfg.Model && option.Downloaded {
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s cached at %s", cfg.Model, option.LocalPath)}
		}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s will download on first use", cfg.Model)}
}

func summarizeNetworkError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (hub unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (hub unreachable)"
	}
	return err.Error()
}
