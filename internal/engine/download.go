package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"

	"whisperwatch/internal/services"
)

const lockRetryDelay = 250 * time.Millisecond

// acquire ensures every artifact the reference needs is present under the
// cache and returns the model directory. Concurrent processes serialize on a
// lock file next to the model directory; only missing or size-mismatched
// artifacts are fetched, each through a temporary file renamed into place.
// When the remote tree cannot be listed but a complete cached copy exists,
// the cached copy is used.
func acquire(ctx context.Context, client *http.Client, baseURL, cacheDir string, ref Reference, progress ProgressFunc) (string, error) {
	modelDir := repoCacheDir(cacheDir, ref.Repo)
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "engine", "prepare model cache", "create "+modelDir, err)
	}

	lock := flock.New(modelDir + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "engine", "prepare model cache", "acquire cache lock", err)
	}
	if !locked {
		return "", services.Wrap(services.ErrTransient, "engine", "prepare model cache", "cache lock unavailable", nil)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	emitProgress(progress, "Checking model", PercentUnknown, "resolving "+ref.Repo)
	manifest, err := buildManifest(ctx, client, baseURL, ref, modelDir)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return "", err
		}
		// Offline or flaky network: a complete cached copy is good enough.
		if cached, ok := cachedManifest(ref, modelDir); ok && cached.Complete() {
			emitProgress(progress, "Model ready", 100, "using cached copy of "+ref.Repo)
			return modelDir, nil
		}
		return "", err
	}

	if manifest.Complete() {
		emitProgress(progress, "Model ready", 100,
			fmt.Sprintf("%s cached", humanize.Bytes(uint64(manifest.TotalBytes()))))
		return modelDir, nil
	}

	tracker := newTracker(manifest.TotalBytes(), manifest.CachedBytes(), progress)
	tracker.SetStage("Downloading model")
	for _, file := range manifest.Needed() {
		if err := downloadFile(ctx, client, baseURL, ref.Repo, file, modelDir, tracker); err != nil {
			return "", err
		}
	}
	tracker.Finish("Model ready")
	return modelDir, nil
}

// downloadFile fetches one artifact into modelDir. The body streams through a
// .partial temp file so an interrupted fetch never leaves a plausible-looking
// artifact behind.
func downloadFile(ctx context.Context, client *http.Client, baseURL, repo string, file ManifestFile, modelDir string, tracker *tracker) error {
	url := fmt.Sprintf("%s/%s/resolve/main/%s", baseURL, repo, file.Path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return services.Wrap(services.ErrTransient, "engine", "download model", "build request for "+file.Path, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "engine", "download model", "fetch "+file.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrTransient, "engine", "download model",
			fmt.Sprintf("fetch %s returned %s", file.Path, resp.Status), nil)
	}

	target := filepath.Join(modelDir, file.Path)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "engine", "download model", "create directory for "+file.Path, err)
	}
	partial := target + ".partial"
	out, err := os.Create(partial)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "engine", "download model", "create "+partial, err)
	}

	_, copyErr := io.Copy(io.MultiWriter(out, countingWriter{tracker}), resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		_ = os.Remove(partial)
		return services.Wrap(services.ErrTransient, "engine", "download model", "stream "+file.Path, copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(partial)
		return services.Wrap(services.ErrTransient, "engine", "download model", "finalize "+file.Path, closeErr)
	}
	if err := os.Rename(partial, target); err != nil {
		_ = os.Remove(partial)
		return services.Wrap(services.ErrTransient, "engine", "download model", "move "+file.Path+" into place", err)
	}
	return nil
}

// countingWriter feeds copied byte counts into the progress tracker.
type countingWriter struct {
	tracker *tracker
}

func (w countingWriter) Write(p []byte) (int, error) {
	w.tracker.Add(int64(len(p)))
	return len(p), nil
}
