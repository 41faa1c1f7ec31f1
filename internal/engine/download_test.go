package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"whisperwatch/internal/services"
)

// modelServer serves a fake Hugging Face repository with one artifact.
func modelServer(t *testing.T, repo, fileName string, payload []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/models/"+repo+"/tree/main", func(w http.ResponseWriter, _ *http.Request) {
		entries := []treeEntry{
			{Type: "file", Path: fileName, Size: int64(len(payload))},
			{Type: "file", Path: "README.md", Size: 12},
			{Type: "directory", Path: "samples"},
		}
		if err := json.NewEncoder(w).Encode(entries); err != nil {
			t.Errorf("encode tree: %v", err)
		}
	})
	mux.HandleFunc(fmt.Sprintf("/%s/resolve/main/%s", repo, fileName), func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestBuildManifestDiffsAgainstCache(t *testing.T) {
	payload := []byte(strings.Repeat("w", 1000))
	server := modelServer(t, "ggerganov/whisper.cpp", "ggml-base.bin", payload)

	modelDir := t.TempDir()
	// A stale partial copy with the wrong size must not count as cached.
	if err := os.WriteFile(filepath.Join(modelDir, "ggml-base.bin"), payload[:400], 0o644); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	ref := Reference{Repo: "ggerganov/whisper.cpp", Patterns: []string{"ggml-base.bin"}}
	manifest, err := buildManifest(context.Background(), server.Client(), server.URL, ref, modelDir)
	if err != nil {
		t.Fatalf("buildManifest: %v", err)
	}
	if manifest.TotalBytes() != 1000 {
		t.Fatalf("total = %d, want 1000", manifest.TotalBytes())
	}
	if manifest.CachedBytes() != 0 {
		t.Fatalf("cached = %d, want 0 for size mismatch", manifest.CachedBytes())
	}
	if len(manifest.Needed()) != 1 {
		t.Fatalf("needed = %d files, want 1", len(manifest.Needed()))
	}
}

func TestBuildManifestRepoNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(server.Close)

	ref := Reference{Repo: "nobody/nothing", Patterns: defaultPatterns}
	_, err := buildManifest(context.Background(), server.Client(), server.URL, ref, t.TempDir())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestAcquireDownloadsMissingArtifact(t *testing.T) {
	payload := []byte(strings.Repeat("w", 2048))
	server := modelServer(t, "ggerganov/whisper.cpp", "ggml-tiny.bin", payload)
	cacheDir := t.TempDir()

	var stages []string
	progress := func(stage string, _ int, _ string) {
		if len(stages) == 0 || stages[len(stages)-1] != stage {
			stages = append(stages, stage)
		}
	}

	ref := Reference{Repo: "ggerganov/whisper.cpp", Patterns: []string{"ggml-tiny.bin"}}
	modelDir, err := acquire(context.Background(), server.Client(), server.URL, cacheDir, ref, progress)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(modelDir, "ggml-tiny.bin"))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if len(data) != len(payload) {
		t.Fatalf("artifact size = %d, want %d", len(data), len(payload))
	}
	if _, err := os.Stat(filepath.Join(modelDir, "ggml-tiny.bin.partial")); !os.IsNotExist(err) {
		t.Fatal("partial file left behind")
	}
	if stages[len(stages)-1] != "Model ready" {
		t.Fatalf("final stage = %q, want Model ready", stages[len(stages)-1])
	}
}

func TestAcquireSkipsDownloadWhenCached(t *testing.T) {
	payload := []byte(strings.Repeat("w", 512))
	repo := "ggerganov/whisper.cpp"
	fetches := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/api/models/"+repo+"/tree/main", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]treeEntry{{Type: "file", Path: "ggml-tiny.bin", Size: int64(len(payload))}})
	})
	mux.HandleFunc("/", func(http.ResponseWriter, *http.Request) { fetches++ })
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cacheDir := t.TempDir()
	modelDir := repoCacheDir(cacheDir, repo)
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(modelDir, "ggml-tiny.bin"), payload, 0o644); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	ref := Reference{Repo: repo, Patterns: []string{"ggml-tiny.bin"}}
	if _, err := acquire(context.Background(), server.Client(), server.URL, cacheDir, ref, nil); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if fetches != 0 {
		t.Fatalf("artifact fetches = %d, want 0 for a complete cache", fetches)
	}
}

func TestAcquireFallsBackToCacheWhenOffline(t *testing.T) {
	repo := "ggerganov/whisper.cpp"
	cacheDir := t.TempDir()
	modelDir := repoCacheDir(cacheDir, repo)
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(modelDir, "ggml-tiny.bin"), []byte("weights"), 0o644); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	// Server is closed immediately so every request fails.
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	ref := Reference{Repo: repo, Patterns: []string{"ggml-tiny.bin"}}
	got, err := acquire(context.Background(), server.Client(), server.URL, cacheDir, ref, nil)
	if err != nil {
		t.Fatalf("acquire should use the cached copy offline: %v", err)
	}
	if got != modelDir {
		t.Fatalf("model dir = %q, want %q", got, modelDir)
	}
}

func TestAcquireOfflineWithoutCacheFails(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	ref := Reference{Repo: "ggerganov/whisper.cpp", Patterns: []string{"ggml-tiny.bin"}}
	_, err := acquire(context.Background(), server.Client(), server.URL, t.TempDir(), ref, nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("error = %v, want ErrTransient", err)
	}
}
