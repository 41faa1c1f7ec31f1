package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"whisperwatch/internal/services"
)

// ManifestFile is one remote artifact with its cache state.
type ManifestFile struct {
	Path   string
	Size   int64
	Cached bool
}

// Manifest is the differential download plan for one model reference:
// every matching remote artifact, marked cached when the local copy
// already has the expected size.
type Manifest struct {
	Files []ManifestFile
}

// TotalBytes is the combined size of all artifacts in the manifest.
func (m Manifest) TotalBytes() int64 {
	var total int64
	for _, f := range m.Files {
		total += f.Size
	}
	return total
}

// CachedBytes is the combined size of artifacts already present locally.
func (m Manifest) CachedBytes() int64 {
	var cached int64
	for _, f := range m.Files {
		if f.Cached {
			cached += f.Size
		}
	}
	return cached
}

// Needed returns the artifacts that still have to be downloaded.
func (m Manifest) Needed() []ManifestFile {
	var needed []ManifestFile
	for _, f := range m.Files {
		if !f.Cached {
			needed = append(needed, f)
		}
	}
	return needed
}

// Complete reports whether every artifact is already cached.
func (m Manifest) Complete() bool {
	for _, f := range m.Files {
		if !f.Cached {
			return false
		}
	}
	return len(m.Files) > 0
}

type treeEntry struct {
	Type string `json:"type"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// buildManifest lists the reference's repository tree and diffs the matching
// artifacts against modelDir. A cached file must match the remote size
// exactly; partial or stale copies are scheduled for re-download.
func buildManifest(ctx context.Context, client *http.Client, baseURL string, ref Reference, modelDir string) (Manifest, error) {
	url := fmt.Sprintf("%s/api/models/%s/tree/main", baseURL, ref.Repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Manifest{}, services.Wrap(services.ErrTransient, "engine", "list model artifacts", "build request for "+ref.Repo, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return Manifest{}, services.Wrap(services.ErrTransient, "engine", "list model artifacts", "fetch tree for "+ref.Repo, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Manifest{}, services.Wrap(services.ErrNotFound, "engine", "list model artifacts", "repository "+ref.Repo+" not found", nil)
	case resp.StatusCode != http.StatusOK:
		return Manifest{}, services.Wrap(services.ErrTransient, "engine", "list model artifacts",
			fmt.Sprintf("tree request for %s returned %s", ref.Repo, resp.Status), nil)
	}

	var entries []treeEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return Manifest{}, services.Wrap(services.ErrTransient, "engine", "list model artifacts", "decode tree for "+ref.Repo, err)
	}

	var manifest Manifest
	for _, entry := range entries {
		if entry.Type != "file" || !matchesAny(ref.Patterns, filepath.Base(entry.Path)) {
			continue
		}
		file := ManifestFile{Path: entry.Path, Size: entry.Size}
		if info, statErr := os.Stat(filepath.Join(modelDir, entry.Path)); statErr == nil && info.Mode().IsRegular() && info.Size() == entry.Size {
			file.Cached = true
		}
		manifest.Files = append(manifest.Files, file)
	}
	if len(manifest.Files) == 0 {
		return Manifest{}, services.Wrap(services.ErrNotFound, "engine", "list model artifacts",
			"no artifacts in "+ref.Repo+" match the requested model", nil)
	}
	return manifest, nil
}

// cachedManifest builds a manifest from local files alone, for offline use
// when the remote tree cannot be listed.
func cachedManifest(ref Reference, modelDir string) (Manifest, bool) {
	entries, err := os.ReadDir(modelDir)
	if err != nil {
		return Manifest{}, false
	}
	var manifest Manifest
	for _, entry := range entries {
		if entry.IsDir() || !matchesAny(ref.Patterns, entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		manifest.Files = append(manifest.Files, ManifestFile{Path: entry.Name(), Size: info.Size(), Cached: true})
	}
	return manifest, len(manifest.Files) > 0
}
