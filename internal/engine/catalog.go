package engine

import (
	"os"
	"path/filepath"
	"strings"

	"whisperwatch/internal/services"
)

// Reference identifies the remote artifacts for one model: a Hugging Face
// repository plus the file patterns to fetch from it.
type Reference struct {
	Repo     string
	Patterns []string
}

// ModelOption describes one catalog entry for display and selection.
type ModelOption struct {
	ID          string
	Name        string
	SizeLabel   string
	Description string
	Downloaded  bool
	LocalPath   string
}

const catalogRepo = "ggerganov/whisper.cpp"

type catalogEntry struct {
	id          string
	fileName    string
	sizeLabel   string
	description string
}

var modelCatalog = []catalogEntry{
	{"tiny.en", "ggml-tiny.en.bin", "~75 MB", "Fastest, English-only model."},
	{"tiny", "ggml-tiny.bin", "~75 MB", "Fastest multilingual model."},
	{"base.en", "ggml-base.en.bin", "~142 MB", "Balanced speed and quality, English-only."},
	{"base", "ggml-base.bin", "~142 MB", "Balanced speed and quality, multilingual."},
	{"small.en", "ggml-small.en.bin", "~466 MB", "Higher quality, English-only."},
	{"small", "ggml-small.bin", "~466 MB", "Higher quality multilingual model."},
	{"medium.en", "ggml-medium.en.bin", "~1.5 GB", "High quality, English-only."},
	{"medium", "ggml-medium.bin", "~1.5 GB", "High quality multilingual model."},
	{"large-v2", "ggml-large-v2.bin", "~2.9 GB", "Very high quality multilingual model."},
	{"large-v3", "ggml-large-v3.bin", "~2.9 GB", "Latest large multilingual model."},
	{"large-v3-turbo", "ggml-large-v3-turbo.bin", "~1.6 GB", "Faster large-v3 variant."},
}

// defaultPatterns is used for fully qualified repository references where the
// artifact layout is not known in advance.
var defaultPatterns = []string{"*.bin"}

// Resolve maps a model identifier to its artifact reference. Identifiers
// containing "/" are treated as fully qualified repositories; anything else
// must match a catalog short name.
func Resolve(modelID string) (Reference, error) {
	id := strings.TrimSpace(modelID)
	if id == "" {
		return Reference{}, services.Wrap(services.ErrValidation, "engine", "resolve model", "model identifier is empty", nil)
	}
	if strings.Contains(id, "/") {
		return Reference{Repo: id, Patterns: defaultPatterns}, nil
	}
	for _, entry := range modelCatalog {
		if entry.id == id {
			return Reference{Repo: catalogRepo, Patterns: []string{entry.fileName}}, nil
		}
	}
	return Reference{}, services.Wrap(services.ErrNotFound, "engine", "resolve model", "unknown model "+id, nil)
}

// Models returns the catalog entries, marking those already present in the
// cache directory rooted at cacheDir.
func Models(cacheDir string) []ModelOption {
	out := make([]ModelOption, 0, len(modelCatalog))
	modelDir := repoCacheDir(cacheDir, catalogRepo)
	for _, entry := range modelCatalog {
		option := ModelOption{
			ID:          entry.id,
			Name:        displayName(entry.id),
			SizeLabel:   entry.sizeLabel,
			Description: entry.description,
		}
		candidate := filepath.Join(modelDir, entry.fileName)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			option.Downloaded = true
			option.LocalPath = candidate
		}
		out = append(out, option)
	}
	return out
}

// repoCacheDir maps a repository reference onto a cache subdirectory.
func repoCacheDir(cacheDir, repo string) string {
	return filepath.Join(cacheDir, strings.ReplaceAll(repo, "/", "--"))
}

func matchesAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
