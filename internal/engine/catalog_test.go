package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"whisperwatch/internal/services"
)

func TestResolveCatalogShortName(t *testing.T) {
	ref, err := Resolve("large-v3")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if ref.Repo != catalogRepo {
		t.Fatalf("repo = %q, want %q", ref.Repo, catalogRepo)
	}
	if len(ref.Patterns) != 1 || ref.Patterns[0] != "ggml-large-v3.bin" {
		t.Fatalf("patterns = %v, want the exact artifact name", ref.Patterns)
	}
}

func TestResolveQualifiedRepo(t *testing.T) {
	ref, err := Resolve("someuser/custom-whisper")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if ref.Repo != "someuser/custom-whisper" {
		t.Fatalf("repo = %q", ref.Repo)
	}
	if len(ref.Patterns) == 0 {
		t.Fatal("expected default patterns for qualified repo")
	}
}

func TestResolveUnknownModel(t *testing.T) {
	_, err := Resolve("turbo-xl")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestResolveEmptyModel(t *testing.T) {
	_, err := Resolve("   ")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestModelsMarksDownloaded(t *testing.T) {
	cacheDir := t.TempDir()
	modelDir := repoCacheDir(cacheDir, catalogRepo)
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	artifact := filepath.Join(modelDir, "ggml-base.bin")
	if err := os.WriteFile(artifact, []byte("weights"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	options := Models(cacheDir)
	byID := make(map[string]ModelOption, len(options))
	for _, option := range options {
		byID[option.ID] = option
	}

	base, ok := byID["base"]
	if !ok {
		t.Fatal("catalog is missing the base model")
	}
	if !base.Downloaded {
		t.Fatal("base should be marked downloaded")
	}
	if base.LocalPath != artifact {
		t.Fatalf("local path = %q, want %q", base.LocalPath, artifact)
	}
	if byID["tiny"].Downloaded {
		t.Fatal("tiny should not be marked downloaded")
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"tiny", "Tiny"},
		{"tiny.en", "Tiny (English)"},
		{"large-v3-turbo", "Large V3 Turbo"},
		{"base.en", "Base (English)"},
	}
	for _, tt := range tests {
		if got := displayName(tt.id); got != tt.want {
			t.Errorf("displayName(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}
