package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"whisperwatch/internal/testsupport"
)

func TestCheckBinaryFindsKnownTool(t *testing.T) {
	// "sh" exists on every platform these tests run on.
	result := CheckBinary("Shell", "sh")
	if !result.Passed {
		t.Fatalf("result = %+v, want pass", result)
	}
	if result.Detail == "" {
		t.Fatal("detail should carry the resolved path")
	}
}

func TestCheckBinaryMissingTool(t *testing.T) {
	result := CheckBinary("Whisper binary", "definitely-not-a-real-binary")
	if result.Passed {
		t.Fatalf("result = %+v, want failure", result)
	}
	if !strings.Contains(result.Detail, "not found") {
		t.Fatalf("detail = %q", result.Detail)
	}
}

func TestCheckDirectoryAccessCreatesMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "output")
	result := CheckDirectoryAccess("Output directory", path)
	if !result.Passed {
		t.Fatalf("result = %+v, want pass", result)
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		t.Fatalf("directory was not created: %v", err)
	}
}

func TestCheckDirectoryAccessRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	result := CheckDirectoryAccess("Output directory", path)
	if result.Passed {
		t.Fatalf("result = %+v, want failure for a regular file", result)
	}
}

func TestCheckModelHub(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	t.Cleanup(server.Close)

	result := CheckModelHub(context.Background(), server.URL)
	if !result.Passed {
		t.Fatalf("result = %+v, want pass", result)
	}
}

func TestCheckModelHubUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	result := CheckModelHub(context.Background(), server.URL)
	if result.Passed {
		t.Fatalf("result = %+v, want failure", result)
	}
}

func TestCheckModelResolvesCatalogName(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	result := CheckModel(cfg)
	if !result.Passed {
		t.Fatalf("result = %+v, want pass", result)
	}
	if !strings.Contains(result.Detail, "download on first use") {
		t.Fatalf("detail = %q", result.Detail)
	}
}

func TestCheckModelUnknownName(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModel("turbo-xl"))

	result := CheckModel(cfg)
	if result.Passed {
		t.Fatalf("result = %+v, want failure", result)
	}
}

func TestAllPassed(t *testing.T) {
	if !AllPassed([]Result{{Passed: true}, {Passed: true}}) {
		t.Fatal("want true when everything passed")
	}
	if AllPassed([]Result{{Passed: true}, {Passed: false}}) {
		t.Fatal("want false with a failure present")
	}
	if !AllPassed(nil) {
		t.Fatal("want true for no results")
	}
}
