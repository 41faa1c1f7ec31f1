package queue

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeMedia(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
		paths = append(paths, path)
	}
	return paths
}

func TestAddSkipsNonRegularFiles(t *testing.T) {
	registry := NewRegistry()
	dir := t.TempDir()
	paths := writeMedia(t, dir, "a.mp3")
	paths = append(paths, filepath.Join(dir, "missing.mp3"), dir)

	created, err := registry.Add(paths, filepath.Join(dir, "out"), "tiny")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("created = %d jobs, want 1", len(created))
	}
	if created[0].Status != StatusPending {
		t.Fatalf("status = %s, want pending", created[0].Status)
	}
	if created[0].ID == "" {
		t.Fatal("job must get an id")
	}
}

func TestAddCreatesOutputDir(t *testing.T) {
	registry := NewRegistry()
	dir := t.TempDir()
	outputDir := filepath.Join(dir, "nested", "out")

	if _, err := registry.Add(writeMedia(t, dir, "a.mp3"), outputDir, "tiny"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	info, err := os.Stat(outputDir)
	if err != nil || !info.IsDir() {
		t.Fatalf("output dir missing: %v", err)
	}
}

func TestClaimNextIsFIFO(t *testing.T) {
	registry := NewRegistry()
	dir := t.TempDir()
	paths := writeMedia(t, dir, "a.mp3", "b.mp3", "c.mp3")
	if _, err := registry.Add(paths, filepath.Join(dir, "out"), "tiny"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	for _, want := range []string{"a.mp3", "b.mp3", "c.mp3"} {
		job, ok := registry.ClaimNext()
		if !ok {
			t.Fatalf("ClaimNext ran dry before %s", want)
		}
		if filepath.Base(job.SourcePath) != want {
			t.Fatalf("claimed %s, want %s", filepath.Base(job.SourcePath), want)
		}
		if job.Status != StatusRunning {
			t.Fatalf("claimed status = %s, want running", job.Status)
		}
	}
	if _, ok := registry.ClaimNext(); ok {
		t.Fatal("ClaimNext should report an empty FIFO")
	}
	if registry.PendingCount() != 0 {
		t.Fatalf("pending = %d, want 0", registry.PendingCount())
	}
}

func TestCompleteRecordsResults(t *testing.T) {
	registry := NewRegistry()
	dir := t.TempDir()
	if _, err := registry.Add(writeMedia(t, dir, "a.mp3"), filepath.Join(dir, "out"), "tiny"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	claimed, _ := registry.ClaimNext()

	job, ok := registry.Complete(claimed.ID, "hello world", "/out/a.srt")
	if !ok {
		t.Fatal("Complete rejected a running job")
	}
	if job.Status != StatusCompleted || job.Transcript != "hello world" || job.SubtitlePath != "/out/a.srt" {
		t.Fatalf("job = %+v", job)
	}
}

func TestFailRequiresRunningJob(t *testing.T) {
	registry := NewRegistry()
	dir := t.TempDir()
	created, err := registry.Add(writeMedia(t, dir, "a.mp3"), filepath.Join(dir, "out"), "tiny")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	// Still pending, not running.
	if _, ok := registry.Fail(created[0].ID, "boom"); ok {
		t.Fatal("Fail should reject a pending job")
	}
	claimed, _ := registry.ClaimNext()
	job, ok := registry.Fail(claimed.ID, "boom")
	if !ok || job.Status != StatusFailed || job.ErrorMessage != "boom" {
		t.Fatalf("job = %+v, ok = %v", job, ok)
	}
	// Terminal states stay terminal.
	if _, ok := registry.Complete(claimed.ID, "", ""); ok {
		t.Fatal("Complete should reject a failed job")
	}
}

func TestSnapshotIsIsolatedCopy(t *testing.T) {
	registry := NewRegistry()
	dir := t.TempDir()
	if _, err := registry.Add(writeMedia(t, dir, "a.mp3"), filepath.Join(dir, "out"), "tiny"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	snapshot := registry.Snapshot()
	snapshot[0].Status = StatusFailed
	snapshot[0].ErrorMessage = "mutated"

	fresh, _ := registry.Get(snapshot[0].ID)
	if fresh.Status != StatusPending || fresh.ErrorMessage != "" {
		t.Fatalf("registry state leaked through snapshot: %+v", fresh)
	}
}

func TestParseStatus(t *testing.T) {
	for _, status := range AllStatuses() {
		parsed, ok := ParseStatus("  " + strings.ToUpper(string(status)) + " ")
		if !ok || parsed != status {
			t.Fatalf("ParseStatus(%q) = %v, %v", status, parsed, ok)
		}
	}
	if _, ok := ParseStatus("bogus"); ok {
		t.Fatal("unknown status must not parse")
	}
}

func TestIsTerminal(t *testing.T) {
	if StatusPending.IsTerminal() || StatusRunning.IsTerminal() {
		t.Fatal("pending/running must not be terminal")
	}
	if !StatusCompleted.IsTerminal() || !StatusFailed.IsTerminal() {
		t.Fatal("completed/failed must be terminal")
	}
}
