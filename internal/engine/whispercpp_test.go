package engine

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestParseSegmentLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Segment
		ok   bool
	}{
		{
			name: "standard line",
			line: "[00:01:02.345 --> 00:01:04.000]  hello world",
			want: Segment{Start: 62.345, End: 64.0, Text: "hello world"},
			ok:   true,
		},
		{
			name: "comma separators",
			line: "[00:00:00,500 --> 00:00:02,250] first words",
			want: Segment{Start: 0.5, End: 2.25, Text: "first words"},
			ok:   true,
		},
		{
			name: "hour overflow",
			line: "[01:00:00.000 --> 01:00:05.000] long recording",
			want: Segment{Start: 3600, End: 3605, Text: "long recording"},
			ok:   true,
		},
		{name: "progress noise", line: "whisper_print_timings: total time = 1000 ms", ok: false},
		{name: "empty text", line: "[00:00:00.000 --> 00:00:01.000]   ", ok: false},
		{name: "blank", line: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseSegmentLine(tt.line)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if math.Abs(got.Start-tt.want.Start) > 1e-9 || math.Abs(got.End-tt.want.End) > 1e-9 {
				t.Fatalf("times = (%v, %v), want (%v, %v)", got.Start, got.End, tt.want.Start, tt.want.End)
			}
			if got.Text != tt.want.Text {
				t.Fatalf("text = %q, want %q", got.Text, tt.want.Text)
			}
		})
	}
}

func TestFindModelFilePrefersLargest(t *testing.T) {
	modelDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(modelDir, "ggml-tiny.bin"), []byte("aa"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(modelDir, "ggml-large-v3.bin"), []byte("aaaaaaaa"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(modelDir, "README.md"), []byte("docs"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := findModelFile(modelDir)
	if err != nil {
		t.Fatalf("findModelFile: %v", err)
	}
	if filepath.Base(got) != "ggml-large-v3.bin" {
		t.Fatalf("model = %q, want the largest .bin", got)
	}
}

func TestFindModelFileEmptyDir(t *testing.T) {
	if _, err := findModelFile(t.TempDir()); err == nil {
		t.Fatal("expected error for empty model dir")
	}
}

func TestContainsDeviceMarker(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"ggml_cuda_init: failed to initialize CUDA", true},
		{"Could not load library cudnn_ops64_9.dll", true},
		{"error: model file cannot be loaded", true},
		{"error: invalid sample rate", false},
	}
	for _, tt := range tests {
		if got := containsDeviceMarker(tt.text); got != tt.want {
			t.Errorf("containsDeviceMarker(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
