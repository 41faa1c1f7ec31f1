package engine

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"whisperwatch/internal/services"
)

// WhisperCPP drives the whisper.cpp command line binary as the inference
// backend. Segments stream from the process stdout as they are recognized.
type WhisperCPP struct {
	binary   string
	language string
}

// NewWhisperCPP returns a backend for the given whisper.cpp binary. Language
// is the source language hint; "auto" enables detection.
func NewWhisperCPP(binary, language string) *WhisperCPP {
	if language == "" {
		language = "auto"
	}
	return &WhisperCPP{binary: binary, language: language}
}

// Load verifies the binary and locates the model artifact under modelDir. The
// accelerator is only exercised at inference time, so a broken runtime
// surfaces through Transcribe rather than here.
func (b *WhisperCPP) Load(_ context.Context, modelDir string, device Device) (Handle, error) {
	path, err := exec.LookPath(b.binary)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "load model", b.binary+" not found in PATH", err)
	}
	modelPath, err := findModelFile(modelDir)
	if err != nil {
		return nil, err
	}
	return &whisperHandle{binary: path, language: b.language, modelPath: modelPath, device: device}, nil
}

type whisperHandle struct {
	binary    string
	language  string
	modelPath string
	device    Device
}

func (h *whisperHandle) Device() Device {
	return h.device
}

// segmentPattern matches whisper.cpp's timestamped output lines, e.g.
// "[00:01:02.345 --> 00:01:04.000]  recognized text".
var segmentPattern = regexp.MustCompile(`^\[(\d{2,}):(\d{2}):(\d{2})[.,](\d{3}) --> (\d{2,}):(\d{2}):(\d{2})[.,](\d{3})\]\s*(.*)$`)

func (h *whisperHandle) Transcribe(ctx context.Context, mediaPath string, emit func(Segment) error) error {
	args := []string{"-m", h.modelPath, "-l", h.language, "-f", mediaPath}
	if h.device == DeviceCPU {
		args = append(args, "--no-gpu")
	}
	cmd := exec.CommandContext(ctx, h.binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", filepath.Base(h.binary), err)
	}

	var (
		wg          sync.WaitGroup
		emitErr     error
		stderrMu    sync.Mutex
		stderrLines []string
	)
	wg.Add(2)

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			seg, ok := parseSegmentLine(scanner.Text())
			if !ok {
				continue
			}
			if emitErr == nil {
				if err := emit(seg); err != nil {
					emitErr = err
					_ = cmd.Process.Kill()
				}
			}
		}
	}()

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			stderrMu.Lock()
			// Keep a bounded tail for error reporting.
			if len(stderrLines) >= 40 {
				stderrLines = stderrLines[1:]
			}
			stderrLines = append(stderrLines, line)
			stderrMu.Unlock()
		}
	}()

	waitErr := cmd.Wait()
	wg.Wait()

	if emitErr != nil {
		return emitErr
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if waitErr != nil {
		stderrMu.Lock()
		tail := strings.Join(stderrLines, "\n")
		stderrMu.Unlock()
		if containsDeviceMarker(tail) {
			return services.Wrap(services.ErrDeviceRuntime, "engine", "transcribe",
				fmt.Sprintf("%s accelerator failure: %s", filepath.Base(h.binary), tail), waitErr)
		}
		return services.Wrap(services.ErrExternalTool, "engine", "transcribe",
			fmt.Sprintf("%s exited with error: %s", filepath.Base(h.binary), tail), waitErr)
	}
	return nil
}

// parseSegmentLine converts one timestamped output line into a Segment.
// Lines without a timestamp prefix or with empty text are skipped.
func parseSegmentLine(line string) (Segment, bool) {
	match := segmentPattern.FindStringSubmatch(strings.TrimSpace(line))
	if match == nil {
		return Segment{}, false
	}
	text := strings.TrimSpace(match[9])
	if text == "" {
		return Segment{}, false
	}
	return Segment{
		Start: clockSeconds(match[1], match[2], match[3], match[4]),
		End:   clockSeconds(match[5], match[6], match[7], match[8]),
		Text:  text,
	}, true
}

func clockSeconds(hours, minutes, seconds, millis string) float64 {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)
	ms, _ := strconv.Atoi(millis)
	return float64(h)*3600 + float64(m)*60 + float64(s) + float64(ms)/1000
}

func containsDeviceMarker(text string) bool {
	lowered := strings.ToLower(text)
	for _, marker := range deviceErrorMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// findModelFile locates the ggml artifact under modelDir, preferring the
// largest .bin file when the repository ships several.
func findModelFile(modelDir string) (string, error) {
	entries, err := os.ReadDir(modelDir)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "engine", "load model", "read "+modelDir, err)
	}
	var (
		best     string
		bestSize int64
	)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".bin") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if best == "" || info.Size() > bestSize {
			best = filepath.Join(modelDir, entry.Name())
			bestSize = info.Size()
		}
	}
	if best == "" {
		return "", services.Wrap(services.ErrNotFound, "engine", "load model", "no model artifact in "+modelDir, nil)
	}
	return best, nil
}
