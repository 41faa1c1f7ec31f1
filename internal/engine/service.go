package engine

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"whisperwatch/internal/config"
	"whisperwatch/internal/logging"
	"whisperwatch/internal/services"
)

// deviceErrorMarkers identify a broken accelerator runtime in error text from
// the engine binary (missing or unloadable CUDA libraries, driver mismatch).
var deviceErrorMarkers = []string{
	"cublas64",
	"cublas",
	"cudnn",
	"cuda",
	"failed to load",
	"cannot be loaded",
}

// Service owns model acquisition and the live engine handle. One handle is
// retained at a time, tagged with the model it was built for; requesting a
// different model tears it down and rebuilds.
type Service struct {
	baseURL  string
	cacheDir string
	gpu      bool
	backend  Backend
	client   *http.Client
	logger   *slog.Logger

	mu          sync.Mutex
	handle      Handle
	handleModel string
	modelDir    string
}

// NewService wires a Service from configuration and a backend.
func NewService(cfg *config.Config, backend Backend, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		baseURL:  cfg.Models.BaseURL,
		cacheDir: cfg.Models.CacheDir,
		gpu:      cfg.Whisper.GPU,
		backend:  backend,
		client:   &http.Client{Timeout: 30 * time.Minute},
		logger:   logging.NewComponentLogger(logger, "engine"),
	}
}

// Prepare resolves and acquires the model and builds the engine handle
// without running inference. Used by preflight and warm-up paths.
func (s *Service) Prepare(ctx context.Context, modelID string, progress ProgressFunc) error {
	_, err := s.ensureHandle(ctx, modelID, progress)
	return err
}

// Transcribe runs inference on mediaPath with the given model, streaming
// segments through emit in media order. When the accelerated device fails
// before the first segment is produced, the engine is rebuilt on CPU and the
// call retried exactly once.
func (s *Service) Transcribe(ctx context.Context, modelID, mediaPath string, progress ProgressFunc, emit func(Segment) error) error {
	handle, err := s.ensureHandle(ctx, modelID, progress)
	if err != nil {
		return err
	}

	var segments int
	counted := func(seg Segment) error {
		segments++
		return emit(seg)
	}

	emitProgress(progress, "Transcribing", PercentUnknown, "running inference on "+string(handle.Device()))
	err = handle.Transcribe(ctx, mediaPath, counted)
	if err == nil {
		return nil
	}

	// Retry on CPU only when the accelerator failed before emitting anything;
	// a mid-stream failure would duplicate segments on retry.
	if handle.Device() == DeviceCUDA && segments == 0 && isDeviceRuntimeError(err) {
		s.logger.Warn("accelerated inference failed, retrying on cpu", logging.Error(err))
		fallback, loadErr := s.rebuildOnCPU(ctx, modelID)
		if loadErr != nil {
			return loadErr
		}
		emitProgress(progress, "Transcribing", PercentUnknown, "retrying inference on cpu")
		if retryErr := fallback.Transcribe(ctx, mediaPath, counted); retryErr != nil {
			return services.Wrap(services.ErrExternalTool, "engine", "transcribe", "cpu retry for "+mediaPath, retryErr)
		}
		return nil
	}
	return services.Wrap(services.ErrExternalTool, "engine", "transcribe", "inference for "+mediaPath, err)
}

// ensureHandle returns a handle for modelID, reusing the cached one when the
// model matches and building a fresh one otherwise.
func (s *Service) ensureHandle(ctx context.Context, modelID string, progress ProgressFunc) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil && s.handleModel == modelID {
		return s.handle, nil
	}

	ref, err := Resolve(modelID)
	if err != nil {
		return nil, err
	}
	modelDir, err := acquire(ctx, s.client, s.baseURL, s.cacheDir, ref, progress)
	if err != nil {
		return nil, err
	}

	device := DeviceCPU
	if s.gpu {
		device = DeviceCUDA
	}
	emitProgress(progress, "Loading model", PercentUnknown, "building engine on "+string(device))
	handle, err := s.backend.Load(ctx, modelDir, device)
	if err != nil && device == DeviceCUDA && isDeviceRuntimeError(err) {
		s.logger.Warn("accelerated engine unavailable, falling back to cpu", logging.Error(err))
		emitProgress(progress, "Loading model", PercentUnknown, "building engine on cpu")
		handle, err = s.backend.Load(ctx, modelDir, DeviceCPU)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "engine", "load model", "build engine for "+modelID, err)
	}

	s.handle = handle
	s.handleModel = modelID
	s.modelDir = modelDir
	s.logger.Info("engine ready",
		logging.String("model", modelID),
		logging.String("device", string(handle.Device())))
	return handle, nil
}

// rebuildOnCPU replaces the cached handle with a CPU build of the same model.
func (s *Service) rebuildOnCPU(ctx context.Context, modelID string) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle, err := s.backend.Load(ctx, s.modelDir, DeviceCPU)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "engine", "load model", "rebuild cpu engine for "+modelID, err)
	}
	s.handle = handle
	s.handleModel = modelID
	return handle, nil
}

// isDeviceRuntimeError reports whether err looks like a broken accelerator
// runtime rather than a genuine inference failure.
func isDeviceRuntimeError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, services.ErrDeviceRuntime) {
		return true
	}
	message := strings.ToLower(err.Error())
	for _, marker := range deviceErrorMarkers {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}
