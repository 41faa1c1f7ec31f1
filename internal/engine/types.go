package engine

import "context"

// Segment is one timed span of recognized text. Start and End are seconds from
// the beginning of the media; Text is never empty.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// ProgressFunc receives acquisition and inference stage updates. Percent is
// 0..100 or PercentUnknown for indeterminate stages.
type ProgressFunc func(stage string, percent int, detail string)

// PercentUnknown marks a progress update with no meaningful percentage.
const PercentUnknown = -1

// Device identifies the compute device an engine handle was built for.
type Device string

const (
	// DeviceCPU is the conservative baseline that works everywhere.
	DeviceCPU Device = "cpu"
	// DeviceCUDA is the accelerated device, attempted only when opted in.
	DeviceCUDA Device = "cuda"
)

// Handle is a loaded, ready-to-use inference engine instance.
type Handle interface {
	// Transcribe streams recognized segments through emit in media order.
	// Returning an error from emit aborts the run with that error.
	Transcribe(ctx context.Context, mediaPath string, emit func(Segment) error) error
	// Device reports the compute device the handle was built for.
	Device() Device
}

// Backend constructs engine handles from acquired model artifacts.
type Backend interface {
	Load(ctx context.Context, modelDir string, device Device) (Handle, error)
}
