// Package engine acquires and drives the speech-to-text inference engine.
//
// The Service resolves a model identifier against the built-in catalog (or
// accepts a fully qualified repository reference), computes a differential
// download manifest against the local cache, fetches only the missing
// artifacts with throttled byte-level progress, and loads the engine through a
// Backend. One handle is retained at a time, tagged with the model and compute
// device it was built for; requesting a different model rebuilds it.
//
// Device selection defaults to CPU. When the accelerated device is opted in
// and its runtime is broken (unloadable CUDA libraries, driver mismatch), the
// Service falls back to CPU: at load time by rebuilding before the handle is
// ever returned, and at transcribe time by one rebuild-and-retry if the first
// inference call fails with the accelerator error signature before producing
// any segment.
package engine
