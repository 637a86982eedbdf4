package engine

import (
	"wasmexec/internal/exec/sandbox/profile"
	"wasmexec/internal/exec/sandbox/spec"
)

const defaultCaptureBytes = 1 * 1024 * 1024

// Config controls sandbox engine behavior.
type Config struct {
	// Limits is the process-wide immutable sandbox limit set.
	Limits spec.Limits
	// Profile is the ABI profile this process serves.
	Profile profile.Kind
	// CaptureBytes caps each captured output stream per execution.
	CaptureBytes int
	// Interruptible makes guest code abort when the request context
	// ends. Without it a compute-only guest that never calls a host
	// capability cannot be interrupted. The check is cooperative: guest
	// code is only stopped at runtime check points, not mid-instruction.
	Interruptible bool
	// CompilationCache enables a shared content-keyed cache of compiled
	// payloads. The cache is read-only from the request's point of view
	// and holds no per-execution state.
	CompilationCache bool
}

func (c Config) captureBytes() int {
	if c.CaptureBytes <= 0 {
		return defaultCaptureBytes
	}
	return c.CaptureBytes
}
