// Package spec defines the process-wide sandbox limits.
package spec

import (
	appErr "wasmexec/pkg/errors"
)

const wasmPageSize = 64 * 1024

// Limits describes hard resource bounds applied to every sandbox.
//
// It is constructed once at process start, never mutated afterwards, and
// shared by reference across all concurrent executions. Concurrent reads
// need no synchronization.
//
// Deployment hosts for this service may cap reservable address space
// (constrained enclaves), so reservations are explicit instead of sized
// from available hardware.
type Limits struct {
	// InitialMemoryReservationBytes is the linear memory reserved for a
	// fresh sandbox. Must be > 0.
	InitialMemoryReservationBytes int64
	// GrowthReservationBytes is the additional memory a guest may grow
	// into beyond the initial reservation.
	GrowthReservationBytes int64
	// GuardPageSizeBytes must be 0: the embedded runtime bounds-checks
	// linear memory and has no guard-page concept.
	GuardPageSizeBytes int64
	// AllowMemoryRelocation permits guest memory to be reallocated on
	// growth. When false the full capacity is reserved up front so the
	// backing allocation never moves.
	AllowMemoryRelocation bool
}

// DefaultLimits mirrors the constrained-host serving defaults: a small
// initial reservation, modest growth headroom, no guard pages.
func DefaultLimits() Limits {
	return Limits{
		InitialMemoryReservationBytes: 1 * 1024 * 1024,
		GrowthReservationBytes:        16 * 1024 * 1024,
		GuardPageSizeBytes:            0,
		AllowMemoryRelocation:         true,
	}
}

// Validate reports whether the limits are internally consistent.
// A process must not start with invalid limits.
func (l Limits) Validate() error {
	if l.InitialMemoryReservationBytes <= 0 {
		return appErr.New(appErr.InvalidSandboxLimit).
			WithMessage("initial memory reservation must be greater than zero")
	}
	if l.GrowthReservationBytes < 0 {
		return appErr.New(appErr.InvalidSandboxLimit).
			WithMessage("growth reservation must not be negative")
	}
	if l.GuardPageSizeBytes != 0 {
		return appErr.New(appErr.InvalidSandboxLimit).
			WithMessage("guard pages are not supported by the embedded runtime; set guardPageSizeBytes to 0")
	}
	return nil
}

// MemoryLimitPages converts the total reservation into 64 KiB wasm pages,
// rounding up so a partial page still fits.
func (l Limits) MemoryLimitPages() uint32 {
	total := l.InitialMemoryReservationBytes + l.GrowthReservationBytes
	pages := (total + wasmPageSize - 1) / wasmPageSize
	if pages < 1 {
		pages = 1
	}
	return uint32(pages)
}
