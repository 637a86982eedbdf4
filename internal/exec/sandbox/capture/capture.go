// Package capture provides bounded in-memory buffers for guest stdio.
package capture

import "sync"

// Buffer is a bounded append-only byte buffer. Writes past capacity are
// dropped, not wrapped and not surfaced as write errors, and set the
// truncated flag. One buffer belongs to exactly one execution and is
// never connected to the host process stdio.
type Buffer struct {
	mu        sync.Mutex
	data      []byte
	capacity  int
	truncated bool
}

// NewBuffer creates a buffer with the given capacity in bytes.
// A non-positive capacity falls back to a single byte so the truncated
// flag still behaves.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffer{capacity: capacity}
}

// Write implements io.Writer. It always reports the full input length as
// written so guest fd writes keep succeeding after the cap is reached.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	remaining := b.capacity - len(b.data)
	if remaining <= 0 {
		if len(p) > 0 {
			b.truncated = true
		}
		return len(p), nil
	}
	if len(p) > remaining {
		b.data = append(b.data, p[:remaining]...)
		b.truncated = true
		return len(p), nil
	}
	b.data = append(b.data, p...)
	return len(p), nil
}

// Snapshot returns a copy of the accumulated bytes and the truncated
// flag. Intended to be read after the owning execution reached a
// terminal state; writes cease naturally once execution ends.
func (b *Buffer) Snapshot() ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out, b.truncated
}

// Len returns the number of bytes captured so far.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}
