// Package result defines execution outcomes and their text rendering.
package result

import (
	"fmt"
	"strings"

	"wasmexec/internal/exec/sandbox/profile"
	appErr "wasmexec/pkg/errors"
)

// Status represents the terminal state of one execution. Every execution
// produces exactly one status; the three are mutually exclusive.
type Status string

const (
	// StatusCompleted means the entry returned normally.
	StatusCompleted Status = "Completed"
	// StatusTrapped means a runtime fault aborted the guest. This is a
	// program outcome, not a service failure.
	StatusTrapped Status = "Trapped"
	// StatusFailed means execution never reached a running state or was
	// aborted externally.
	StatusFailed Status = "Failed"
)

// Stage identifies where a failed execution stopped.
type Stage string

const (
	StageCompilation     Stage = "compilation"
	StageLinking         Stage = "linking"
	StageEntryResolution Stage = "entry resolution"
	StageCancellation    Stage = "cancellation"
)

// Stream holds the captured bytes of one output channel.
type Stream struct {
	Bytes     []byte
	Truncated bool
}

func (s Stream) empty() bool {
	return len(s.Bytes) == 0 && !s.Truncated
}

// Outcome is the immutable terminal result of one execution.
type Outcome struct {
	Status Status

	// Entry and ExitCode are set for Completed outcomes. ExitCode is nil
	// when the entry convention carries no status and the guest did not
	// exit explicitly.
	Entry    profile.EntryKind
	ExitCode *uint32

	// TrapMessage describes the fault for Trapped outcomes.
	TrapMessage string

	// Stage and FailureMessage describe Failed outcomes.
	Stage          Stage
	FailureMessage string

	Stdout Stream
	Stderr Stream
}

// Completed builds the outcome for a normally returning entry.
func Completed(entry profile.EntryKind, exitCode *uint32, stdout, stderr Stream) Outcome {
	return Outcome{
		Status:   StatusCompleted,
		Entry:    entry,
		ExitCode: exitCode,
		Stdout:   stdout,
		Stderr:   stderr,
	}
}

// Trapped builds the outcome for a guest aborted by a runtime fault,
// preserving whatever output was captured before the fault.
func Trapped(message string, stdout, stderr Stream) Outcome {
	return Outcome{
		Status:      StatusTrapped,
		TrapMessage: message,
		Stdout:      stdout,
		Stderr:      stderr,
	}
}

// FailedAt builds the outcome for an execution that stopped at a stage
// before (or instead of) running guest code.
func FailedAt(stage Stage, message string) Outcome {
	return Outcome{
		Status:         StatusFailed,
		Stage:          stage,
		FailureMessage: message,
	}
}

// ErrorCode maps a failed outcome onto the error taxonomy. Completed and
// trapped outcomes are successes at the transport level.
func (o Outcome) ErrorCode() appErr.ErrorCode {
	if o.Status != StatusFailed {
		return appErr.Success
	}
	switch o.Stage {
	case StageCompilation:
		return appErr.CompilationFailed
	case StageLinking:
		return appErr.LinkingFailed
	case StageEntryResolution:
		return appErr.EntryPointNotFound
	case StageCancellation:
		return appErr.ExecutionCanceled
	default:
		return appErr.SandboxSystemError
	}
}

const truncatedMarker = "[output truncated]"

// Report renders the outcome as the stable human-readable response body.
// Captured bytes are decoded lossily: guest output is untrusted and must
// not break the reporting path.
func (o Outcome) Report() string {
	switch o.Status {
	case StatusFailed:
		return fmt.Sprintf("%s failed: %s", o.Stage, o.FailureMessage)
	case StatusTrapped:
		var b strings.Builder
		fmt.Fprintf(&b, "wasm trap: %s", o.TrapMessage)
		writeStreamSections(&b, o.Stdout, o.Stderr)
		return b.String()
	default:
		return o.completedReport()
	}
}

func (o Outcome) completedReport() string {
	// A plain run with nothing on stderr, nothing truncated and no
	// status to report renders as bare stdout.
	showExit := o.ExitCode != nil && (o.Entry.ReturnsStatus() || *o.ExitCode != 0)
	if o.Stderr.empty() && !o.Stdout.Truncated && !showExit {
		return decode(o.Stdout.Bytes)
	}

	var b strings.Builder
	writeStream(&b, "stdout", o.Stdout)
	if !o.Stderr.empty() {
		b.WriteString("\n\n")
		writeStream(&b, "stderr", o.Stderr)
	}
	if showExit {
		fmt.Fprintf(&b, "\n\n-- exit status --\n%d", *o.ExitCode)
	}
	return b.String()
}

func writeStreamSections(b *strings.Builder, stdout, stderr Stream) {
	if !stdout.empty() {
		b.WriteString("\n\n")
		writeStream(b, "stdout", stdout)
	}
	if !stderr.empty() {
		b.WriteString("\n\n")
		writeStream(b, "stderr", stderr)
	}
}

func writeStream(b *strings.Builder, name string, s Stream) {
	fmt.Fprintf(b, "-- %s --\n%s", name, decode(s.Bytes))
	if s.Truncated {
		b.WriteString("\n" + truncatedMarker)
	}
}

// decode converts untrusted bytes to text, replacing malformed sequences.
func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
