package engine_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"wasmexec/internal/exec/sandbox/engine"
	"wasmexec/internal/exec/sandbox/profile"
	"wasmexec/internal/exec/sandbox/result"
	"wasmexec/internal/exec/sandbox/spec"
	"wasmexec/internal/exec/sandbox/wasmtest"
	appErr "wasmexec/pkg/errors"
)

func newEngine(t *testing.T, cfg engine.Config) *engine.Engine {
	t.Helper()
	if cfg.Limits == (spec.Limits{}) {
		cfg.Limits = spec.DefaultLimits()
	}
	eng, err := engine.NewEngine(cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return eng
}

func execute(t *testing.T, eng *engine.Engine, payload []byte) result.Outcome {
	t.Helper()
	return eng.Execute(context.Background(), engine.Request{
		ExecutionID: "test",
		Payload:     payload,
	})
}

func TestNewEngineRejectsInvalidLimits(t *testing.T) {
	limits := spec.DefaultLimits()
	limits.GuardPageSizeBytes = 4096
	_, err := engine.NewEngine(engine.Config{Limits: limits})
	if err == nil {
		t.Fatal("expected error")
	}
	if !appErr.Is(err, appErr.InvalidSandboxLimit) {
		t.Fatalf("expected InvalidSandboxLimit, got %v", err)
	}
}

func TestStartEntryCompletes(t *testing.T) {
	eng := newEngine(t, engine.Config{})
	out := execute(t, eng, wasmtest.StartNop())
	if out.Status != result.StatusCompleted {
		t.Fatalf("expected Completed, got %+v", out)
	}
	if out.Entry != profile.EntryStart {
		t.Fatalf("expected start entry, got %q", out.Entry)
	}
	if out.ExitCode != nil {
		t.Fatalf("start entry carries no exit code, got %d", *out.ExitCode)
	}
}

func TestMainEntryReturnsStatus(t *testing.T) {
	eng := newEngine(t, engine.Config{})
	out := execute(t, eng, wasmtest.MainReturning(7))
	if out.Status != result.StatusCompleted {
		t.Fatalf("expected Completed, got %+v", out)
	}
	if out.Entry != profile.EntryMain {
		t.Fatalf("expected main entry, got %q", out.Entry)
	}
	if out.ExitCode == nil || *out.ExitCode != 7 {
		t.Fatalf("expected exit code 7, got %v", out.ExitCode)
	}
}

func TestStartPreferredOverMain(t *testing.T) {
	eng := newEngine(t, engine.Config{})
	out := execute(t, eng, wasmtest.DualEntry())
	if out.Status != result.StatusCompleted {
		t.Fatalf("expected Completed, got %+v", out)
	}
	if out.Entry != profile.EntryStart {
		t.Fatalf("_start must win over main, got %q", out.Entry)
	}
}

func TestStdoutCaptured(t *testing.T) {
	eng := newEngine(t, engine.Config{})
	out := execute(t, eng, wasmtest.StartPrint("hello\n"))
	if out.Status != result.StatusCompleted {
		t.Fatalf("expected Completed, got %+v", out)
	}
	if string(out.Stdout.Bytes) != "hello\n" {
		t.Fatalf("unexpected stdout %q", out.Stdout.Bytes)
	}
	if got := out.Report(); got != "hello\n" {
		t.Fatalf("unexpected report %q", got)
	}
}

func TestStderrCaptured(t *testing.T) {
	eng := newEngine(t, engine.Config{})
	out := execute(t, eng, wasmtest.StartPrintStderr("oops\n"))
	if out.Status != result.StatusCompleted {
		t.Fatalf("expected Completed, got %+v", out)
	}
	if string(out.Stderr.Bytes) != "oops\n" {
		t.Fatalf("unexpected stderr %q", out.Stderr.Bytes)
	}
	if got := out.Report(); !strings.Contains(got, "-- stderr --\noops\n") {
		t.Fatalf("missing stderr section in %q", got)
	}
}

func TestOutputTruncatedAtCap(t *testing.T) {
	eng := newEngine(t, engine.Config{CaptureBytes: 4})
	out := execute(t, eng, wasmtest.StartPrint("hello\n"))
	if out.Status != result.StatusCompleted {
		t.Fatalf("expected Completed, got %+v", out)
	}
	if string(out.Stdout.Bytes) != "hell" {
		t.Fatalf("expected capped stdout, got %q", out.Stdout.Bytes)
	}
	if !out.Stdout.Truncated {
		t.Fatal("expected truncated flag")
	}
	if got := out.Report(); !strings.Contains(got, "[output truncated]") {
		t.Fatalf("missing truncation marker in %q", got)
	}
}

func TestTrapPreservesOutput(t *testing.T) {
	eng := newEngine(t, engine.Config{})
	out := execute(t, eng, wasmtest.StartPrintThenTrap("before\n"))
	if out.Status != result.StatusTrapped {
		t.Fatalf("expected Trapped, got %+v", out)
	}
	if !strings.Contains(out.TrapMessage, "unreachable") {
		t.Fatalf("unexpected trap message %q", out.TrapMessage)
	}
	if string(out.Stdout.Bytes) != "before\n" {
		t.Fatalf("output before trap lost: %q", out.Stdout.Bytes)
	}
}

func TestExplicitExitIsCompleted(t *testing.T) {
	eng := newEngine(t, engine.Config{})
	out := execute(t, eng, wasmtest.StartExit(3))
	if out.Status != result.StatusCompleted {
		t.Fatalf("explicit exit is a program outcome, got %+v", out)
	}
	if out.ExitCode == nil || *out.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %v", out.ExitCode)
	}
	if got := out.Report(); !strings.Contains(got, "-- exit status --\n3") {
		t.Fatalf("missing exit status in %q", got)
	}
}

func TestExplicitZeroExitRendersBare(t *testing.T) {
	eng := newEngine(t, engine.Config{})
	out := execute(t, eng, wasmtest.StartExit(0))
	if out.Status != result.StatusCompleted {
		t.Fatalf("expected Completed, got %+v", out)
	}
	if got := out.Report(); got != "" {
		t.Fatalf("expected empty bare report, got %q", got)
	}
}

func TestEmptyPayloadFailsCompilation(t *testing.T) {
	eng := newEngine(t, engine.Config{})
	out := execute(t, eng, nil)
	if out.Status != result.StatusFailed || out.Stage != result.StageCompilation {
		t.Fatalf("expected compilation failure, got %+v", out)
	}
}

func TestGarbagePayloadFailsCompilation(t *testing.T) {
	eng := newEngine(t, engine.Config{})
	out := execute(t, eng, []byte("definitely not wasm"))
	if out.Status != result.StatusFailed || out.Stage != result.StageCompilation {
		t.Fatalf("expected compilation failure, got %+v", out)
	}
	if out.ErrorCode() != appErr.CompilationFailed {
		t.Fatalf("unexpected error code %d", out.ErrorCode())
	}
}

func TestMissingEntryFailsResolution(t *testing.T) {
	eng := newEngine(t, engine.Config{})
	out := execute(t, eng, wasmtest.ComponentRun(0))
	if out.Status != result.StatusFailed || out.Stage != result.StageEntryResolution {
		t.Fatalf("expected entry resolution failure, got %+v", out)
	}
	if !strings.Contains(out.FailureMessage, "_start") {
		t.Fatalf("failure must name the expected exports, got %q", out.FailureMessage)
	}
}

func TestComponentProfileRunsCommandEntry(t *testing.T) {
	eng := newEngine(t, engine.Config{Profile: profile.Component})
	out := execute(t, eng, wasmtest.ComponentRun(0))
	if out.Status != result.StatusCompleted {
		t.Fatalf("expected Completed, got %+v", out)
	}
	if out.Entry != profile.EntryCommandRun {
		t.Fatalf("expected command run entry, got %q", out.Entry)
	}
	if out.ExitCode == nil || *out.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %v", out.ExitCode)
	}
}

func TestComponentProfileRejectsModulePayload(t *testing.T) {
	eng := newEngine(t, engine.Config{Profile: profile.Component})
	out := execute(t, eng, wasmtest.StartNop())
	if out.Status != result.StatusFailed || out.Stage != result.StageEntryResolution {
		t.Fatalf("expected entry resolution failure, got %+v", out)
	}
}

func TestDeadlineStopsGuest(t *testing.T) {
	eng := newEngine(t, engine.Config{Interruptible: true})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	out := eng.Execute(ctx, engine.Request{ExecutionID: "loop", Payload: wasmtest.StartLoop()})
	if out.Status != result.StatusFailed || out.Stage != result.StageCancellation {
		t.Fatalf("expected cancellation failure, got %+v", out)
	}
	if out.ErrorCode() != appErr.ExecutionCanceled {
		t.Fatalf("unexpected error code %d", out.ErrorCode())
	}
}

func TestCancelStopsGuest(t *testing.T) {
	eng := newEngine(t, engine.Config{Interruptible: true})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	out := eng.Execute(ctx, engine.Request{ExecutionID: "loop", Payload: wasmtest.StartLoop()})
	if out.Status != result.StatusFailed || out.Stage != result.StageCancellation {
		t.Fatalf("expected cancellation failure, got %+v", out)
	}
}
