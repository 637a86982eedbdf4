package result_test

import (
	"strings"
	"testing"

	"wasmexec/internal/exec/sandbox/profile"
	"wasmexec/internal/exec/sandbox/result"
	appErr "wasmexec/pkg/errors"
)

func stream(s string) result.Stream {
	return result.Stream{Bytes: []byte(s)}
}

func TestCompletedBareStdout(t *testing.T) {
	out := result.Completed(profile.EntryStart, nil, stream("hello\n"), result.Stream{})
	if got := out.Report(); got != "hello\n" {
		t.Fatalf("expected bare stdout, got %q", got)
	}
}

func TestCompletedWithStderrUsesSections(t *testing.T) {
	out := result.Completed(profile.EntryStart, nil, stream("out\n"), stream("err\n"))
	want := "-- stdout --\nout\n\n\n-- stderr --\nerr\n"
	if got := out.Report(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestCompletedMainShowsExitStatus(t *testing.T) {
	code := uint32(7)
	out := result.Completed(profile.EntryMain, &code, stream("done\n"), result.Stream{})
	got := out.Report()
	if !strings.Contains(got, "-- stdout --\ndone\n") {
		t.Fatalf("missing stdout section in %q", got)
	}
	if !strings.Contains(got, "-- exit status --\n7") {
		t.Fatalf("missing exit status in %q", got)
	}
}

func TestCompletedStartZeroExitStaysBare(t *testing.T) {
	code := uint32(0)
	out := result.Completed(profile.EntryStart, &code, stream("ok\n"), result.Stream{})
	if got := out.Report(); got != "ok\n" {
		t.Fatalf("zero explicit exit from _start must render bare, got %q", got)
	}
}

func TestCompletedStartNonzeroExitShown(t *testing.T) {
	code := uint32(3)
	out := result.Completed(profile.EntryStart, &code, stream(""), result.Stream{})
	if got := out.Report(); !strings.Contains(got, "-- exit status --\n3") {
		t.Fatalf("nonzero exit must show, got %q", got)
	}
}

func TestTruncatedStdoutGetsMarker(t *testing.T) {
	out := result.Completed(profile.EntryStart, nil,
		result.Stream{Bytes: []byte("hell"), Truncated: true}, result.Stream{})
	got := out.Report()
	if !strings.Contains(got, "-- stdout --\nhell") {
		t.Fatalf("missing stdout section in %q", got)
	}
	if !strings.Contains(got, "[output truncated]") {
		t.Fatalf("missing truncation marker in %q", got)
	}
}

func TestTrappedReportIncludesOutput(t *testing.T) {
	out := result.Trapped("unreachable", stream("partial\n"), result.Stream{})
	got := out.Report()
	if !strings.HasPrefix(got, "wasm trap: unreachable") {
		t.Fatalf("unexpected prefix in %q", got)
	}
	if !strings.Contains(got, "-- stdout --\npartial\n") {
		t.Fatalf("missing captured output in %q", got)
	}
}

func TestTrappedWithoutOutputIsBare(t *testing.T) {
	out := result.Trapped("integer divide by zero", result.Stream{}, result.Stream{})
	if got := out.Report(); got != "wasm trap: integer divide by zero" {
		t.Fatalf("unexpected report %q", got)
	}
}

func TestFailedReport(t *testing.T) {
	out := result.FailedAt(result.StageCompilation, "invalid magic number")
	if got := out.Report(); got != "compilation failed: invalid magic number" {
		t.Fatalf("unexpected report %q", got)
	}
}

func TestInvalidUTF8Replaced(t *testing.T) {
	out := result.Completed(profile.EntryStart, nil,
		result.Stream{Bytes: []byte{'o', 'k', 0xff, 0xfe}}, result.Stream{})
	got := out.Report()
	if !strings.HasPrefix(got, "ok") {
		t.Fatalf("unexpected report %q", got)
	}
	if strings.ContainsRune(got, 0xff) {
		t.Fatalf("raw invalid bytes leaked into %q", got)
	}
	if !strings.Contains(got, "�") {
		t.Fatalf("expected replacement character in %q", got)
	}
}

func TestErrorCodeMapping(t *testing.T) {
	cases := []struct {
		stage result.Stage
		code  appErr.ErrorCode
	}{
		{result.StageCompilation, appErr.CompilationFailed},
		{result.StageLinking, appErr.LinkingFailed},
		{result.StageEntryResolution, appErr.EntryPointNotFound},
		{result.StageCancellation, appErr.ExecutionCanceled},
	}
	for _, tc := range cases {
		out := result.FailedAt(tc.stage, "x")
		if got := out.ErrorCode(); got != tc.code {
			t.Fatalf("stage %q: expected code %d, got %d", tc.stage, tc.code, got)
		}
	}
	done := result.Completed(profile.EntryStart, nil, result.Stream{}, result.Stream{})
	if done.ErrorCode() != appErr.Success {
		t.Fatal("completed outcome must map to success")
	}
	trapped := result.Trapped("boom", result.Stream{}, result.Stream{})
	if trapped.ErrorCode() != appErr.Success {
		t.Fatal("trapped outcome must map to success at the transport level")
	}
}
