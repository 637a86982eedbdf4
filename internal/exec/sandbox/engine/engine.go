// Package engine runs WebAssembly payloads in an isolated sandbox.
//
// One execution walks a fixed pipeline: compile and validate the payload
// bytes, link the capability imports, instantiate, resolve the entry
// point for the active profile, invoke it with captured stdio. Each step
// can stop the pipeline with a stage-tagged failure; a fault inside
// running guest code is a trap outcome, not a failure.
package engine

import (
	"context"
	"errors"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	"wasmexec/internal/exec/sandbox/capability"
	"wasmexec/internal/exec/sandbox/capture"
	"wasmexec/internal/exec/sandbox/result"
)

// Request describes one execution task. The payload is owned by this
// request alone and is not retained past compilation.
type Request struct {
	ExecutionID string
	Payload     []byte
	Args        []string
	Env         map[string]string
}

// Engine executes payloads under the process-wide limits. It is safe for
// concurrent use: per-execution state lives in a fresh runtime per call.
type Engine struct {
	cfg        Config
	runtimeCfg wazero.RuntimeConfig
	cache      wazero.CompilationCache
}

// NewEngine validates the limits and derives the runtime configuration
// applied to every sandbox.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Limits.Validate(); err != nil {
		return nil, err
	}

	runtimeCfg := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(cfg.Limits.MemoryLimitPages()).
		WithCloseOnContextDone(cfg.Interruptible)
	if !cfg.Limits.AllowMemoryRelocation {
		// Reserve full capacity up front so guest memory never moves.
		runtimeCfg = runtimeCfg.WithMemoryCapacityFromMax(true)
	}

	e := &Engine{cfg: cfg, runtimeCfg: runtimeCfg}
	if cfg.CompilationCache {
		e.cache = wazero.NewCompilationCache()
		e.runtimeCfg = e.runtimeCfg.WithCompilationCache(e.cache)
	}
	return e, nil
}

// Profile returns the ABI profile this engine serves.
func (e *Engine) Profile() string {
	return string(e.cfg.Profile)
}

// Execute runs one payload to a terminal outcome. It never returns an
// error: every way an execution can end maps to an outcome.
func (e *Engine) Execute(ctx context.Context, req Request) result.Outcome {
	if len(req.Payload) == 0 {
		return result.FailedAt(result.StageCompilation, "payload is empty")
	}

	runtime := wazero.NewRuntimeWithConfig(ctx, e.runtimeCfg)
	defer func() {
		_ = runtime.Close(context.Background())
	}()

	compiled, err := runtime.CompileModule(ctx, req.Payload)
	if err != nil {
		if ctx.Err() != nil {
			return canceled(ctx)
		}
		return result.FailedAt(result.StageCompilation, err.Error())
	}
	defer func() {
		_ = compiled.Close(context.Background())
	}()

	// Link the capability imports for the active profile. Both profiles
	// resolve against the preview1 surface; the payload may import no
	// capability outside it.
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		return result.FailedAt(result.StageLinking, err.Error())
	}

	caps := capability.NewSet(req.Args, req.Env, e.cfg.captureBytes())
	mod, err := runtime.InstantiateModule(ctx, compiled, caps.ModuleConfig(req.ExecutionID))
	if err != nil {
		if ctx.Err() != nil {
			return canceled(ctx)
		}
		return result.FailedAt(result.StageLinking, err.Error())
	}
	defer func() {
		_ = mod.Close(context.Background())
	}()

	entry, kind, resolveErr := resolveEntry(mod, e.cfg.Profile)
	if resolveErr != nil {
		return result.FailedAt(result.StageEntryResolution, resolveErr.Error())
	}

	results, err := entry.Call(ctx)
	stdout := snapshot(caps.Stdout)
	stderr := snapshot(caps.Stderr)

	if err != nil {
		var exitErr *sys.ExitError
		if errors.As(err, &exitErr) {
			switch code := exitErr.ExitCode(); code {
			case sys.ExitCodeContextCanceled:
				return canceled(ctx)
			case sys.ExitCodeDeadlineExceeded:
				return result.FailedAt(result.StageCancellation, "execution deadline exceeded")
			default:
				// Explicit guest exit is a program outcome, nonzero or
				// not; the code lands in the report.
				return result.Completed(kind, &code, stdout, stderr)
			}
		}
		if ctx.Err() != nil {
			return canceled(ctx)
		}
		return result.Trapped(err.Error(), stdout, stderr)
	}

	var exitCode *uint32
	if kind.ReturnsStatus() && len(results) > 0 {
		code := uint32(results[0])
		exitCode = &code
	}
	return result.Completed(kind, exitCode, stdout, stderr)
}

func canceled(ctx context.Context) result.Outcome {
	msg := "execution canceled"
	if err := ctx.Err(); err != nil {
		msg = "execution canceled: " + err.Error()
	}
	return result.FailedAt(result.StageCancellation, msg)
}

func snapshot(b *capture.Buffer) result.Stream {
	data, truncated := b.Snapshot()
	return result.Stream{Bytes: data, Truncated: truncated}
}
