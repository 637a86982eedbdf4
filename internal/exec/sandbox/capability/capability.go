// Package capability builds the per-request capability set exposed to
// sandboxed code: args, env, and captured stdio. Nothing else is wired;
// guests get no filesystem, no network, no host clock or randomness
// beyond the runtime defaults.
package capability

import (
	"sort"

	"github.com/tetratelabs/wazero"

	"wasmexec/internal/exec/sandbox/capture"
)

// Set is the capability surface for one execution. It is constructed
// fresh per request and never reused.
type Set struct {
	Args   []string
	Env    map[string]string
	Stdout *capture.Buffer
	Stderr *capture.Buffer
}

// NewSet wires fresh capture buffers of the given capacity.
func NewSet(args []string, env map[string]string, captureBytes int) Set {
	return Set{
		Args:   args,
		Env:    env,
		Stdout: capture.NewBuffer(captureBytes),
		Stderr: capture.NewBuffer(captureBytes),
	}
}

// ModuleConfig renders the set into a sandbox module configuration.
// Auto-start is disabled: entry selection and invocation belong to the
// supervisor, not instantiation.
func (s Set) ModuleConfig(name string) wazero.ModuleConfig {
	cfg := wazero.NewModuleConfig().
		WithName(name).
		WithStdout(s.Stdout).
		WithStderr(s.Stderr).
		WithStartFunctions()

	if len(s.Args) > 0 {
		cfg = cfg.WithArgs(s.Args...)
	}
	for _, k := range sortedKeys(s.Env) {
		cfg = cfg.WithEnv(k, s.Env[k])
	}
	return cfg
}

func sortedKeys(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
