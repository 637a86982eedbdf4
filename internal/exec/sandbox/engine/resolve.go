package engine

import (
	"strings"

	"github.com/tetratelabs/wazero/api"

	"wasmexec/internal/exec/sandbox/profile"
	appErr "wasmexec/pkg/errors"
)

// resolveEntry locates the callable entry of an instantiated payload
// under the active profile's conventions. Candidates are probed in
// priority order as a pure export lookup; the first whose name and
// signature both match is selected and the search stops.
func resolveEntry(mod api.Module, kind profile.Kind) (api.Function, profile.EntryKind, error) {
	candidates := kind.EntryCandidates()
	for _, cand := range candidates {
		fn := mod.ExportedFunction(cand.Export)
		if fn == nil {
			continue
		}
		def := fn.Definition()
		if !typesEqual(def.ParamTypes(), cand.Params) {
			continue
		}
		if !typesEqual(def.ResultTypes(), cand.Results) {
			continue
		}
		return fn, cand.Entry, nil
	}

	names := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		names = append(names, cand.Export)
	}
	return nil, "", appErr.Newf(appErr.EntryPointNotFound,
		"no callable entry point: expected an export named %s with the matching signature", strings.Join(names, " or "))
}

func typesEqual(got, want []api.ValueType) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
