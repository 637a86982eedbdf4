// Package profile defines the deployment-time ABI profile and the entry
// point conventions each profile resolves.
package profile

import (
	"github.com/tetratelabs/wazero/api"

	appErr "wasmexec/pkg/errors"
)

// Kind selects the capability surface and entry convention a process
// serves. Exactly one profile is active per process.
type Kind string

const (
	// Module runs payloads built against the flat preview1 ABI with
	// named entry exports.
	Module Kind = "module"
	// Component runs command payloads in core-lowered form exposing the
	// standard run entry.
	Component Kind = "component"
)

// Component command entry, as lowered to a core export by component
// tooling. Returns 0 on success, nonzero on failure.
const componentRunExport = "wasi:cli/run@0.2.0#run"

// Parse validates a configured profile name.
func Parse(raw string) (Kind, error) {
	switch Kind(raw) {
	case Module:
		return Module, nil
	case Component:
		return Component, nil
	case "":
		return Module, nil
	default:
		return "", appErr.Newf(appErr.InvalidParams, "unknown execution profile: %q", raw)
	}
}

// EntryKind identifies which entry convention was selected for a payload.
type EntryKind string

const (
	// EntryStart is the argv-less start convention: "_start" () -> ().
	EntryStart EntryKind = "start"
	// EntryMain is the main convention: "main" () -> (i32 status).
	EntryMain EntryKind = "main"
	// EntryCommandRun is the component command entry: run () -> (i32).
	EntryCommandRun EntryKind = "command-run"
)

// ReturnsStatus reports whether the entry yields an integer status code.
func (e EntryKind) ReturnsStatus() bool {
	return e == EntryMain || e == EntryCommandRun
}

// EntryCandidate pairs an export name with the signature it must have to
// be selected.
type EntryCandidate struct {
	Export  string
	Params  []api.ValueType
	Results []api.ValueType
	Entry   EntryKind
}

// EntryCandidates returns the ordered entry conventions for the profile.
// Candidates are tried in order; the first export whose name and
// signature both match wins and the search stops.
func (k Kind) EntryCandidates() []EntryCandidate {
	switch k {
	case Component:
		return []EntryCandidate{
			{
				Export:  componentRunExport,
				Params:  nil,
				Results: []api.ValueType{api.ValueTypeI32},
				Entry:   EntryCommandRun,
			},
		}
	default:
		return []EntryCandidate{
			{
				Export:  "_start",
				Params:  nil,
				Results: nil,
				Entry:   EntryStart,
			},
			{
				Export:  "main",
				Params:  nil,
				Results: []api.ValueType{api.ValueTypeI32},
				Entry:   EntryMain,
			},
		}
	}
}
