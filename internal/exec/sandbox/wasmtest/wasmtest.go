// Package wasmtest builds tiny WebAssembly binaries used as test
// payloads. Section and item lengths are computed by the encoder, so
// fixtures stay valid as they change.
package wasmtest

const (
	secType   = 1
	secImport = 2
	secFunc   = 3
	secMemory = 5
	secExport = 7
	secCode   = 10
	secData   = 11

	valI32 = 0x7f

	kindFunc   = 0x00
	kindMemory = 0x02

	opUnreachable = 0x00
	opLoop        = 0x03
	opEnd         = 0x0b
	opBr          = 0x0c
	opCall        = 0x10
	opDrop        = 0x1a
	opI32Store    = 0x36
	opI32Const    = 0x41

	blockVoid = 0x40
)

const wasiModule = "wasi_snapshot_preview1"

// StartNop exports "_start" () -> () with an empty body.
func StartNop() []byte {
	return module(
		typeSection(funcType(nil, nil)),
		funcSection(0),
		exportSection(export("_start", kindFunc, 0)),
		codeSection(body(op(opEnd))),
	)
}

// MainReturning exports "main" () -> (i32) returning code.
func MainReturning(code int32) []byte {
	return module(
		typeSection(funcType(nil, []byte{valI32})),
		funcSection(0),
		exportSection(export("main", kindFunc, 0)),
		codeSection(body(instrs(i32Const(code), op(opEnd)))),
	)
}

// DualEntry exports both "_start" () -> () and "main" () -> (i32 42).
func DualEntry() []byte {
	return module(
		typeSection(funcType(nil, nil), funcType(nil, []byte{valI32})),
		funcSection(0, 1),
		exportSection(
			export("_start", kindFunc, 0),
			export("main", kindFunc, 1),
		),
		codeSection(
			body(op(opEnd)),
			body(instrs(i32Const(42), op(opEnd))),
		),
	)
}

// StartTrap exports "_start" whose body executes unreachable.
func StartTrap() []byte {
	return module(
		typeSection(funcType(nil, nil)),
		funcSection(0),
		exportSection(export("_start", kindFunc, 0)),
		codeSection(body(op(opUnreachable, opEnd))),
	)
}

// StartExit exports "_start" that calls proc_exit with code.
func StartExit(code int32) []byte {
	return module(
		typeSection(funcType([]byte{valI32}, nil), funcType(nil, nil)),
		importSection(importFunc(wasiModule, "proc_exit", 0)),
		funcSection(1),
		exportSection(export("_start", kindFunc, 1)),
		codeSection(body(instrs(i32Const(code), op(opCall, 0, opEnd)))),
	)
}

// StartLoop exports "_start" that spins forever.
func StartLoop() []byte {
	return module(
		typeSection(funcType(nil, nil)),
		funcSection(0),
		exportSection(export("_start", kindFunc, 0)),
		codeSection(body(op(opLoop, blockVoid, opBr, 0, opEnd, opEnd))),
	)
}

// StartPrint exports "_start" that writes s to stdout via fd_write.
func StartPrint(s string) []byte {
	return printModule(1, s, false)
}

// StartPrintStderr exports "_start" that writes s to stderr.
func StartPrintStderr(s string) []byte {
	return printModule(2, s, false)
}

// StartPrintThenTrap writes s to stdout and then executes unreachable.
func StartPrintThenTrap(s string) []byte {
	return printModule(1, s, true)
}

// ComponentRun exports the core-lowered command entry
// "wasi:cli/run@0.2.0#run" () -> (i32) returning code.
func ComponentRun(code int32) []byte {
	return module(
		typeSection(funcType(nil, []byte{valI32})),
		funcSection(0),
		exportSection(export("wasi:cli/run@0.2.0#run", kindFunc, 0)),
		codeSection(body(instrs(i32Const(code), op(opEnd)))),
	)
}

// printModule builds a single-page module with s as a data segment at
// offset 16 and an iovec at offset 0. fd_write's nwritten result goes
// to offset 8 and the errno is dropped.
func printModule(fd int32, s string, trapAfter bool) []byte {
	code := instrs(
		i32Const(0), i32Const(16), i32Store(),
		i32Const(4), i32Const(int32(len(s))), i32Store(),
		i32Const(fd), i32Const(0), i32Const(1), i32Const(8),
		op(opCall, 0, opDrop),
	)
	if trapAfter {
		code = append(code, opUnreachable)
	}
	code = append(code, opEnd)

	return module(
		typeSection(
			funcType([]byte{valI32, valI32, valI32, valI32}, []byte{valI32}),
			funcType(nil, nil),
		),
		importSection(importFunc(wasiModule, "fd_write", 0)),
		funcSection(1),
		memorySection(1),
		exportSection(
			export("memory", kindMemory, 0),
			export("_start", kindFunc, 1),
		),
		codeSection(body(code)),
		dataSection(dataSegment(16, []byte(s))),
	)
}

func module(sections ...[]byte) []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	for _, s := range sections {
		out = append(out, s...)
	}
	return out
}

func section(id byte, payload []byte) []byte {
	out := []byte{id}
	out = append(out, uleb(uint64(len(payload)))...)
	return append(out, payload...)
}

func vec(items ...[]byte) []byte {
	out := uleb(uint64(len(items)))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func typeSection(types ...[]byte) []byte {
	return section(secType, vec(types...))
}

func importSection(imports ...[]byte) []byte {
	return section(secImport, vec(imports...))
}

func funcSection(typeIndices ...uint64) []byte {
	items := make([][]byte, len(typeIndices))
	for i, idx := range typeIndices {
		items[i] = uleb(idx)
	}
	return section(secFunc, vec(items...))
}

func memorySection(minPages uint64) []byte {
	return section(secMemory, vec(append([]byte{0x00}, uleb(minPages)...)))
}

func exportSection(exports ...[]byte) []byte {
	return section(secExport, vec(exports...))
}

func codeSection(bodies ...[]byte) []byte {
	return section(secCode, vec(bodies...))
}

func dataSection(segments ...[]byte) []byte {
	return section(secData, vec(segments...))
}

func funcType(params, results []byte) []byte {
	out := []byte{0x60}
	out = append(out, uleb(uint64(len(params)))...)
	out = append(out, params...)
	out = append(out, uleb(uint64(len(results)))...)
	return append(out, results...)
}

func importFunc(mod, field string, typeIdx uint64) []byte {
	out := name(mod)
	out = append(out, name(field)...)
	out = append(out, kindFunc)
	return append(out, uleb(typeIdx)...)
}

func export(field string, kind byte, idx uint64) []byte {
	out := name(field)
	out = append(out, kind)
	return append(out, uleb(idx)...)
}

// body wraps instructions into a code entry with no locals.
func body(code []byte) []byte {
	payload := append([]byte{0x00}, code...)
	return append(uleb(uint64(len(payload))), payload...)
}

func op(bytes ...byte) []byte {
	return bytes
}

func instrs(chunks ...[]byte) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

func dataSegment(offset int32, data []byte) []byte {
	out := []byte{0x00}
	out = append(out, i32Const(offset)...)
	out = append(out, opEnd)
	out = append(out, uleb(uint64(len(data)))...)
	return append(out, data...)
}

func name(s string) []byte {
	return append(uleb(uint64(len(s))), s...)
}

func i32Const(v int32) []byte {
	return append([]byte{opI32Const}, sleb(int64(v))...)
}

func i32Store() []byte {
	// alignment 2, offset 0
	return []byte{opI32Store, 0x02, 0x00}
}

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
