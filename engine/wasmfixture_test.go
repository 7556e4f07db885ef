// Copyright 2024 by the Authors
// This file is part of the viewcore library.
//
// The viewcore library is free software: you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// The viewcore library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the viewcore library. If not, see <http://www.gnu.org/licenses/>.

package engine

// A tiny WebAssembly module assembler for end-to-end test fixtures. There
// is no guest toolchain available in this environment, so the scenario
// modules in engine_test.go are built directly from opcodes rather than
// compiled from source; this file only emits well-formed binaries, never
// hand-counted byte literals, so adding a scenario means describing its
// imports and body, not re-deriving section sizes by hand.

const (
	valI32 = 0x7f
	valI64 = 0x7e
)

// wasmImport is one "env" host import a fixture module calls.
type wasmImport struct {
	name           string
	params, result []byte // result has length 0 or 1
}

func uleb(n uint32) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if n == 0 {
			break
		}
	}
	return out
}

func section(id byte, payload []byte) []byte {
	out := []byte{id}
	out = append(out, uleb(uint32(len(payload)))...)
	return append(out, payload...)
}

func name(s string) []byte {
	return append(uleb(uint32(len(s))), []byte(s)...)
}

// assembleModule builds a single-function WebAssembly module that imports
// imports (each bound to "env", in order) and exports a zero-argument,
// zero-result function named export with the given body bytecode (already
// including the trailing 0x0b end opcode). data, if non-empty, is written
// to linear memory starting at offset 0.
func assembleModule(imports []wasmImport, export string, body []byte, data []byte) []byte {
	var types []byte
	for _, imp := range imports {
		types = append(types, 0x60)
		types = append(types, uleb(uint32(len(imp.params)))...)
		types = append(types, imp.params...)
		types = append(types, uleb(uint32(len(imp.result)))...)
		types = append(types, imp.result...)
	}
	// The local, exported entry point is always ()->().
	types = append(types, 0x60, 0x00, 0x00)
	localType := uint32(len(imports))
	typeSec := section(0x01, append(uleb(uint32(len(imports)+1)), types...))

	var importPayload []byte
	importPayload = append(importPayload, uleb(uint32(len(imports)))...)
	for i, imp := range imports {
		importPayload = append(importPayload, name("env")...)
		importPayload = append(importPayload, name(imp.name)...)
		importPayload = append(importPayload, 0x00) // func kind
		importPayload = append(importPayload, uleb(uint32(i))...)
	}
	importSec := section(0x02, importPayload)

	funcSec := section(0x03, append(uleb(1), uleb(localType)...))

	memSec := section(0x05, append(uleb(1), append([]byte{0x00}, uleb(1)...)...))

	exportPayload := uleb(2)
	exportPayload = append(exportPayload, name(export)...)
	exportPayload = append(exportPayload, 0x00) // func kind
	exportPayload = append(exportPayload, uleb(localType)...)
	exportPayload = append(exportPayload, name("memory")...)
	exportPayload = append(exportPayload, 0x02) // memory kind
	exportPayload = append(exportPayload, uleb(0)...)
	exportSec := section(0x07, exportPayload)

	funcBody := append(uleb(uint32(len(body)+1)), append([]byte{0x00}, body...)...)
	codeSec := section(0x0a, append(uleb(1), funcBody...))

	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	out = append(out, typeSec...)
	out = append(out, importSec...)
	out = append(out, funcSec...)
	out = append(out, memSec...)
	out = append(out, exportSec...)
	out = append(out, codeSec...)

	if len(data) > 0 {
		dataPayload := append([]byte{0x00}, 0x41, 0x00, 0x0b)
		dataPayload = append(dataPayload, uleb(uint32(len(data)))...)
		dataPayload = append(dataPayload, data...)
		dataSec := section(0x0b, append(uleb(1), dataPayload...))
		out = append(out, dataSec...)
	}
	return out
}

// i32const emits i32.const n for 0 <= n < 64.
func i32const(n byte) []byte { return []byte{0x41, n} }

// i64const emits i64.const n for 0 <= n < 64.
func i64const(n byte) []byte { return []byte{0x42, n} }

func call(idx byte) []byte { return []byte{0x10, idx} }

var (
	drop     = []byte{0x1a}
	wrapI64  = []byte{0xa7}
	end      = []byte{0x0b}
)

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// helloModule exports "hello", which calls value_return with the bytes
// "ok" (spec §8 scenario 1, also reused for scenario 2's missing-method
// call against the same module).
func helloModule() []byte {
	imports := []wasmImport{{name: "value_return", params: []byte{valI32, valI32}}}
	body := concat(i32const(2), i32const(0), call(0), end)
	return assembleModule(imports, "hello", body, []byte("ok"))
}

// boomModule exports "boom", which calls panic_utf8 with "kaboom" (spec §8
// scenario 3).
func boomModule() []byte {
	imports := []wasmImport{{name: "panic_utf8", params: []byte{valI32, valI32}}}
	body := concat(i32const(6), i32const(0), call(0), end)
	return assembleModule(imports, "boom", body, []byte("kaboom"))
}

// getModule exports "get", which reads storage key "k" (placed at memory
// offset 0 by the data segment) via storage_read, copies the resulting
// register into scratch memory at offset 16 via read_register, and returns
// it via value_return (spec §8 scenario 4, reused for scenario 5).
func getModule() []byte {
	imports := []wasmImport{
		{name: "storage_read", params: []byte{valI32, valI32, valI64}, result: []byte{valI64}},
		{name: "read_register", params: []byte{valI64, valI32}},
		{name: "register_len", params: []byte{valI64}, result: []byte{valI64}},
		{name: "value_return", params: []byte{valI32, valI32}},
	}
	body := concat(
		i32const(1), i32const(0), i64const(0), call(0), drop, // storage_read("k", reg 0)
		i64const(0), i32const(16), call(1), // read_register(0, ptr=16)
		i64const(0), call(2), wrapI64, // register_len(0) -> i32
		i32const(16), call(3), // value_return(len, ptr=16)
		end,
	)
	return assembleModule(imports, "get", body, []byte("k"))
}

// mutateModule exports "mutate", which calls storage_write (spec §8
// scenario 6: the engine must surface notImplemented, not a hard failure).
func mutateModule() []byte {
	imports := []wasmImport{
		{name: "storage_write", params: []byte{valI32, valI32, valI32, valI32}, result: []byte{valI64}},
	}
	body := concat(
		i32const(0), i32const(0), i32const(0), i32const(0), call(0), drop,
		end,
	)
	return assembleModule(imports, "mutate", body, nil)
}
