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

// Package hostbridge implements the guest-facing register-machine host ABI
// (spec §4.5) as a wazero host module named "env". A Bridge is constructed
// once per worker and Reset before every job: all of its state — registers,
// return buffer, logs, open iterators — is a pure function of the pinned
// height, the contract identifier, the argument bytes, and the sequence of
// host calls the guest makes during one invocation.
package hostbridge

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf16"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/core-coin/viewcore/params"
	"github.com/core-coin/viewcore/resolver"
)

// NoSuchRegister is the register_len sentinel for an unset register.
const NoSuchRegister = uint64(math.MaxUint64)

// ErrNotImplemented marks a host import the view engine deliberately does
// not support — write paths, promises, cross-contract calls (spec §7). The
// coordinator treats it as a signal to fall back to an upstream proxy
// rather than a hard failure.
var ErrNotImplemented = errors.New("hostbridge: host import not implemented for view calls")

// PanicError is raised when the guest invokes panic or panic_utf8.
type PanicError struct{ Message string }

func (e *PanicError) Error() string {
	if e.Message == "" {
		return "hostbridge: guest panic"
	}
	return "hostbridge: guest panic: " + e.Message
}

// AbortError is raised when the guest invokes abort, formatted exactly as
// spec §4.5 mandates: "abort: <file>:<line>:<col> <msg>".
type AbortError struct {
	Message, File string
	Line, Col     uint32
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("abort: %s:%d:%d %s", e.File, e.Line, e.Col, e.Message)
}

// haltSignal is the panic value a Bridge raises to unwind a guest
// invocation immediately. It carries no data itself — the actual cause is
// recorded on the Bridge via Err() before the panic, since wazero's Go host
// functions cannot return a typed value through the call stack any other
// way once execution must stop mid-export-call.
type haltSignal struct{}

// IsHalt reports whether a recovered panic value was raised by a Bridge's
// own halt path, as opposed to an unrelated programming error that should
// keep propagating.
func IsHalt(r interface{}) bool {
	_, ok := r.(haltSignal)
	return ok
}

type iterState struct {
	entries []resolver.DataEntry
	pos     int
}

// Bridge is one worker's host-function state for one job.
type Bridge struct {
	call     *resolver.Call
	contract []byte
	args     []byte

	registers map[uint64][]byte
	iterators map[uint64]*iterState
	nextIter  uint64

	returnValue []byte
	logs        []string
	err         error
}

// New returns an unconfigured Bridge; call Reset before first use.
func New() *Bridge {
	b := &Bridge{}
	b.Reset(nil, nil, nil)
	return b
}

// Reset rebinds the Bridge to a new job, discarding all prior state. This
// is the "per-call state is reset before the worker rejoins the idle set"
// step of spec §4.4's release contract.
func (b *Bridge) Reset(call *resolver.Call, contract, args []byte) {
	b.call = call
	b.contract = contract
	b.args = args
	b.registers = make(map[uint64][]byte)
	b.iterators = make(map[uint64]*iterState)
	b.nextIter = 0
	b.returnValue = nil
	b.logs = nil
	b.err = nil
}

// ReturnValue is the guest's value_return buffer, if any.
func (b *Bridge) ReturnValue() []byte { return b.returnValue }

// Logs are the guest's accumulated log_utf8/log_utf16 entries, in order.
func (b *Bridge) Logs() []string { return b.logs }

// Err is the cause recorded by whichever halt* call stopped the guest, or
// nil if the invocation has not (yet) halted.
func (b *Bridge) Err() error { return b.err }

// Build instantiates the "env" host module against rt, binding every import
// of spec §4.5's table. The returned api.Module must outlive the guest
// invocation it serves; Instantiate the guest module in the same
// wazero.Runtime so the import resolves.
func (b *Bridge) Build(ctx context.Context, rt wazero.Runtime) (api.Module, error) {
	return rt.NewHostModuleBuilder("env").
		NewFunctionBuilder().WithFunc(b.input).Export("input").
		NewFunctionBuilder().WithFunc(b.registerLen).Export("register_len").
		NewFunctionBuilder().WithFunc(b.readRegister).Export("read_register").
		NewFunctionBuilder().WithFunc(b.valueReturn).Export("value_return").
		NewFunctionBuilder().WithFunc(b.logUTF8).Export("log_utf8").
		NewFunctionBuilder().WithFunc(b.logUTF16).Export("log_utf16").
		NewFunctionBuilder().WithFunc(b.panicFn).Export("panic").
		NewFunctionBuilder().WithFunc(b.panicUTF8).Export("panic_utf8").
		NewFunctionBuilder().WithFunc(b.abortFn).Export("abort").
		NewFunctionBuilder().WithFunc(b.currentAccountID).Export("current_account_id").
		NewFunctionBuilder().WithFunc(b.emptyAccountID).Export("predecessor_account_id").
		NewFunctionBuilder().WithFunc(b.emptyAccountID).Export("signer_account_id").
		NewFunctionBuilder().WithFunc(b.blockIndex).Export("block_index").
		NewFunctionBuilder().WithFunc(b.blockTimestamp).Export("block_timestamp").
		NewFunctionBuilder().WithFunc(b.storageRead).Export("storage_read").
		NewFunctionBuilder().WithFunc(b.storageHasKey).Export("storage_has_key").
		NewFunctionBuilder().WithFunc(b.storageIterPrefix).Export("storage_iter_prefix").
		NewFunctionBuilder().WithFunc(b.storageIterRange).Export("storage_iter_range").
		NewFunctionBuilder().WithFunc(b.storageIterNext).Export("storage_iter_next").
		NewFunctionBuilder().WithFunc(b.storageWrite).Export("storage_write").
		NewFunctionBuilder().WithFunc(b.storageRemove).Export("storage_remove").
		Instantiate(ctx)
}

func (b *Bridge) haltPanic(msg string) {
	b.err = &PanicError{Message: msg}
	panic(haltSignal{})
}

func (b *Bridge) haltAbort(msg, file string, line, col uint32) {
	b.err = &AbortError{Message: msg, File: file, Line: line, Col: col}
	panic(haltSignal{})
}

func (b *Bridge) haltNotImplemented(name string) {
	b.err = fmt.Errorf("%s: %w", name, ErrNotImplemented)
	panic(haltSignal{})
}

func (b *Bridge) haltIO(err error) {
	b.err = err
	panic(haltSignal{})
}

// --- register / return-value / logging imports ---

func (b *Bridge) input(ctx context.Context, mod api.Module, registerID uint64) {
	b.registers[registerID] = append([]byte(nil), b.args...)
}

func (b *Bridge) registerLen(ctx context.Context, mod api.Module, registerID uint64) uint64 {
	v, ok := b.registers[registerID]
	if !ok {
		return NoSuchRegister
	}
	return uint64(len(v))
}

func (b *Bridge) readRegister(ctx context.Context, mod api.Module, registerID uint64, ptr uint32) {
	v, ok := b.registers[registerID]
	if !ok {
		return
	}
	if !mod.Memory().Write(ptr, v) {
		b.haltIO(fmt.Errorf("hostbridge: read_register: guest memory write out of bounds"))
	}
}

func (b *Bridge) valueReturn(ctx context.Context, mod api.Module, length, ptr uint32) {
	v, ok := mod.Memory().Read(ptr, length)
	if !ok {
		b.haltIO(fmt.Errorf("hostbridge: value_return: guest memory read out of bounds"))
	}
	b.returnValue = append([]byte(nil), v...)
}

func (b *Bridge) logUTF8(ctx context.Context, mod api.Module, length, ptr uint32) {
	v, ok := mod.Memory().Read(ptr, length)
	if !ok {
		b.haltIO(fmt.Errorf("hostbridge: log_utf8: guest memory read out of bounds"))
	}
	b.logs = append(b.logs, string(v))
}

func (b *Bridge) logUTF16(ctx context.Context, mod api.Module, length, ptr uint32) {
	v, ok := mod.Memory().Read(ptr, length)
	if !ok {
		b.haltIO(fmt.Errorf("hostbridge: log_utf16: guest memory read out of bounds"))
	}
	b.logs = append(b.logs, decodeUTF16(v))
}

// --- control-flow imports ---

func (b *Bridge) panicFn(ctx context.Context, mod api.Module) {
	b.haltPanic("")
}

func (b *Bridge) panicUTF8(ctx context.Context, mod api.Module, length, ptr uint32) {
	v, ok := mod.Memory().Read(ptr, length)
	if !ok {
		b.haltIO(fmt.Errorf("hostbridge: panic_utf8: guest memory read out of bounds"))
	}
	b.haltPanic(string(v))
}

func (b *Bridge) abortFn(ctx context.Context, mod api.Module, msgPtr, filenamePtr, line, col uint32) {
	msg, msgOK := readUTF16CString(mod.Memory(), msgPtr)
	file, fileOK := readUTF16CString(mod.Memory(), filenamePtr)
	if !msgOK || !fileOK {
		b.haltIO(fmt.Errorf("hostbridge: abort: guest memory read out of bounds"))
	}
	b.haltAbort(msg, file, line, col)
}

// --- identity / block context imports ---

func (b *Bridge) currentAccountID(ctx context.Context, mod api.Module, registerID uint64) {
	b.registers[registerID] = append([]byte(nil), b.contract...)
}

func (b *Bridge) emptyAccountID(ctx context.Context, mod api.Module, registerID uint64) {
	b.registers[registerID] = []byte{}
}

func (b *Bridge) blockIndex(ctx context.Context, mod api.Module) uint64 {
	return b.call.Height()
}

func (b *Bridge) blockTimestamp(ctx context.Context, mod api.Module) uint64 {
	// The versioned store indexes by height only; no wall-clock timestamp
	// is associated with H, so this import is unsupported for view calls
	// (spec §4.5: "otherwise fail notImplemented").
	b.haltNotImplemented("block_timestamp")
	return 0
}

// --- storage imports ---

func (b *Bridge) storageRead(ctx context.Context, mod api.Module, keyLen, keyPtr uint32, registerID uint64) uint64 {
	key, ok := mod.Memory().Read(keyPtr, keyLen)
	if !ok {
		b.haltIO(fmt.Errorf("hostbridge: storage_read: guest memory read out of bounds"))
	}
	v, found, err := b.call.Read(b.contract, key)
	if err != nil {
		b.haltIO(err)
	}
	if !found {
		return 0
	}
	b.registers[registerID] = v
	return 1
}

func (b *Bridge) storageHasKey(ctx context.Context, mod api.Module, keyLen, keyPtr uint32) uint64 {
	key, ok := mod.Memory().Read(keyPtr, keyLen)
	if !ok {
		b.haltIO(fmt.Errorf("hostbridge: storage_has_key: guest memory read out of bounds"))
	}
	_, found, err := b.call.Read(b.contract, key)
	if err != nil {
		b.haltIO(err)
	}
	if found {
		return 1
	}
	return 0
}

func (b *Bridge) storageIterPrefix(ctx context.Context, mod api.Module, prefixLen, prefixPtr uint32) uint64 {
	prefix, ok := mod.Memory().Read(prefixPtr, prefixLen)
	if !ok {
		b.haltIO(fmt.Errorf("hostbridge: storage_iter_prefix: guest memory read out of bounds"))
	}
	return b.openIterator(prefix)
}

func (b *Bridge) storageIterRange(ctx context.Context, mod api.Module, startLen, startPtr, endLen, endPtr uint32) uint64 {
	start, ok := mod.Memory().Read(startPtr, startLen)
	if !ok {
		b.haltIO(fmt.Errorf("hostbridge: storage_iter_range: guest memory read out of bounds"))
	}
	if _, ok := mod.Memory().Read(endPtr, endLen); !ok {
		b.haltIO(fmt.Errorf("hostbridge: storage_iter_range: guest memory read out of bounds"))
	}
	// The resolver's Scan primitive is pattern-based, not lexicographic
	// (spec §4.1); a true upper-bounded range is approximated here as a
	// prefix scan from the start key, which is exact whenever start and end
	// share a common prefix (the common case for contract key ranges).
	return b.openIterator(start)
}

// openIterator eagerly drains every SCAN page into one entry slice: a
// single page is only a cursor-protocol artifact, not a complete result,
// so treating the first page as exhaustive would silently truncate any
// contract with more matching keys than one scan batch.
func (b *Bridge) openIterator(pattern []byte) uint64 {
	var entries []resolver.DataEntry
	cursor := "0"
	for {
		next, page, err := b.call.ScanDataKeys(b.contract, pattern, cursor, params.DefaultScanCount)
		if err != nil {
			b.haltIO(err)
		}
		entries = append(entries, page...)
		if next == "0" {
			break
		}
		cursor = next
	}
	id := b.nextIter
	b.nextIter++
	b.iterators[id] = &iterState{entries: entries}
	return id
}

func (b *Bridge) storageIterNext(ctx context.Context, mod api.Module, iterID, keyRegister, valueRegister uint64) uint64 {
	it, ok := b.iterators[iterID]
	if !ok {
		return 0
	}
	for it.pos < len(it.entries) {
		e := it.entries[it.pos]
		it.pos++
		if e.Value == nil {
			continue
		}
		b.registers[keyRegister] = e.Key
		b.registers[valueRegister] = e.Value
		return 1
	}
	return 0
}

func (b *Bridge) storageWrite(ctx context.Context, mod api.Module, keyLen, keyPtr, valueLen, valuePtr uint32) uint64 {
	b.haltNotImplemented("storage_write")
	return 0
}

func (b *Bridge) storageRemove(ctx context.Context, mod api.Module, keyLen, keyPtr uint32) uint64 {
	b.haltNotImplemented("storage_remove")
	return 0
}

func decodeUTF16(b []byte) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return string(utf16.Decode(units))
}

func readUTF16CString(mem api.Memory, ptr uint32) (string, bool) {
	var units []uint16
	for off := ptr; ; off += 2 {
		raw, ok := mem.Read(off, 2)
		if !ok {
			return "", false
		}
		u := binary.LittleEndian.Uint16(raw)
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units)), true
}
