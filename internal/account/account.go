// Copyright 2015 The go-core Authors
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

// Package account implements the versioned store's account record binary
// layout (spec §6): a fixed 72-byte little-endian, unpadded encoding. It
// replaces the teacher's RLP-based slim account snapshot
// (core/state/snapshot/account.go) because the spec mandates bit-exact
// field placement rather than a self-describing encoding.
package account

import (
	"encoding/binary"
	"fmt"

	"github.com/core-coin/uint256"

	"github.com/core-coin/viewcore/common"
)

// Size is the exact encoded length of a Record: 16 + 16 + 32 + 8 bytes.
const Size = 16 + 16 + 32 + 8

// Record is the fixed-layout account record addressed by (contract
// identifier, revision hash) in the versioned store.
type Record struct {
	Amount       *uint256.Int // 128-bit unsigned, amount available to the account
	Locked       *uint256.Int // 128-bit unsigned, amount locked (e.g. staked)
	CodeHash     common.Hash  // hash of the account's deployed code blob
	StorageUsage uint64       // bytes of contract storage attributed to the account
}

// Encode serializes r into the exact 72-byte layout of spec §6:
// amount(16) || locked(16) || code_hash(32) || storage_usage(8), all
// little-endian, no padding.
func (r *Record) Encode() []byte {
	buf := make([]byte, Size)
	putUint128LE(buf[0:16], r.Amount)
	putUint128LE(buf[16:32], r.Locked)
	copy(buf[32:64], r.CodeHash[:])
	binary.LittleEndian.PutUint64(buf[64:72], r.StorageUsage)
	return buf
}

// Decode parses a 72-byte account record, returning an error if b is not
// exactly Size bytes.
func Decode(b []byte) (*Record, error) {
	if len(b) != Size {
		return nil, fmt.Errorf("account: record must be %d bytes, got %d", Size, len(b))
	}
	return &Record{
		Amount:       uint128FromLE(b[0:16]),
		Locked:       uint128FromLE(b[16:32]),
		CodeHash:     common.BytesToHash(b[32:64]),
		StorageUsage: binary.LittleEndian.Uint64(b[64:72]),
	}, nil
}

// putUint128LE writes v's low 128 bits into dst (16 bytes), little-endian.
// uint256.Int stores its value as four little-endian 64-bit words, so the
// low 128 bits are exactly the first two words.
func putUint128LE(dst []byte, v *uint256.Int) {
	if v == nil {
		return
	}
	binary.LittleEndian.PutUint64(dst[0:8], v[0])
	binary.LittleEndian.PutUint64(dst[8:16], v[1])
}

// uint128FromLE reconstructs a uint256.Int from a 16-byte little-endian
// buffer, leaving the upper 128 bits zero.
func uint128FromLE(src []byte) *uint256.Int {
	lo := binary.LittleEndian.Uint64(src[0:8])
	hi := binary.LittleEndian.Uint64(src[8:16])
	return &uint256.Int{lo, hi, 0, 0}
}
