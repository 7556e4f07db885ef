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

package resolver

import (
	"bytes"

	"github.com/core-coin/viewcore/params"
)

// Keyspace construction, bit-exact per spec §6: literal colon (0x3A)
// separators, no length-prefixing. Contract identifiers and contract-chosen
// keys are treated as raw bytes throughout, since the spec allows
// non-UTF-8 storage keys.

func join(parts ...[]byte) []byte {
	return bytes.Join(parts, []byte{params.KeySeparator})
}

// codeSetKey returns the ordered-set key whose members are code revision
// hashes for contract C.
func codeSetKey(c []byte) []byte {
	return join([]byte("code"), c)
}

// codeBlobKey returns the key holding the raw bytecode blob for (C, R).
func codeBlobKey(c, r []byte) []byte {
	return join([]byte("code"), c, r)
}

// accountSetKey returns the ordered-set key for contract C's account
// revisions.
func accountSetKey(c []byte) []byte {
	return join([]byte("account"), c)
}

// accountBlobKey returns the key holding the binary account record for
// (C, R).
func accountBlobKey(c, r []byte) []byte {
	return join([]byte("account-data"), c, r)
}

// DataCompositeKey returns the contract-scoped composite key used to
// identify one storage entry: the contract identifier concatenated with a
// separator and the contract-chosen key (spec §3).
func DataCompositeKey(c, key []byte) []byte {
	return join(c, key)
}

// dataSetKey returns the ordered-set key for a storage entry's revision
// history, given its composite key.
func dataSetKey(composite []byte) []byte {
	return join([]byte("data"), composite)
}

// dataBlobKey returns the key holding the raw value for (composite key, R).
func dataBlobKey(composite, r []byte) []byte {
	return join([]byte("data-value"), composite, r)
}

// dataScanPattern returns the glob pattern matching every storage-entry
// ordered-set key for contract C whose contract-chosen key starts with
// keyPrefix.
func dataScanPattern(c, keyPrefix []byte) []byte {
	return append(join([]byte("data"), c, keyPrefix), '*')
}

// splitDataSetKey strips the "data:" prefix and the "C:" contract prefix
// from a storage-entry ordered-set key, returning the contract-chosen
// storage key underneath. It returns ok=false if key is not well-formed.
func splitDataSetKey(c, key []byte) (storageKey []byte, ok bool) {
	prefix := join([]byte("data"), c)
	prefix = append(prefix, params.KeySeparator)
	if !bytes.HasPrefix(key, prefix) {
		return nil, false
	}
	return key[len(prefix):], true
}
