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

// Package params collects the named constants that size and bound the view
// engine, in place of magic numbers scattered through the component packages.
package params

import "time"

const (
	// DefaultPoolSize is the default worker pool capacity (spec §4.4).
	DefaultPoolSize = 10

	// DefaultModuleCacheSize bounds the number of compiled modules the
	// module cache retains before evicting the least recently used entry.
	// Eviction is an implementation choice, not an observable contract,
	// because recompiling a module from its code blob is always safe.
	DefaultModuleCacheSize = 256

	// DefaultBlobCacheBytes bounds the process-wide immutable blob cache.
	DefaultBlobCacheBytes = 64 << 20 // 64 MiB

	// LatestHeightTTL bounds the freshness of the memoized latest block
	// height. It is a bounded hint, not a contract (spec §9).
	LatestHeightTTL = 300 * time.Millisecond

	// MaxInvocationDuration bounds the wall-clock time of a single guest
	// invocation. Exceeding it aborts the call with ErrTimeout and destroys
	// the worker that ran it.
	MaxInvocationDuration = 5 * time.Second

	// MaxLinearMemoryPages bounds a guest module's linear memory, in
	// WebAssembly 64KiB pages. 256 pages is 16MiB.
	MaxLinearMemoryPages = 256

	// MaxRegisterBytes is a size limit for a single host-bridge register.
	// No host function checks it: register contents are bounded only by the
	// call's argument bytes, the stored values and the guest's linear memory.
	MaxRegisterBytes = 32 << 20 // 32 MiB

	// DefaultScanCount is the COUNT hint passed to the versioned store's
	// cursor scan when a caller does not specify one.
	DefaultScanCount = 100

	// StoreRetryAttempts bounds the local recovery retries for a transient
	// store failure within a single call (spec §7).
	StoreRetryAttempts = 3

	// StoreRetryBackoff is the base delay between store retry attempts.
	StoreRetryBackoff = 20 * time.Millisecond
)

// Keyspace separator, bit-exact per spec §6. Key construction itself lives
// in resolver/keys.go, which owns the full prefix layout.
const (
	KeySeparator = ':'

	LatestBlockHeightKey = "latest_block_height"
)
