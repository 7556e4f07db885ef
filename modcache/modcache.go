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

// Package modcache maps a (contract identifier, code revision hash) to a
// compiled, reusable bytecode module (spec §4.3). Lookup is cheap on a hit;
// concurrent misses for the same key compile exactly once; misses for
// different keys proceed independently. Entries are never invalidated —
// recompiling from the code blob is always safe, so eviction is purely a
// memory-bounding implementation choice.
package modcache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/core-coin/viewcore/common"
	"github.com/core-coin/viewcore/params"
)

// Key identifies one cached module.
type Key struct {
	Contract string
	Revision common.Hash
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%s", k.Contract, k.Revision)
}

// Compiler is a thunk that compiles a code blob into a reusable module
// handle, matching the spec's own get_or_compile(C, R, || compile(...))
// shape: the blob is already bound in the closure, not passed as an
// argument, since its only purpose is to let the cache avoid fetching it on
// a hit. Callers implement this against their WebAssembly runtime; modcache
// itself is runtime agnostic.
type Compiler func(ctx context.Context) (Module, error)

// Module is a validated, cacheable module handle. It must be safe to share
// immutably across concurrently running workers (spec §4.3: "A compiled
// module in the cache is pure function of its code blob; cache lookups by
// (C, R) are safe across concurrent calls"). Bytes returns the underlying
// WebAssembly binary: because each worker owns a dedicated wazero.Runtime
// (spec §4.4) for isolation, a wazero.CompiledModule (which is scoped to
// the runtime that produced it) cannot itself be the cached value — workers
// recompile Bytes() against their own runtime, which is cheap because all
// worker runtimes share one wazero.CompilationCache (see workerpool).
// GetOrCompile's singleflight/LRU layer still bounds the one genuinely
// expensive step: fetching and validating the blob.
type Module interface {
	Bytes() []byte
	Close(ctx context.Context) error
}

// BlobModule is the concrete Module used throughout this engine: a
// validated WebAssembly binary with no runtime-owned resources to release.
type BlobModule struct{ code []byte }

// NewBlobModule wraps a validated WebAssembly binary for caching.
func NewBlobModule(code []byte) *BlobModule { return &BlobModule{code: code} }

func (m *BlobModule) Bytes() []byte                  { return m.code }
func (m *BlobModule) Close(ctx context.Context) error { return nil }

// Cache is the module cache described in spec §4.3.
type Cache struct {
	lru   *lru.Cache[Key, Module]
	group singleflight.Group
}

// New returns a Cache bounded to size entries.
func New(size int) *Cache {
	if size <= 0 {
		size = params.DefaultModuleCacheSize
	}
	l, err := lru.NewWithEvict[Key, Module](size, func(_ Key, m Module) {
		// Best-effort: a module evicted while still referenced by an
		// in-flight worker remains valid until that worker releases it;
		// wazero module instances hold their own reference to the
		// compiled module, so eviction here only drops this cache's
		// handle, never a running invocation's.
		_ = m.Close(context.Background())
	})
	if err != nil {
		// Only possible if size <= 0, which is guarded above.
		panic(err)
	}
	return &Cache{lru: l}
}

// GetOrCompile returns the cached module for key, compiling it via compile
// on a miss. Concurrent GetOrCompile calls for the same key observe at most
// one invocation of compile (spec §4.3, §8 "cache idempotence"); concurrent
// calls for different keys proceed independently.
func (c *Cache) GetOrCompile(ctx context.Context, key Key, compile Compiler) (Module, error) {
	if m, ok := c.lru.Get(key); ok {
		return m, nil
	}

	v, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		// Re-check under the singleflight key: another goroutine may have
		// populated the cache between our Get above and this Do call.
		if m, ok := c.lru.Get(key); ok {
			return m, nil
		}
		m, err := compile(ctx)
		if err != nil {
			return nil, err
		}
		c.lru.Add(key, m)
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Module), nil
}

// Len reports the number of modules currently cached.
func (c *Cache) Len() int { return c.lru.Len() }
