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
	"context"
	"sync"

	"github.com/core-coin/viewcore/common"
)

// Call is the request-scoped view of a Resolver, pinned to one block
// height H for the duration of one view call (spec §3 invariant: "a view
// call's entire state view is derived from one pinned H; reads never
// observe a mixture of heights"). Repeated lookups of the same composite
// key within one Call are served from a per-call cache so concurrent
// mutation of the underlying store during the call cannot be observed.
type Call struct {
	r   *Resolver
	ctx context.Context
	h   uint64

	mu        sync.Mutex
	dataRev   map[string]dataRevResult
}

type dataRevResult struct {
	rev   common.Hash
	found bool
}

// NewCall pins a Resolver to height h for the duration of one view call.
func (r *Resolver) NewCall(ctx context.Context, h uint64) *Call {
	return &Call{r: r, ctx: ctx, h: h, dataRev: map[string]dataRevResult{}}
}

// Height returns the height this Call is pinned to.
func (c *Call) Height() uint64 { return c.h }

// CodeRevision resolves contract C's code revision at the pinned height.
func (c *Call) CodeRevision(contract []byte) (common.Hash, error) {
	return c.r.CodeRevision(c.ctx, contract, c.h)
}

// CodeBlob fetches a code blob (always safe to share across calls: it is
// content-addressed and immutable, so it is not memoized per-call beyond
// what the Resolver's process-wide blob cache already provides).
func (c *Call) CodeBlob(contract []byte, rev common.Hash) ([]byte, error) {
	return c.r.CodeBlob(c.ctx, contract, rev)
}

// AccountRevision resolves contract C's account revision at the pinned
// height.
func (c *Call) AccountRevision(contract []byte) (common.Hash, error) {
	return c.r.AccountRevision(c.ctx, contract, c.h)
}

// AccountBlob fetches an account record blob.
func (c *Call) AccountBlob(contract []byte, rev common.Hash) ([]byte, error) {
	return c.r.AccountBlob(c.ctx, contract, rev)
}

// DataRevision resolves a storage entry's revision at the pinned height,
// memoized within this Call so repeated reads of the same key observe the
// same snapshot even if the store is concurrently mutated.
func (c *Call) DataRevision(composite []byte) (common.Hash, bool, error) {
	key := string(composite)

	c.mu.Lock()
	if cached, ok := c.dataRev[key]; ok {
		c.mu.Unlock()
		return cached.rev, cached.found, nil
	}
	c.mu.Unlock()

	rev, found, err := c.r.DataRevision(c.ctx, composite, c.h)
	if err != nil {
		return common.Hash{}, false, err
	}

	c.mu.Lock()
	c.dataRev[key] = dataRevResult{rev: rev, found: found}
	c.mu.Unlock()
	return rev, found, nil
}

// DataBlob fetches a storage entry's value.
func (c *Call) DataBlob(composite []byte, rev common.Hash) ([]byte, error) {
	return c.r.DataBlob(c.ctx, composite, rev)
}

// Read resolves a storage entry's value at the pinned height in one call,
// returning found=false (and a nil value) if no revision <= H exists.
func (c *Call) Read(contract, key []byte) (value []byte, found bool, err error) {
	composite := DataCompositeKey(contract, key)
	rev, found, err := c.DataRevision(composite)
	if err != nil || !found {
		return nil, found, err
	}
	v, err := c.DataBlob(composite, rev)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// ScanDataKeys delegates to the underlying Resolver, pinned to this Call's
// height.
func (c *Call) ScanDataKeys(contract, pattern []byte, cursor string, limit int) (string, []DataEntry, error) {
	return c.r.ScanDataKeysAt(c.ctx, contract, pattern, cursor, limit, c.h)
}
