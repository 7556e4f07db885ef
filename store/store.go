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

// Package store is a thin contract over the external ordered key-value
// service the indexer populates (spec §4.1): exact-key fetch, reverse
// ordered-set range scan, and cursor-based key scan. It interprets nothing;
// callers (the resolver) own all domain meaning.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get and RevRangeLE when the requested key or
// ordered-set member does not exist. It is not itself a spec error kind —
// callers translate it into accountNotFound/codeNotFound as appropriate.
var ErrNotFound = errors.New("store: not found")

// ErrTransient wraps an underlying transport failure that is safe to
// retry (spec §7, kind "transient").
type ErrTransient struct {
	Op  string
	Err error
}

func (e *ErrTransient) Error() string { return "store: transient failure during " + e.Op + ": " + e.Err.Error() }
func (e *ErrTransient) Unwrap() error { return e.Err }

// Client is the Versioned Store Client's interface: the three primitives
// spec §4.1 requires. Implementations return raw bytes; no interpretation
// of key or value structure happens at this layer.
type Client interface {
	// Get performs an exact-key fetch. It returns ErrNotFound if the key
	// does not exist.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// RevRangeLE returns the member of the ordered set setKey with the
	// greatest score not exceeding maxScore. It returns ErrNotFound if no
	// such member exists.
	RevRangeLE(ctx context.Context, setKey []byte, maxScore uint64) ([]byte, error)

	// Scan performs a cooperative cursor-based scan over keys matching
	// pattern. cursor == "0" starts a new scan; the returned nextCursor is
	// "0" when the scan is complete. countHint is advisory.
	Scan(ctx context.Context, cursor string, pattern []byte, countHint int64) (nextCursor string, keys [][]byte, err error)
}
