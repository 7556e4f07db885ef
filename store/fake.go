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

package store

import (
	"context"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
)

// member is one entry of an ordered set: a revision hash scored by block
// height.
type member struct {
	score uint64
	value []byte
}

// Fake is an in-memory Client used by the resolver/engine/hostbridge test
// suites, including the tests that add revisions mid-run to exercise
// snapshot isolation (spec §8 scenario 5). It satisfies the same Client interface a Redis
// deployment does, so tests never depend on a running Redis instance.
type Fake struct {
	mu    sync.Mutex
	kv    map[string][]byte
	zsets map[string][]member
}

// NewFake returns an empty in-memory store.
func NewFake() *Fake {
	return &Fake{kv: map[string][]byte{}, zsets: map[string][]member{}}
}

// PutKV sets an exact key's value, as if populated by the indexer.
func (f *Fake) PutKV(key string, value []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kv[key] = value
}

// AddRevision adds a scored member to the named ordered set.
func (f *Fake) AddRevision(setKey string, score uint64, value []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.zsets[setKey] = append(f.zsets[setKey], member{score: score, value: value})
}

// Get implements Client.
func (f *Fake) Get(_ context.Context, key []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.kv[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

// RevRangeLE implements Client.
func (f *Fake) RevRangeLE(_ context.Context, setKey []byte, maxScore uint64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	members := f.zsets[string(setKey)]
	var best *member
	for i := range members {
		m := &members[i]
		if m.score > maxScore {
			continue
		}
		if best == nil || m.score > best.score {
			best = m
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(best.value))
	copy(cp, best.value)
	return cp, nil
}

// Scan implements Client with a single-page scan: it always returns all
// matching keys and a "0" cursor, since the fake's keyspace is small enough
// for tests not to need paging. Real Redis SCAN walks the whole keyspace
// regardless of a key's value type, so this matches against both plain
// string keys (f.kv) and ordered-set keys (f.zsets) — the latter is the
// path resolver.ScanDataKeysAt actually exercises, since per-key storage
// revisions live in named zsets, not in f.kv.
func (f *Fake) Scan(_ context.Context, cursor string, pattern []byte, _ int64) (string, [][]byte, error) {
	if cursor != "" && cursor != "0" {
		return "0", nil, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys [][]byte
	for k := range f.kv {
		ok, err := filepath.Match(string(pattern), k)
		if err != nil {
			return "0", nil, err
		}
		if ok {
			keys = append(keys, []byte(k))
		}
	}
	for k := range f.zsets {
		if _, ok := f.kv[k]; ok {
			continue
		}
		ok, err := filepath.Match(string(pattern), k)
		if err != nil {
			return "0", nil, err
		}
		if ok {
			keys = append(keys, []byte(k))
		}
	}
	sort.Slice(keys, func(i, j int) bool { return string(keys[i]) < string(keys[j]) })
	return "0", keys, nil
}

// SetLatestHeight is a convenience used by tests to seed
// "latest_block_height" without remembering the exact key string.
func (f *Fake) SetLatestHeight(h uint64) {
	f.PutKV("latest_block_height", []byte(strconv.FormatUint(h, 10)))
}
