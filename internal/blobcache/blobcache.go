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

// Package blobcache is a process-wide, content-addressed byte cache for
// immutable versioned-store payloads (code blobs, account records, data
// values). A blob is a pure function of the store key that produced it
// (resource family + revision hash), so unlike the latest-height hint it
// never needs to expire.
package blobcache

import (
	"github.com/VictoriaMetrics/fastcache"
)

// Cache is a fixed-capacity byte cache keyed on the exact versioned-store
// key that produced the cached value.
type Cache struct {
	fc *fastcache.Cache
}

// New returns a Cache bounded to approximately maxBytes of memory.
func New(maxBytes int) *Cache {
	return &Cache{fc: fastcache.New(maxBytes)}
}

// Get returns the cached value for key, if present.
func (c *Cache) Get(key []byte) ([]byte, bool) {
	v, found := c.fc.HasGet(nil, key)
	return v, found
}

// Set stores value under key. Values are assumed immutable: callers must
// never Set a different value under a key already populated.
func (c *Cache) Set(key, value []byte) {
	c.fc.Set(key, value)
}

// Reset discards all cached entries.
func (c *Cache) Reset() {
	c.fc.Reset()
}
