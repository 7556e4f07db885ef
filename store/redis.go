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
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisClient implements Client against a Redis-compatible ordered
// key-value service. Redis's primitives are an exact semantic match for
// spec §4.1: GET for exact fetch, ZREVRANGEBYSCORE ... LIMIT 0 1 for
// "largest-scored member with score <= H", and SCAN for cursor iteration.
type RedisClient struct {
	rdb *redis.Client
}

// NewRedisClient wraps an already-configured go-redis client.
func NewRedisClient(rdb *redis.Client) *RedisClient {
	return &RedisClient{rdb: rdb}
}

// Get implements Client.
func (c *RedisClient) Get(ctx context.Context, key []byte) ([]byte, error) {
	v, err := c.rdb.Get(ctx, string(key)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &ErrTransient{Op: "GET", Err: err}
	}
	return v, nil
}

// RevRangeLE implements Client using ZREVRANGEBYSCORE with an inclusive
// upper score bound and a limit of one.
func (c *RedisClient) RevRangeLE(ctx context.Context, setKey []byte, maxScore uint64) ([]byte, error) {
	res, err := c.rdb.ZRevRangeByScore(ctx, string(setKey), &redis.ZRangeBy{
		Min:    "-inf",
		Max:    fmt.Sprintf("%d", maxScore),
		Offset: 0,
		Count:  1,
	}).Result()
	if err != nil {
		return nil, &ErrTransient{Op: "ZREVRANGEBYSCORE", Err: err}
	}
	if len(res) == 0 {
		return nil, ErrNotFound
	}
	return []byte(res[0]), nil
}

// Scan implements Client using the cursor-based SCAN command.
func (c *RedisClient) Scan(ctx context.Context, cursor string, pattern []byte, countHint int64) (string, [][]byte, error) {
	cur, err := parseCursor(cursor)
	if err != nil {
		return "0", nil, err
	}
	keys, next, err := c.rdb.Scan(ctx, cur, string(pattern), countHint).Result()
	if err != nil {
		return "0", nil, &ErrTransient{Op: "SCAN", Err: err}
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = []byte(k)
	}
	return fmt.Sprintf("%d", next), out, nil
}

func parseCursor(cursor string) (uint64, error) {
	if cursor == "" || cursor == "0" {
		return 0, nil
	}
	var cur uint64
	if _, err := fmt.Sscanf(cursor, "%d", &cur); err != nil {
		return 0, fmt.Errorf("store: invalid cursor %q: %w", cursor, err)
	}
	return cur, nil
}
