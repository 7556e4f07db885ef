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

// Package config loads viewcore's process configuration from a TOML file,
// in the same naoina/toml convention the teacher's node configuration uses:
// a strict decoder that rejects unrecognized keys instead of silently
// ignoring a typo'd field name.
package config

import (
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/go-redis/redis/v8"
	"github.com/naoina/toml"

	"github.com/core-coin/viewcore/log"
	"github.com/core-coin/viewcore/params"
	"github.com/core-coin/viewcore/store"
)

// tomlSettings mirrors the teacher's own decoder configuration: an unknown
// field in the config file is a hard error rather than a silently-ignored
// typo.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("config: field %q is not defined in %s", field, rt.Name())
	},
}

// StoreConfig configures the Versioned Store Client's Redis connection.
type StoreConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// EngineConfig configures the worker pool and module cache sizes.
type EngineConfig struct {
	PoolSize        int
	ModuleCacheSize int
}

// LogConfig configures the root logger.
type LogConfig struct {
	Level string
}

// Config is viewcore's complete process configuration.
type Config struct {
	Store  StoreConfig
	Engine EngineConfig
	Log    LogConfig
}

// Defaults returns a Config populated with the same defaults params uses
// when a size or duration is left unconfigured.
func Defaults() Config {
	return Config{
		Store: StoreConfig{
			RedisAddr: "127.0.0.1:6379",
		},
		Engine: EngineConfig{
			PoolSize:        params.DefaultPoolSize,
			ModuleCacheSize: params.DefaultModuleCacheSize,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads and decodes a TOML config file at path, starting from
// Defaults so an omitted section keeps its default value.
func Load(path string) (Config, error) {
	cfg := Defaults()
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	if err := decode(f, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	return tomlSettings.NewDecoder(r).Decode(cfg)
}

// NewStoreClient builds the Versioned Store Client described by c.
func (c Config) NewStoreClient() store.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     c.Store.RedisAddr,
		Password: c.Store.RedisPassword,
		DB:       c.Store.RedisDB,
	})
	return store.NewRedisClient(rdb)
}

// Logger builds the root logger at the configured level.
func (c Config) Logger() log.Logger {
	lvl, err := log.LvlFromString(c.Log.Level)
	if err != nil {
		lvl = log.LvlInfo
	}
	l := log.New()
	l.SetHandler(log.LvlFilterHandler(lvl, log.StreamHandler(os.Stderr, log.TerminalFormat(true))))
	return l
}
