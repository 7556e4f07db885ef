package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-coin/viewcore/log"
	"github.com/core-coin/viewcore/params"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "viewcore.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaultsForOmittedSections(t *testing.T) {
	path := writeTOML(t, `
[Store]
RedisAddr = "redis.internal:6379"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6379", cfg.Store.RedisAddr)

	// Engine and Log were omitted entirely, so they keep Defaults' values.
	def := Defaults()
	assert.Equal(t, def.Engine, cfg.Engine)
	assert.Equal(t, def.Log, cfg.Log)
}

func TestLoadRoundTripsAllFields(t *testing.T) {
	path := writeTOML(t, `
[Store]
RedisAddr = "127.0.0.1:7000"
RedisPassword = "s3cret"
RedisDB = 2

[Engine]
PoolSize = 4
ModuleCacheSize = 32

[Log]
Level = "warn"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	want := Config{
		Store:  StoreConfig{RedisAddr: "127.0.0.1:7000", RedisPassword: "s3cret", RedisDB: 2},
		Engine: EngineConfig{PoolSize: 4, ModuleCacheSize: 32},
		Log:    LogConfig{Level: "warn"},
	}
	assert.Equal(t, want, cfg)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeTOML(t, `
[Store]
RedisAddr = "127.0.0.1:6379"
Bogus = "nope"
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	assert.Error(t, err)
}

func TestLoggerRejectsUnknownLevelByFallingBackToInfo(t *testing.T) {
	cfg := Defaults()
	cfg.Log.Level = "not-a-level"
	assert.NotNil(t, cfg.Logger())
}

func TestDefaultsMatchParams(t *testing.T) {
	def := Defaults()
	assert.Equal(t, params.DefaultPoolSize, def.Engine.PoolSize)
	assert.Equal(t, params.DefaultModuleCacheSize, def.Engine.ModuleCacheSize)
	_, err := log.LvlFromString(def.Log.Level)
	require.NoError(t, err)
}
