package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_DefaultsFillUnsetValues(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
[remote]
base_url = "https://tasks.example.com/api/v1"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://tasks.example.com/api/v1", cfg.Remote.BaseURL)
	assert.Equal(t, defaultTimeout, cfg.Remote.Timeout)
	assert.Equal(t, defaultSkewWindow, cfg.Sync.SkewWindow)
	assert.Equal(t, defaultBatchSize, cfg.Sync.BatchSize)
	assert.Equal(t, defaultLogLevel, cfg.Logging.LogLevel)
}

func TestLoad_ParsesAccounts(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
[account.alice]
binding = "col-1a2b3c"
token = "secret-a"

[account.bob]
binding = "col-9z8y7x"
token = "secret-b"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Accounts, 2)
	assert.Equal(t, "col-1a2b3c", cfg.Accounts["alice"].Binding)
	assert.Equal(t, "secret-b", cfg.Accounts["bob"].Token)
}

func TestLoad_UnknownKeyIsFatal(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
[sync]
batch_sise = 100
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown key")
	assert.Contains(t, err.Error(), "batch_sise")
}

func TestLoad_MissingFileFails(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadOrDefault_MissingFileYieldsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, defaultBatchSize, cfg.Sync.BatchSize)
	assert.Empty(t, cfg.Remote.BaseURL)
}

func TestResolve_OverrideChain(t *testing.T) {
	t.Parallel()

	filePath := writeConfig(t, `
[remote]
base_url = "https://tasks.example.com/api/v1"
timeout = "10s"

[sync]
skew_window = "5m"

[account.alice]
binding = "col-1a2b3c"
token = "from-file"
`)

	// CLI flag beats the env var for the config path.
	resolved, err := Resolve(
		EnvOverrides{ConfigPath: "/nonexistent/env.toml", Token: "from-env"},
		CLIOverrides{ConfigPath: filePath, DataDir: "/tmp/data"},
	)
	require.NoError(t, err)

	assert.Equal(t, filePath, resolved.ConfigPath)
	assert.Equal(t, "/tmp/data", resolved.DataDir)
	assert.Equal(t, filepath.Join("/tmp/data", "tasks.db"), resolved.DBPath)
	assert.Equal(t, 10*time.Second, resolved.Timeout)
	assert.Equal(t, 5*time.Minute, resolved.SkewWindow)
	assert.Equal(t, "from-env", resolved.Accounts["alice"].Token,
		"env token overrides the file token for every account")
	assert.Equal(t, "col-1a2b3c", resolved.Accounts["alice"].Binding)
}

func TestResolve_BadDurationFails(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
[remote]
timeout = "not a duration"
`)

	_, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}
