package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDefault(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, WriteDefault(path))

	info, err := os.Stat(path)
	require.NoError(t, err)

	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(configFilePerm), info.Mode().Perm(),
			"the template may hold tokens later, keep it owner-only")
	}

	// The template must itself be a loadable config.
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, defaultBatchSize, cfg.Sync.BatchSize)
}

func TestWriteDefault_RefusesToClobber(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("# my edits"), 0o600))

	err := WriteDefault(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# my edits", string(content))
}
