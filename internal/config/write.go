package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// File and directory permissions for config material. The config file may
// hold bearer tokens, so it is owner-only.
const (
	configDirPerm  = 0o700
	configFilePerm = 0o600
)

// defaultConfigTemplate is written by `tasksync config init`. Commented
// out so the defaults stay in one place (defaults.go) and a fresh file
// documents itself.
const defaultConfigTemplate = `# tasksync configuration.
# Uncomment and edit values as needed; commented values show defaults.

[remote]
# base_url = "https://tasks.example.com/api/v1"
# timeout = "30s"

[sync]
# skew_window = "2m"
# batch_size = 450
# max_retries = 3

[logging]
# log_level = "info"

# One [account.<user>] section per local user.
# [account.alice]
# binding = "col-1a2b3c"
# token = "..."
`

// WriteDefault creates the config file at path with the commented default
// template. Fails if the file already exists — init must never clobber a
// user's edits. The write is atomic (tmp file + rename) so a crash cannot
// leave a half-written config.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPerm); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, configFileName+".tmp*")
	if err != nil {
		return fmt.Errorf("creating temp config file: %w", err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.WriteString(defaultConfigTemplate); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return fmt.Errorf("writing config template: %w", err)
	}

	if err := tmp.Chmod(configFilePerm); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return fmt.Errorf("setting config permissions: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("closing temp config file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("renaming config file into place: %w", err)
	}

	return nil
}
