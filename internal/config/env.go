package config

import "os"

// Environment variable names for overrides.
const (
	envConfigPath = "TASKSYNC_CONFIG"
	envDataDir    = "TASKSYNC_DATA_DIR"
	envToken      = "TASKSYNC_TOKEN" //nolint:gosec // G101: variable name, not a credential
)

// EnvOverrides holds configuration values read from the environment.
// They sit between the config file and CLI flags in precedence.
type EnvOverrides struct {
	ConfigPath string
	DataDir    string
	Token      string
}

// ReadEnvOverrides reads supported environment variables.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(envConfigPath),
		DataDir:    os.Getenv(envDataDir),
		Token:      os.Getenv(envToken),
	}
}
