package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load reads the configuration from the default path. A missing default
// file is not an error: the defaults are used.
func Load() (*Config, error) {
	configPath, err := GetDefaultConfigPath()
	if err != nil {
		return nil, err
	}

	cfg, err := LoadFrom(configPath)
	var notFound *ConfigNotFoundError
	if errors.As(err, &notFound) {
		return LoadDefaults()
	}
	return cfg, err
}

// LoadDefaults returns the defaults with environment overrides applied.
func LoadDefaults() (*Config, error) {
	return build(koanf.New("."), "")
}

// LoadFrom reads the config at path. Missing, unreadable and invalid
// files are reported with typed errors carrying a fix.
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, newNotFoundError(path)
		}
		return nil, fmt.Errorf("failed to access config: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, &PermissionError{
				Path:    path,
				Op:      "read",
				Fix:     getReadPermissionFix(path),
				Details: getPermissionDetails(path),
			}
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	f.Close()

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, newParseError(path, err)
	}

	return build(k, path)
}

// build layers k and the environment over the defaults, then validates.
func build(k *koanf.Koanf, path string) (*Config, error) {
	if err := applyEnv(k); err != nil {
		return nil, err
	}

	cfg := NewConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, newTypeError(path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, newValidationError(path, err)
	}

	cfg.Resolve()
	return cfg, nil
}

// getReadPermissionFix returns the platform's command to restore read access.
func getReadPermissionFix(path string) string {
	switch runtime.GOOS {
	case "windows":
		return fmt.Sprintf("Right-click %s, Properties, Security, Edit permissions", path)
	default: // unix-like
		return fmt.Sprintf("Run: chmod 644 %s", path)
	}
}

// getPermissionDetails reports the current mode bits on unix.
func getPermissionDetails(path string) string {
	if runtime.GOOS == "windows" {
		return ""
	}

	info, err := os.Stat(path)
	if err != nil {
		return ""
	}

	return fmt.Sprintf("Current permissions: %04o", info.Mode().Perm())
}
