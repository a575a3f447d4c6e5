package config

import (
	"os"
	"path/filepath"
)

// configExts are tried in order for both global and local config files.
var configExts = []string{"yml", "yaml", "json", "toml"}

// FindLocalConfig finds local config file by walking up directories
func FindLocalConfig(dir string) string {
	for {
		for _, ext := range configExts {
			path := filepath.Join(dir, "."+AppName+"."+ext)

			if _, err := os.Stat(path); err == nil {
				return path
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}

// FindGlobalConfig returns the first config.<ext> inside dir.
func FindGlobalConfig(dir string) string {
	if dir == "" {
		return ""
	}

	for _, ext := range configExts {
		path := filepath.Join(dir, "config."+ext)

		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// GlobalConfigDir returns the per-user configuration directory.
func GlobalConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, AppName)
}
