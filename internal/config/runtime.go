package config

import (
	"os"
	"path/filepath"
)

// GetRuntimePath resolves the directory holding .env, the memory database and
// the used-content snapshots. Relative paths are anchored at the home directory.
func GetRuntimePath() string {
	path := os.Getenv("GREY_RUNTIME_PATH")
	if path == "" {
		path = ".greybot"
	}

	if !filepath.IsAbs(path) {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path)
	}
	return path
}

func GetEnvPath() string {
	return filepath.Join(GetRuntimePath(), ".env")
}
