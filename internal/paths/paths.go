// Package paths defines the on-disk layout under the data directory
// (default ~/.courier).
package paths

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns ~/.courier.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".courier")
}

// DBPath returns the conversation database path.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, "courier.db")
}

// MediaDir returns the local content-store directory.
func MediaDir(dataDir string) string {
	return filepath.Join(dataDir, "media")
}

// LogDir returns the log directory.
func LogDir(dataDir string) string {
	return filepath.Join(dataDir, "logs")
}

// LogPath returns the daemon log file path.
func LogPath(dataDir string) string {
	return filepath.Join(LogDir(dataDir), "courierd.log")
}

// LockPath returns the data-dir lock file path.
func LockPath(dataDir string) string {
	return filepath.Join(dataDir, "LOCK")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(DefaultDataDir(), "config.toml")
}

// EnsureDirs creates the data directory tree with proper permissions.
func EnsureDirs(dataDir string) error {
	dirs := []string{
		dataDir,
		MediaDir(dataDir),
		LogDir(dataDir),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
