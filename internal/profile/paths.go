package profile

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.etijucas.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".etijucas")
}

// Dir returns the profile-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "profiles", name)
}

// DBPath returns the profile's mirror database path.
func DBPath(name string) string {
	return filepath.Join(Dir(name), "mirror.db")
}

// LockPath returns the lock file path for a profile.
func LockPath(name string) string {
	return filepath.Join(Dir(name), "LOCK")
}

// LogDir returns the log directory for a profile.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the sync daemon log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "etijucasd.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the profile directory tree with proper permissions.
func EnsureDir(name string) error {
	dirs := []string{
		Dir(name),
		LogDir(name),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
