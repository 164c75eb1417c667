// Package dirs resolves per-platform application directories.
package dirs

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "vidfit"

// AppName returns the canonical application name for directory paths.
func AppName() string {
	return appName
}

// ConfigDir returns the app's configuration directory.
// - Linux: $XDG_CONFIG_HOME/vidfit or ~/.config/vidfit
// - macOS: ~/Library/Application Support/vidfit
// - Windows: %AppData%/vidfit (fallback to os.UserConfigDir)
func ConfigDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", AppName()), nil
	case "linux":
		xdg := os.Getenv("XDG_CONFIG_HOME")
		if xdg != "" {
			return filepath.Join(xdg, AppName()), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", AppName()), nil
	default:
		cfg, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(cfg, AppName()), nil
	}
}

// CacheDir returns the app's cache directory.
// - Linux: $XDG_CACHE_HOME/vidfit or ~/.cache/vidfit
// - macOS: ~/Library/Caches/vidfit
// - Windows: %LocalAppData%/vidfit (fallback to os.UserCacheDir)
func CacheDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Caches", AppName()), nil
	case "linux":
		xdg := os.Getenv("XDG_CACHE_HOME")
		if xdg != "" {
			return filepath.Join(xdg, AppName()), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".cache", AppName()), nil
	default:
		c, err := os.UserCacheDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(c, AppName()), nil
	}
}

// TempBaseDir returns the base directory for per-run working files (two-pass
// stats logs) under cache.
func TempBaseDir() (string, error) {
	c, err := CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(c, "temp"), nil
}

// Ensure creates the directory if it doesn't exist.
func Ensure(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	return os.MkdirAll(path, 0o755)
}

// EnsureAll ensures the config and cache dirs exist.
func EnsureAll() error {
	if p, err := ConfigDir(); err == nil {
		if err := Ensure(p); err != nil {
			return err
		}
	}
	if p, err := CacheDir(); err == nil {
		if err := Ensure(p); err != nil {
			return err
		}
	}
	return nil
}
