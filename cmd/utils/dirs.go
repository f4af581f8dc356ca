package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// GetCacheDir returns the root cache directory for downloaded artifacts and
// models. LLAMACHECK_CACHE_DIR overrides the platform default.
func GetCacheDir() (string, error) {
	if cacheDir := os.Getenv("LLAMACHECK_CACHE_DIR"); cacheDir != "" {
		return cacheDir, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, "Library", "Caches", "llamacheck"), nil
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			localAppData = homeDir
		}
		return filepath.Join(localAppData, "llamacheck", "cache"), nil
	default: // Linux and others
		xdgCache := os.Getenv("XDG_CACHE_HOME")
		if xdgCache == "" {
			xdgCache = filepath.Join(homeDir, ".cache")
		}
		return filepath.Join(xdgCache, "llamacheck"), nil
	}
}

// GetArtifactsDir returns the directory holding downloaded server binaries.
func GetArtifactsDir() (string, error) {
	cacheDir, err := GetCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "artifacts"), nil
}

// GetModelsDir returns the directory holding downloaded model files.
func GetModelsDir() (string, error) {
	cacheDir, err := GetCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "models"), nil
}

// GetReportsDir returns the directory run reports are written to.
func GetReportsDir() (string, error) {
	cacheDir, err := GetCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "reports"), nil
}

// EnsureDir creates dir (and parents) if it does not exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
