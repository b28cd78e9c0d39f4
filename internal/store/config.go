package store

import (
	"os"
	"path/filepath"
	"strings"
)

// ConfigDir is where config.yaml, session.sqlite and the default log file live.
func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.taskflow).
	if v := strings.TrimSpace(os.Getenv("TASKFLOW_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".taskflow"), nil
}

// EnsureDir creates dir (0700: it holds tokens) if missing.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o700)
}
