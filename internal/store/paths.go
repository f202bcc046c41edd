package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DBFile is the attempt database file name inside the data directory.
const DBFile = "attempts.db"

// GlobalPath returns the glitchsim data directory.
// On Unix: ~/.glitchsim
// On Windows: %USERPROFILE%\.glitchsim
func GlobalPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".glitchsim"), nil
}

// DefaultDBPath returns ~/.glitchsim/attempts.db.
func DefaultDBPath() (string, error) {
	dir, err := GlobalPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DBFile), nil
}

// EnsureGlobalDir creates the data directory if it doesn't exist.
func EnsureGlobalDir() error {
	dir, err := GlobalPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create .glitchsim directory: %w", err)
	}

	return nil
}
