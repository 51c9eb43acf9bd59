package config

import (
	"os"
	"path/filepath"
)

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// DefaultStudyProgressDir is where the terminal client keeps device-local progress.
func DefaultStudyProgressDir() string {
	return filepath.Join(XDGDataHome(), "learncard", "progress")
}
