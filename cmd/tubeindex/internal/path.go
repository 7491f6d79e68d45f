package internal

import (
	"os"
	"path/filepath"
	"strings"
)

// HomeDir returns ~/.tubeindex.
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tubeindex"), nil
}

// LogDir returns the directory holding per-run log files.
func LogDir() (string, error) {
	root, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "logs"), nil
}

// TextIndexPathFor places the bleve index next to the database file.
func TextIndexPathFor(dbPath string) string {
	return strings.TrimSuffix(dbPath, filepath.Ext(dbPath)) + ".bleve"
}

// sanitizeName replaces characters that are unsafe in file names.
func sanitizeName(name string) string {
	if name == "" {
		return "run"
	}
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}
