package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLogPath is ~/.orderindex/logs/orderindex.log, or the same layout
// under the temp directory when there is no home directory.
func DefaultLogPath() string {
	base, err := os.UserHomeDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, ".orderindex", "logs", "orderindex.log")
}

// FindLogFile resolves the file the log viewer reads. An explicit path must
// exist. Otherwise the default path is used, falling back to its newest
// rotation (".1") when the live file was rotated away and nothing has been
// logged since.
func FindLogFile(explicit string) (string, error) {
	if explicit != "" {
		if fileExists(explicit) {
			return explicit, nil
		}
		return "", fmt.Errorf("log file not found: %s", explicit)
	}

	path := DefaultLogPath()
	for _, candidate := range []string{path, path + ".1"} {
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no log file found, run a command first.\nExpected at: %s", path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
