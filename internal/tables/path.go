package tables

import (
	"os"
	"path/filepath"
	"sync"
)

// EnvTablesPath overrides the default table directory at process start.
const EnvTablesPath = "BUFR_TABLES_PATH"

var (
	pathMu   sync.RWMutex
	basePath string
)

// SetBasePath sets the process-wide table directory. Callers must
// serialise changes before starting concurrent decodes that depend on
// it.
func SetBasePath(p string) {
	pathMu.Lock()
	defer pathMu.Unlock()
	basePath = p
}

// BasePath returns the configured table directory, falling back to the
// environment variable and then to "tables" in the working directory.
func BasePath() string {
	pathMu.RLock()
	p := basePath
	pathMu.RUnlock()
	if p != "" {
		return p
	}
	if env := os.Getenv(EnvTablesPath); env != "" {
		return env
	}
	return "tables"
}

func tableFile(parts ...string) string {
	return filepath.Join(append([]string{BasePath()}, parts...)...)
}
