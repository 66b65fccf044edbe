package cli

import (
	"os"
	"strings"

	"github.com/quillnotes/quill/internal/store"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from --data-dir flag,
// QUILL_DATA_DIR env var, or ~/.quill as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("QUILL_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return home + "/.quill"
}

// openStore opens the SQLite store, defaulting to ~/.quill if no data dir
// was specified.
func openStore() (*store.Store, error) {
	return store.New(resolveDataDir())
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
