// Package testsupport provides shared constructors for tests: configs
// seeded with unique temp directories and stores registered for cleanup.
package testsupport

import (
	"path/filepath"
	"testing"

	"taskherd/internal/config"
)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = base
	cfg.Paths.DatabasePath = filepath.Join(base, "tasks.db")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.SocketPath = filepath.Join(base, "taskherd.sock")
	cfg.Logging.Format = "console"
	cfg.Logging.Level = "info"
	return &cfg
}
