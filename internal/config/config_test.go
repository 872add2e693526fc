package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"taskherd/internal/config"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv(config.EnvDBPath, "")
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %#v", cfg.Logging)
	}
	if cfg.Paths.DatabasePath == "" || cfg.Paths.SocketPath == "" {
		t.Fatalf("expected derived paths: %#v", cfg.Paths)
	}
	if filepath.Dir(cfg.Paths.DatabasePath) != cfg.Paths.DataDir {
		t.Fatalf("expected database under data dir: %#v", cfg.Paths)
	}
}

func TestLoadParsesFile(t *testing.T) {
	t.Setenv(config.EnvDBPath, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + dir + `"
database_path = "` + filepath.Join(dir, "custom.db") + `"

[logging]
format = "json"
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected file at %s to be used, got %s exists=%v", path, resolved, exists)
	}
	if cfg.Paths.DatabasePath != filepath.Join(dir, "custom.db") {
		t.Fatalf("unexpected database path: %s", cfg.Paths.DatabasePath)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging: %#v", cfg.Logging)
	}
}

func TestEnvOverridesDatabasePath(t *testing.T) {
	override := filepath.Join(t.TempDir(), "env.db")
	t.Setenv(config.EnvDBPath, override)

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Paths.DatabasePath != override {
		t.Fatalf("expected env override %s, got %s", override, cfg.Paths.DatabasePath)
	}
}

func TestValidateRejectsBadLogging(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[logging]\nformat = \"xml\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for bad format")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected sample content")
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "data", "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
