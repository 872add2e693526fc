package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"taskherd/internal/store"
	"taskherd/internal/testsupport"
)

func TestOpenCreatesParentDirectories(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "nested", "deeper", "tasks.db")

	st, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()

	if st.Path() != path {
		t.Fatalf("expected path %s, got %s", path, st.Path())
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := store.Open(""); store.Kind(err) != "validation" {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReopenIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.MustCreateQueue(t, st, "persist")
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := store.Open(cfg.Paths.DatabasePath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	queue, err := reopened.GetQueue(context.Background(), "persist")
	if err != nil {
		t.Fatalf("GetQueue failed: %v", err)
	}
	if queue == nil {
		t.Fatal("expected queue to survive reopen")
	}
}

func TestCheckHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.MustCreateQueue(t, st, "q1")
	testsupport.MustAddTask(t, st, "q1", "work", 0)

	health, err := st.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable {
		t.Fatalf("expected healthy database, got %#v", health)
	}
	if len(health.MissingTables) != 0 {
		t.Fatalf("expected no missing tables, got %v", health.MissingTables)
	}
	if !health.IntegrityCheck {
		t.Fatal("expected integrity check to pass")
	}
	if health.TotalQueues != 1 || health.TotalTasks != 1 {
		t.Fatalf("unexpected counts: %#v", health)
	}
}
