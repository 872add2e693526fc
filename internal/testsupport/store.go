package testsupport

import (
	"context"
	"testing"

	"taskherd/internal/config"
	"taskherd/internal/store"
)

// MustOpenStore opens a store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg.Paths.DatabasePath)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// MustCreateQueue creates a queue for tests using the provided store.
func MustCreateQueue(t testing.TB, st *store.Store, name string) *store.Queue {
	t.Helper()

	queue, err := st.CreateQueue(context.Background(), name, "", "")
	if err != nil {
		t.Fatalf("store.CreateQueue: %v", err)
	}
	return queue
}

// MustAddTask adds a pending task for tests using the provided store.
func MustAddTask(t testing.TB, st *store.Store, queueName, title string, priority int) *store.Task {
	t.Helper()

	task, err := st.AddTask(context.Background(), store.NewTask{
		QueueName: queueName,
		Title:     title,
		Priority:  priority,
	})
	if err != nil {
		t.Fatalf("store.AddTask: %v", err)
	}
	return task
}
