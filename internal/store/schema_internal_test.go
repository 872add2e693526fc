package store

import (
	"context"
	"path/filepath"
	"testing"
)

func openInternalStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func seedQueueRow(t *testing.T, st *Store, name string) {
	t.Helper()
	now := fmtTime(timeNow())
	if _, err := st.db.Exec(
		`INSERT INTO queues (name, created_at, updated_at) VALUES (?, ?, ?)`,
		name, now, now,
	); err != nil {
		t.Fatalf("seed queue: %v", err)
	}
}

func rawInsertTask(st *Store, queueName string, priority int, status string) error {
	now := fmtTime(timeNow())
	_, err := st.db.Exec(
		`INSERT INTO tasks (queue_name, title, priority, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		queueName, "raw", priority, status, now, now,
	)
	return err
}

func TestSchemaTablesExist(t *testing.T) {
	st := openInternalStore(t)
	for _, table := range []string{"queues", "tasks", "journal_entries"} {
		var name string
		row := st.db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name = ?`, table)
		if err := row.Scan(&name); err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
}

func TestSchemaRejectsPriorityOutOfRange(t *testing.T) {
	st := openInternalStore(t)
	seedQueueRow(t, st, "q1")

	if err := rawInsertTask(st, "q1", 0, "pending"); err == nil {
		t.Fatal("expected priority 0 to be rejected")
	}
	if err := rawInsertTask(st, "q1", 11, "pending"); err == nil {
		t.Fatal("expected priority 11 to be rejected")
	}
	if err := rawInsertTask(st, "q1", 1, "pending"); err != nil {
		t.Fatalf("expected priority 1 to be accepted: %v", err)
	}
	if err := rawInsertTask(st, "q1", 10, "pending"); err != nil {
		t.Fatalf("expected priority 10 to be accepted: %v", err)
	}
}

func TestSchemaRejectsUnknownStatus(t *testing.T) {
	st := openInternalStore(t)
	seedQueueRow(t, st, "q1")

	if err := rawInsertTask(st, "q1", 5, "bogus"); err == nil {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestSchemaEnforcesForeignKeys(t *testing.T) {
	st := openInternalStore(t)

	if err := rawInsertTask(st, "missing", 5, "pending"); err == nil {
		t.Fatal("expected task insert without queue to be rejected")
	}

	now := fmtTime(timeNow())
	if _, err := st.db.Exec(
		`INSERT INTO journal_entries (task_id, status, timestamp) VALUES (?, ?, ?)`,
		9999, "pending", now,
	); err == nil {
		t.Fatal("expected journal insert without task to be rejected")
	}
}

func TestGetTaskDegradesMalformedParameters(t *testing.T) {
	st := openInternalStore(t)
	ctx := context.Background()

	if _, err := st.CreateQueue(ctx, "q1", "", ""); err != nil {
		t.Fatalf("CreateQueue failed: %v", err)
	}
	task, err := st.AddTask(ctx, NewTask{QueueName: "q1", Title: "work", Parameters: Parameters{"k": "v"}})
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}

	if _, err := st.db.Exec(`UPDATE tasks SET parameters_json = ? WHERE id = ?`, "{not json", task.ID); err != nil {
		t.Fatalf("corrupt parameters: %v", err)
	}

	fetched, err := st.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if fetched.Parameters != nil {
		t.Fatalf("expected malformed parameters to degrade to nil, got %#v", fetched.Parameters)
	}
}

func TestUpdateTouchTriggerBumpsUpdatedAt(t *testing.T) {
	st := openInternalStore(t)
	seedQueueRow(t, st, "q1")

	var before string
	if err := st.db.QueryRow(`SELECT updated_at FROM queues WHERE name = 'q1'`).Scan(&before); err != nil {
		t.Fatalf("read updated_at: %v", err)
	}

	if _, err := st.db.Exec(`UPDATE queues SET description = 'changed' WHERE name = 'q1'`); err != nil {
		t.Fatalf("update queue: %v", err)
	}

	var after string
	if err := st.db.QueryRow(`SELECT updated_at FROM queues WHERE name = 'q1'`).Scan(&after); err != nil {
		t.Fatalf("read updated_at: %v", err)
	}
	if after == before {
		t.Fatal("expected trigger to touch updated_at")
	}
}
