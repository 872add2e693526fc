package ipc_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"taskherd/internal/ipc"
	"taskherd/internal/logging"
	"taskherd/internal/testsupport"
)

func startServer(t *testing.T) (*ipc.Client, string) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv, err := ipc.NewServer(ctx, cfg.Paths.SocketPath, st, logging.NewNop())
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(cfg.Paths.SocketPath)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return client, cfg.Paths.SocketPath
}

func TestServerLifecycleRoundTrip(t *testing.T) {
	client, _ := startServer(t)

	queue, err := client.CreateQueue(ipc.CreateQueueRequest{
		Name:         "q1",
		Description:  "test queue",
		Instructions: "do each task",
	})
	if err != nil {
		t.Fatalf("CreateQueue failed: %v", err)
	}
	if queue.Name != "q1" || queue.Description != "test queue" {
		t.Fatalf("unexpected queue: %#v", queue)
	}

	task, err := client.AddTask(ipc.AddTaskRequest{
		QueueName:  "q1",
		Title:      "first",
		Priority:   8,
		Parameters: map[string]any{"shard": float64(3)},
	})
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	if task.Status != "pending" || task.Priority != 8 {
		t.Fatalf("unexpected task: %#v", task)
	}

	claimed, err := client.Checkout(ipc.CheckoutRequest{Queue: "q1", WorkerID: "w1"})
	if err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}
	if claimed == nil || claimed.ID != task.ID || claimed.WorkerID != "w1" {
		t.Fatalf("unexpected claim: %#v", claimed)
	}
	if claimed.Status != "checked_out" || claimed.CheckedOutAt == "" {
		t.Fatalf("expected checked_out with timestamp: %#v", claimed)
	}

	completed, err := client.CompleteTask(task.ID)
	if err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}
	if completed.Status != "completed" || completed.CompletedAt == "" {
		t.Fatalf("expected completed with timestamp: %#v", completed)
	}

	entry, err := client.JournalAdd(ipc.JournalAddRequest{TaskID: task.ID, Status: "completed", Notes: "done"})
	if err != nil {
		t.Fatalf("JournalAdd failed: %v", err)
	}
	if entry.Notes != "done" {
		t.Fatalf("unexpected entry: %#v", entry)
	}
	entries, err := client.JournalList(task.ID)
	if err != nil {
		t.Fatalf("JournalList failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}

	stats, err := client.QueueStats("q1")
	if err != nil {
		t.Fatalf("QueueStats failed: %v", err)
	}
	if stats.Total != 1 || stats.Completed != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}

func TestErrorEnvelopeCarriesKind(t *testing.T) {
	client, _ := startServer(t)

	_, err := client.GetQueue("nope")
	if err != nil {
		t.Fatalf("GetQueue on missing queue should be nil result, got %v", err)
	}

	_, err = client.Checkout(ipc.CheckoutRequest{Queue: "nope", WorkerID: "w1"})
	callErr, ok := err.(*ipc.CallError)
	if !ok {
		t.Fatalf("expected CallError, got %T %v", err, err)
	}
	if callErr.Kind != "not_found" {
		t.Fatalf("expected not_found kind, got %s", callErr.Kind)
	}

	if _, err := client.CreateQueue(ipc.CreateQueueRequest{Name: "q1"}); err != nil {
		t.Fatalf("CreateQueue failed: %v", err)
	}
	if _, err := client.CreateQueue(ipc.CreateQueueRequest{Name: "q1"}); err == nil {
		t.Fatal("expected conflict")
	} else if callErr, ok := err.(*ipc.CallError); !ok || callErr.Kind != "conflict" {
		t.Fatalf("expected conflict kind, got %v", err)
	}

	if _, err := client.AddTask(ipc.AddTaskRequest{QueueName: "q1", Title: ""}); err == nil {
		t.Fatal("expected validation")
	} else if callErr, ok := err.(*ipc.CallError); !ok || callErr.Kind != "validation" {
		t.Fatalf("expected validation kind, got %v", err)
	}
}

func TestCheckoutEmptyQueueIsNotAnError(t *testing.T) {
	client, _ := startServer(t)

	if _, err := client.CreateQueue(ipc.CreateQueueRequest{Name: "idle"}); err != nil {
		t.Fatalf("CreateQueue failed: %v", err)
	}
	task, err := client.Checkout(ipc.CheckoutRequest{Queue: "idle", WorkerID: "w1"})
	if err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}
	if task != nil {
		t.Fatalf("expected nil task, got %#v", task)
	}
}

func TestConcurrentClientsCheckout(t *testing.T) {
	client, socket := startServer(t)

	if _, err := client.CreateQueue(ipc.CreateQueueRequest{Name: "q1"}); err != nil {
		t.Fatalf("CreateQueue failed: %v", err)
	}
	const seeded = 6
	for i := 0; i < seeded; i++ {
		if _, err := client.AddTask(ipc.AddTaskRequest{QueueName: "q1", Title: fmt.Sprintf("task-%d", i)}); err != nil {
			t.Fatalf("AddTask failed: %v", err)
		}
	}

	const clients = 9
	results := make(chan *ipc.Task, clients)
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		workerID := fmt.Sprintf("w%d", i)
		go func() {
			defer wg.Done()
			conn, err := ipc.Dial(socket)
			if err != nil {
				t.Errorf("Dial failed: %v", err)
				return
			}
			defer conn.Close()
			task, err := conn.Checkout(ipc.CheckoutRequest{Queue: "q1", WorkerID: workerID})
			if err != nil {
				t.Errorf("Checkout failed: %v", err)
				return
			}
			results <- task
		}()
	}
	wg.Wait()
	close(results)

	claimed := make(map[int64]struct{})
	empty := 0
	for task := range results {
		if task == nil {
			empty++
			continue
		}
		if _, dup := claimed[task.ID]; dup {
			t.Fatalf("task %d claimed twice", task.ID)
		}
		claimed[task.ID] = struct{}{}
	}
	if len(claimed) != seeded || empty != clients-seeded {
		t.Fatalf("expected %d claims and %d empties, got %d and %d",
			seeded, clients-seeded, len(claimed), empty)
	}
}

func TestHealthRPC(t *testing.T) {
	client, _ := startServer(t)

	health, err := client.Health()
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if !health.DatabaseExists || !health.IntegrityCheck {
		t.Fatalf("unexpected health: %#v", health)
	}
	if len(health.MissingTables) != 0 {
		t.Fatalf("expected complete schema, got missing %v", health.MissingTables)
	}
}
