package store_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"taskherd/internal/store"
	"taskherd/internal/testsupport"
)

func TestCheckoutPriorityOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.MustCreateQueue(t, st, "q1")
	for _, priority := range []int{3, 9, 5, 7} {
		testsupport.MustAddTask(t, st, "q1", fmt.Sprintf("prio-%d", priority), priority)
	}

	expected := []int{9, 7, 5, 3}
	for i, want := range expected {
		task, err := st.CheckoutNext(ctx, "q1", "w1")
		if err != nil {
			t.Fatalf("checkout %d failed: %v", i, err)
		}
		if task == nil {
			t.Fatalf("checkout %d returned no task", i)
		}
		if task.Priority != want {
			t.Fatalf("checkout %d: expected priority %d, got %d", i, want, task.Priority)
		}
	}

	extra, err := st.CheckoutNext(ctx, "q1", "w1")
	if err != nil {
		t.Fatalf("final checkout failed: %v", err)
	}
	if extra != nil {
		t.Fatalf("expected empty queue, got %#v", extra)
	}
}

func TestDispatchOrderScenario(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.MustCreateQueue(t, st, "q1")
	testsupport.MustAddTask(t, st, "q1", "a", 3)
	testsupport.MustAddTask(t, st, "q1", "b", 9)
	testsupport.MustAddTask(t, st, "q1", "c", 5)

	var titles []string
	for i := 0; i < 3; i++ {
		task, err := st.CheckoutNext(ctx, "q1", "w1")
		if err != nil {
			t.Fatalf("checkout failed: %v", err)
		}
		titles = append(titles, task.Title)
	}
	if titles[0] != "b" || titles[1] != "c" || titles[2] != "a" {
		t.Fatalf("expected b, c, a; got %v", titles)
	}

	task, err := st.CheckoutNext(ctx, "q1", "w1")
	if err != nil {
		t.Fatalf("fourth checkout failed: %v", err)
	}
	if task != nil {
		t.Fatalf("expected nil on drained queue, got %#v", task)
	}
}

func TestCheckoutTieBreaksByInsertionOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.MustCreateQueue(t, st, "q1")
	first := testsupport.MustAddTask(t, st, "q1", "first", 5)
	second := testsupport.MustAddTask(t, st, "q1", "second", 5)

	claimed, err := st.CheckoutNext(ctx, "q1", "w1")
	if err != nil {
		t.Fatalf("CheckoutNext failed: %v", err)
	}
	if claimed.ID != first.ID {
		t.Fatalf("expected earlier task %d, got %d", first.ID, claimed.ID)
	}
	claimed, err = st.CheckoutNext(ctx, "q1", "w1")
	if err != nil {
		t.Fatalf("CheckoutNext failed: %v", err)
	}
	if claimed.ID != second.ID {
		t.Fatalf("expected later task %d, got %d", second.ID, claimed.ID)
	}
}

func TestCheckoutStampsWorkerAndTimestamp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.MustCreateQueue(t, st, "q1")
	task := testsupport.MustAddTask(t, st, "q1", "work", 0)

	claimed, err := st.CheckoutTask(ctx, task.ID, "w1")
	if err != nil {
		t.Fatalf("CheckoutTask failed: %v", err)
	}
	if claimed.Status != store.StatusCheckedOut || claimed.WorkerID != "w1" || claimed.CheckedOutAt == nil {
		t.Fatalf("unexpected claim result: %#v", claimed)
	}
}

func TestCheckoutUnknownQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	_, err := st.CheckoutNext(context.Background(), "missing", "w1")
	if store.Kind(err) != "not_found" {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestCheckoutCompletedTask(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.MustCreateQueue(t, st, "q1")
	task := testsupport.MustAddTask(t, st, "q1", "work", 0)
	if _, err := st.CheckoutTask(ctx, task.ID, "w1"); err != nil {
		t.Fatalf("CheckoutTask failed: %v", err)
	}
	if _, err := st.CompleteTask(ctx, task.ID); err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}

	_, err := st.CheckoutTask(ctx, task.ID, "w2")
	if !errors.Is(err, store.ErrCheckout) {
		t.Fatalf("expected checkout error, got %v", err)
	}
}

func TestConcurrentQueueCheckout(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	const seeded = 20
	const workers = 5
	const attemptsPerWorker = 3

	testsupport.MustCreateQueue(t, st, "q3")
	for i := 0; i < seeded; i++ {
		testsupport.MustAddTask(t, st, "q3", fmt.Sprintf("task-%d", i), 0)
	}

	type claim struct {
		taskID   int64
		workerID string
	}
	results := make(chan claim, workers*attemptsPerWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		workerID := fmt.Sprintf("w%d", w)
		go func() {
			defer wg.Done()
			for i := 0; i < attemptsPerWorker; i++ {
				time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
				task, err := st.CheckoutNext(ctx, "q3", workerID)
				if err != nil {
					t.Errorf("CheckoutNext failed: %v", err)
					return
				}
				if task != nil {
					results <- claim{taskID: task.ID, workerID: task.WorkerID}
				}
			}
		}()
	}
	wg.Wait()
	close(results)

	taskIDs := make(map[int64]struct{})
	workerIDs := make(map[string]struct{})
	successes := 0
	for c := range results {
		successes++
		if _, dup := taskIDs[c.taskID]; dup {
			t.Fatalf("task %d claimed twice", c.taskID)
		}
		taskIDs[c.taskID] = struct{}{}
		workerIDs[c.workerID] = struct{}{}
	}

	if successes != workers*attemptsPerWorker {
		t.Fatalf("expected %d successful claims, got %d", workers*attemptsPerWorker, successes)
	}
	if len(taskIDs) != workers*attemptsPerWorker {
		t.Fatalf("expected %d distinct tasks, got %d", workers*attemptsPerWorker, len(taskIDs))
	}
	if len(workerIDs) != workers {
		t.Fatalf("expected %d distinct workers, got %d", workers, len(workerIDs))
	}
}

func TestConcurrentCheckoutDrainsExactly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	const pending = 4
	const claimers = 9

	testsupport.MustCreateQueue(t, st, "q1")
	for i := 0; i < pending; i++ {
		testsupport.MustAddTask(t, st, "q1", fmt.Sprintf("task-%d", i), 0)
	}

	results := make(chan *store.Task, claimers)
	var wg sync.WaitGroup
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		workerID := fmt.Sprintf("w%d", i)
		go func() {
			defer wg.Done()
			task, err := st.CheckoutNext(ctx, "q1", workerID)
			if err != nil {
				t.Errorf("CheckoutNext failed: %v", err)
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
	if len(claimed) != pending {
		t.Fatalf("expected %d claims, got %d", pending, len(claimed))
	}
	if empty != claimers-pending {
		t.Fatalf("expected %d empty results, got %d", claimers-pending, empty)
	}
}

func TestConcurrentCheckoutByID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	const claimers = 8

	testsupport.MustCreateQueue(t, st, "q1")
	task := testsupport.MustAddTask(t, st, "q1", "contested", 0)

	errs := make(chan error, claimers)
	var wg sync.WaitGroup
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		workerID := fmt.Sprintf("w%d", i)
		go func() {
			defer wg.Done()
			_, err := st.CheckoutTask(ctx, task.ID, workerID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins := 0
	losses := 0
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, store.ErrCheckout):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != claimers-1 {
		t.Fatalf("expected 1 win and %d losses, got %d and %d", claimers-1, wins, losses)
	}
}
