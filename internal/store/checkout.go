package store

import (
	"context"
	"database/sql"
	"errors"
)

// CheckoutNext claims the highest-priority pending task in a queue for
// workerID, transitioning it to checked_out. It returns nil when the queue
// has no pending tasks; that is a normal outcome, not a failure. The claim
// is a conditional update guarded on the pending status, so at most one
// worker ever owns a task even across processes.
func (t *Tx) CheckoutNext(ctx context.Context, queueName, workerID string) (*Task, error) {
	if err := validateQueueName(queueName); err != nil {
		return nil, err
	}
	queue, err := t.GetQueue(ctx, queueName)
	if err != nil {
		return nil, err
	}
	if queue == nil {
		return nil, notFoundf("queue %q does not exist", queueName)
	}

	row := t.q.QueryRowContext(
		ctx,
		`SELECT id FROM tasks
         WHERE queue_name = ? AND status = ?
         ORDER BY priority DESC, created_at ASC, id ASC
         LIMIT 1`,
		queueName,
		StatusPending,
	)
	var id int64
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, dbErr("select next pending task", err)
	}

	return t.claim(ctx, id, workerID)
}

// CheckoutTask claims one specific task by id. Unlike CheckoutNext, a task
// that is not pending is a Checkout failure rather than a nil result.
func (t *Tx) CheckoutTask(ctx context.Context, id int64, workerID string) (*Task, error) {
	task, err := t.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, notFoundf("task %d does not exist", id)
	}
	if task.Status != StatusPending {
		return nil, checkoutf("task %d is %s, not pending", id, task.Status)
	}
	return t.claim(ctx, id, workerID)
}

func (t *Tx) claim(ctx context.Context, id int64, workerID string) (*Task, error) {
	now := fmtTime(timeNow())
	res, err := t.q.ExecContext(
		ctx,
		`UPDATE tasks
         SET status = ?, worker_id = ?, checked_out_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusCheckedOut,
		nullableString(workerID),
		now,
		now,
		id,
		StatusPending,
	)
	if err != nil {
		return nil, dbErr("claim task", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, dbErr("rows affected", err)
	}
	if affected == 0 {
		return nil, checkoutf("task %d was claimed by another worker", id)
	}
	return t.mustGetTask(ctx, id)
}

// CheckoutNext claims the next pending task from a queue inside its own
// write transaction. A Checkout failure means another writer won the race;
// the caller may retry.
func (s *Store) CheckoutNext(ctx context.Context, queueName, workerID string) (*Task, error) {
	var out *Task
	err := s.Transaction(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.CheckoutNext(ctx, queueName, workerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CheckoutTask claims one specific pending task inside its own write
// transaction.
func (s *Store) CheckoutTask(ctx context.Context, id int64, workerID string) (*Task, error) {
	var out *Task
	err := s.Transaction(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.CheckoutTask(ctx, id, workerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
