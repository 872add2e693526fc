package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
)

// ListOptions filters ListTasks. A zero Status means no filter; a zero
// Limit means unbounded.
type ListOptions struct {
	Status Status
	Limit  int
}

// AddTask validates and persists a new pending task in an existing queue.
func (t *Tx) AddTask(ctx context.Context, input NewTask) (*Task, error) {
	if err := validateQueueName(input.QueueName); err != nil {
		return nil, err
	}
	if err := validateTitle(input.Title); err != nil {
		return nil, err
	}
	priority := input.Priority
	if priority == 0 {
		priority = DefaultPriority
	}
	if err := validatePriority(priority); err != nil {
		return nil, err
	}
	paramsValue, err := marshalParameters(input.Parameters)
	if err != nil {
		return nil, err
	}

	queue, err := t.GetQueue(ctx, input.QueueName)
	if err != nil {
		return nil, err
	}
	if queue == nil {
		return nil, notFoundf("queue %q does not exist", input.QueueName)
	}

	now := fmtTime(timeNow())
	res, err := t.q.ExecContext(
		ctx,
		`INSERT INTO tasks (
            queue_name, title, description, priority, parameters_json,
            instructions, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		input.QueueName,
		input.Title,
		nullableString(input.Description),
		priority,
		paramsValue,
		nullableString(input.Instructions),
		StatusPending,
		now,
		now,
	)
	if err != nil {
		return nil, dbErr("insert task", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, dbErr("last insert id", err)
	}
	return t.mustGetTask(ctx, id)
}

// UpdateTask applies a partial update to a task's caller-set fields. It
// never changes status, worker assignment, or lifecycle timestamps.
func (t *Tx) UpdateTask(ctx context.Context, id int64, patch TaskPatch) (*Task, error) {
	task, err := t.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, notFoundf("task %d does not exist", id)
	}
	if patch.isEmpty() {
		return task, nil
	}

	sets := make([]string, 0, 6)
	args := make([]any, 0, 7)
	if patch.Title != nil {
		if err := validateTitle(*patch.Title); err != nil {
			return nil, err
		}
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, nullableString(*patch.Description))
	}
	if patch.Priority != nil {
		if err := validatePriority(*patch.Priority); err != nil {
			return nil, err
		}
		sets = append(sets, "priority = ?")
		args = append(args, *patch.Priority)
	}
	if patch.Parameters != nil {
		paramsValue, err := marshalParameters(*patch.Parameters)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "parameters_json = ?")
		args = append(args, paramsValue)
	}
	if patch.Instructions != nil {
		sets = append(sets, "instructions = ?")
		args = append(args, nullableString(*patch.Instructions))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, fmtTime(timeNow()), id)

	query := `UPDATE tasks SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	if _, err := t.q.ExecContext(ctx, query, args...); err != nil {
		return nil, dbErr("update task", err)
	}

	return t.mustGetTask(ctx, id)
}

// CompleteTask transitions a checked-out task to completed, stamping
// completed_at. Completing an already-completed task returns the current
// snapshot unchanged.
func (t *Tx) CompleteTask(ctx context.Context, id int64) (*Task, error) {
	task, err := t.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, notFoundf("task %d does not exist", id)
	}
	if task.Status == StatusCompleted {
		return task, nil
	}
	if task.Status != StatusCheckedOut {
		return nil, validationf("task %d is %s; only a checked_out task can be completed", id, task.Status)
	}

	now := fmtTime(timeNow())
	if _, err := t.q.ExecContext(
		ctx,
		`UPDATE tasks SET status = ?, completed_at = ?, updated_at = ? WHERE id = ?`,
		StatusCompleted,
		now,
		now,
		id,
	); err != nil {
		return nil, dbErr("complete task", err)
	}
	return t.mustGetTask(ctx, id)
}

// ResetTask restores a task to pending from any state, clearing the worker
// assignment and lifecycle timestamps. Resetting a pending task returns
// the current snapshot unchanged. This is how stranded checked-out tasks
// are recovered; any caller may reset any task.
func (t *Tx) ResetTask(ctx context.Context, id int64) (*Task, error) {
	task, err := t.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, notFoundf("task %d does not exist", id)
	}
	if task.Status == StatusPending {
		return task, nil
	}

	if _, err := t.q.ExecContext(
		ctx,
		`UPDATE tasks
         SET status = ?, worker_id = NULL, checked_out_at = NULL, completed_at = NULL, updated_at = ?
         WHERE id = ?`,
		StatusPending,
		fmtTime(timeNow()),
		id,
	); err != nil {
		return nil, dbErr("reset task", err)
	}
	return t.mustGetTask(ctx, id)
}

// FailTask transitions a task to failed from any state. The worker
// assignment and checkout timestamp are preserved for forensics. Failing
// an already-failed task returns the current snapshot unchanged.
func (t *Tx) FailTask(ctx context.Context, id int64) (*Task, error) {
	task, err := t.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, notFoundf("task %d does not exist", id)
	}
	if task.Status == StatusFailed {
		return task, nil
	}

	if _, err := t.q.ExecContext(
		ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
		StatusFailed,
		fmtTime(timeNow()),
		id,
	); err != nil {
		return nil, dbErr("fail task", err)
	}
	return t.mustGetTask(ctx, id)
}

// DeleteTask removes a task and cascades to its journal entries.
func (t *Tx) DeleteTask(ctx context.Context, id int64) error {
	if err := validateTaskID(id); err != nil {
		return err
	}
	res, err := t.q.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return dbErr("delete task", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return dbErr("rows affected", err)
	}
	if affected == 0 {
		return notFoundf("task %d does not exist", id)
	}
	return nil
}

// GetTask fetches a task by id; a missing task returns nil, not an error.
func (t *Tx) GetTask(ctx context.Context, id int64) (*Task, error) {
	if err := validateTaskID(id); err != nil {
		return nil, err
	}
	row := t.q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbErr("get task", err)
	}
	return task, nil
}

// ListTasks returns a queue's tasks in dispatch order: priority descending,
// then creation time ascending, ties broken by insertion order.
func (t *Tx) ListTasks(ctx context.Context, queueName string, opts ListOptions) ([]*Task, error) {
	if err := validateQueueName(queueName); err != nil {
		return nil, err
	}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE queue_name = ?`
	args := []any{queueName}
	if opts.Status != "" {
		if _, ok := statusSet[opts.Status]; !ok {
			return nil, validationf("unknown status %q", string(opts.Status))
		}
		query += ` AND status = ?`
		args = append(args, opts.Status)
	}
	query += ` ORDER BY priority DESC, created_at ASC, id ASC`
	if opts.Limit < 0 {
		return nil, validationf("limit must be positive, got %d", opts.Limit)
	}
	if opts.Limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(opts.Limit)
	}

	rows, err := t.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr("list tasks", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, dbErr("scan task", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("iterate tasks", err)
	}
	return tasks, nil
}

func (t *Tx) mustGetTask(ctx context.Context, id int64) (*Task, error) {
	task, err := t.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, dbErr("reload task", sql.ErrNoRows)
	}
	return task, nil
}

// AddTask persists a new pending task. See Tx.AddTask.
func (s *Store) AddTask(ctx context.Context, input NewTask) (*Task, error) {
	var out *Task
	err := s.Transaction(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.AddTask(ctx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateTask applies a partial update to a task. See Tx.UpdateTask.
func (s *Store) UpdateTask(ctx context.Context, id int64, patch TaskPatch) (*Task, error) {
	var out *Task
	err := s.Transaction(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.UpdateTask(ctx, id, patch)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CompleteTask marks a checked-out task completed. See Tx.CompleteTask.
func (s *Store) CompleteTask(ctx context.Context, id int64) (*Task, error) {
	var out *Task
	err := s.Transaction(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.CompleteTask(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ResetTask restores a task to pending. See Tx.ResetTask.
func (s *Store) ResetTask(ctx context.Context, id int64) (*Task, error) {
	var out *Task
	err := s.Transaction(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.ResetTask(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FailTask marks a task failed. See Tx.FailTask.
func (s *Store) FailTask(ctx context.Context, id int64) (*Task, error) {
	var out *Task
	err := s.Transaction(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.FailTask(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteTask removes a task and its journal entries.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		return s.read().DeleteTask(ctx, id)
	})
}

// GetTask fetches a task by id.
func (s *Store) GetTask(ctx context.Context, id int64) (*Task, error) {
	return s.read().GetTask(ensureContext(ctx), id)
}

// ListTasks returns a queue's tasks in dispatch order.
func (s *Store) ListTasks(ctx context.Context, queueName string, opts ListOptions) ([]*Task, error) {
	return s.read().ListTasks(ensureContext(ctx), queueName, opts)
}
