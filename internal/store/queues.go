package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// CreateQueue inserts a new named queue and returns the hydrated row.
func (t *Tx) CreateQueue(ctx context.Context, name, description, instructions string) (*Queue, error) {
	if err := validateQueueName(name); err != nil {
		return nil, err
	}

	var count int
	row := t.q.QueryRowContext(ctx, `SELECT COUNT(1) FROM queues WHERE name = ?`, name)
	if err := row.Scan(&count); err != nil {
		return nil, dbErr("check queue existence", err)
	}
	if count > 0 {
		return nil, conflictf("queue %q already exists", name)
	}

	now := fmtTime(timeNow())
	if _, err := t.q.ExecContext(
		ctx,
		`INSERT INTO queues (name, description, instructions, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)`,
		name,
		nullableString(description),
		nullableString(instructions),
		now,
		now,
	); err != nil {
		return nil, dbErr("insert queue", err)
	}

	return t.mustGetQueue(ctx, name)
}

// UpdateQueue applies a partial update: nil patch fields preserve the
// stored value, pointers to the empty string clear it to null. An empty
// patch leaves the row untouched and returns the current snapshot.
func (t *Tx) UpdateQueue(ctx context.Context, name string, patch QueuePatch) (*Queue, error) {
	queue, err := t.GetQueue(ctx, name)
	if err != nil {
		return nil, err
	}
	if queue == nil {
		return nil, notFoundf("queue %q does not exist", name)
	}
	if patch.isEmpty() {
		return queue, nil
	}

	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, nullableString(*patch.Description))
	}
	if patch.Instructions != nil {
		sets = append(sets, "instructions = ?")
		args = append(args, nullableString(*patch.Instructions))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, fmtTime(timeNow()), name)

	query := `UPDATE queues SET ` + strings.Join(sets, ", ") + ` WHERE name = ?`
	if _, err := t.q.ExecContext(ctx, query, args...); err != nil {
		return nil, dbErr("update queue", err)
	}

	return t.mustGetQueue(ctx, name)
}

// DeleteQueue removes the queue and cascades to its tasks and their
// journal entries.
func (t *Tx) DeleteQueue(ctx context.Context, name string) error {
	res, err := t.q.ExecContext(ctx, `DELETE FROM queues WHERE name = ?`, name)
	if err != nil {
		return dbErr("delete queue", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return dbErr("rows affected", err)
	}
	if affected == 0 {
		return notFoundf("queue %q does not exist", name)
	}
	return nil
}

// GetQueue fetches a queue by name; a missing queue returns nil, not an error.
func (t *Tx) GetQueue(ctx context.Context, name string) (*Queue, error) {
	row := t.q.QueryRowContext(ctx, `SELECT `+queueColumns+` FROM queues WHERE name = ?`, name)
	queue, err := scanQueue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbErr("get queue", err)
	}
	return queue, nil
}

// ListQueues returns all queues ordered by name.
func (t *Tx) ListQueues(ctx context.Context) ([]*Queue, error) {
	rows, err := t.q.QueryContext(ctx, `SELECT `+queueColumns+` FROM queues ORDER BY name`)
	if err != nil {
		return nil, dbErr("list queues", err)
	}
	defer rows.Close()

	var queues []*Queue
	for rows.Next() {
		queue, err := scanQueue(rows)
		if err != nil {
			return nil, dbErr("scan queue", err)
		}
		queues = append(queues, queue)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("iterate queues", err)
	}
	return queues, nil
}

// QueueStats counts the queue's tasks grouped by status.
func (t *Tx) QueueStats(ctx context.Context, name string) (*Stats, error) {
	queue, err := t.GetQueue(ctx, name)
	if err != nil {
		return nil, err
	}
	if queue == nil {
		return nil, notFoundf("queue %q does not exist", name)
	}

	rows, err := t.q.QueryContext(ctx, `SELECT status, COUNT(1) FROM tasks WHERE queue_name = ? GROUP BY status`, name)
	if err != nil {
		return nil, dbErr("queue stats", err)
	}
	defer rows.Close()

	stats := &Stats{}
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, dbErr("scan stats", err)
		}
		stats.Total += count
		switch status {
		case StatusPending:
			stats.Pending = count
		case StatusCheckedOut:
			stats.CheckedOut = count
		case StatusCompleted:
			stats.Completed = count
		case StatusFailed:
			stats.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("iterate stats", err)
	}
	return stats, nil
}

func (t *Tx) mustGetQueue(ctx context.Context, name string) (*Queue, error) {
	queue, err := t.GetQueue(ctx, name)
	if err != nil {
		return nil, err
	}
	if queue == nil {
		return nil, dbErr("reload queue", sql.ErrNoRows)
	}
	return queue, nil
}

// CreateQueue creates a queue. See Tx.CreateQueue.
func (s *Store) CreateQueue(ctx context.Context, name, description, instructions string) (*Queue, error) {
	var out *Queue
	err := s.Transaction(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.CreateQueue(ctx, name, description, instructions)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateQueue applies a partial update to a queue. See Tx.UpdateQueue.
func (s *Store) UpdateQueue(ctx context.Context, name string, patch QueuePatch) (*Queue, error) {
	var out *Queue
	err := s.Transaction(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.UpdateQueue(ctx, name, patch)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteQueue removes a queue and everything it owns.
func (s *Store) DeleteQueue(ctx context.Context, name string) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		return s.read().DeleteQueue(ctx, name)
	})
}

// GetQueue fetches a queue by name.
func (s *Store) GetQueue(ctx context.Context, name string) (*Queue, error) {
	return s.read().GetQueue(ensureContext(ctx), name)
}

// ListQueues returns all queues ordered by name.
func (s *Store) ListQueues(ctx context.Context) ([]*Queue, error) {
	return s.read().ListQueues(ensureContext(ctx))
}

// QueueStats returns task counts for one queue.
func (s *Store) QueueStats(ctx context.Context, name string) (*Stats, error) {
	return s.read().QueueStats(ensureContext(ctx), name)
}
