package store

import "context"

// AddJournalEntry appends an observation to a task's journal. The status
// is validated against the four known values but not against the task's
// current status; entries may be back-dated observations.
func (t *Tx) AddJournalEntry(ctx context.Context, taskID int64, status Status, notes string) (*JournalEntry, error) {
	if err := validateTaskID(taskID); err != nil {
		return nil, err
	}
	if _, ok := statusSet[status]; !ok {
		return nil, validationf("unknown status %q", string(status))
	}

	task, err := t.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, notFoundf("task %d does not exist", taskID)
	}

	res, err := t.q.ExecContext(
		ctx,
		`INSERT INTO journal_entries (task_id, status, notes, timestamp) VALUES (?, ?, ?, ?)`,
		taskID,
		status,
		nullableString(notes),
		fmtTime(timeNow()),
	)
	if err != nil {
		return nil, dbErr("insert journal entry", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, dbErr("last insert id", err)
	}

	row := t.q.QueryRowContext(ctx, `SELECT `+journalColumns+` FROM journal_entries WHERE id = ?`, id)
	entry, err := scanJournalEntry(row)
	if err != nil {
		return nil, dbErr("reload journal entry", err)
	}
	return entry, nil
}

// TaskJournal returns a task's journal entries in ascending timestamp
// order, insertion order breaking ties.
func (t *Tx) TaskJournal(ctx context.Context, taskID int64) ([]*JournalEntry, error) {
	if err := validateTaskID(taskID); err != nil {
		return nil, err
	}
	rows, err := t.q.QueryContext(
		ctx,
		`SELECT `+journalColumns+` FROM journal_entries WHERE task_id = ? ORDER BY timestamp ASC, id ASC`,
		taskID,
	)
	if err != nil {
		return nil, dbErr("list journal entries", err)
	}
	defer rows.Close()

	var entries []*JournalEntry
	for rows.Next() {
		entry, err := scanJournalEntry(rows)
		if err != nil {
			return nil, dbErr("scan journal entry", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("iterate journal entries", err)
	}
	return entries, nil
}

// ClearTaskJournal deletes every journal entry for a task and reports how
// many were removed. Clearing a task with no entries is a no-op.
func (t *Tx) ClearTaskJournal(ctx context.Context, taskID int64) (int64, error) {
	if err := validateTaskID(taskID); err != nil {
		return 0, err
	}
	res, err := t.q.ExecContext(ctx, `DELETE FROM journal_entries WHERE task_id = ?`, taskID)
	if err != nil {
		return 0, dbErr("clear journal", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, dbErr("rows affected", err)
	}
	return removed, nil
}

// AddJournalEntry appends an observation to a task's journal. See
// Tx.AddJournalEntry.
func (s *Store) AddJournalEntry(ctx context.Context, taskID int64, status Status, notes string) (*JournalEntry, error) {
	var out *JournalEntry
	err := s.Transaction(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.AddJournalEntry(ctx, taskID, status, notes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TaskJournal returns a task's journal entries in timestamp order.
func (s *Store) TaskJournal(ctx context.Context, taskID int64) ([]*JournalEntry, error) {
	return s.read().TaskJournal(ensureContext(ctx), taskID)
}

// ClearTaskJournal deletes a task's journal entries.
func (s *Store) ClearTaskJournal(ctx context.Context, taskID int64) (int64, error) {
	ctx = ensureContext(ctx)
	var removed int64
	err := retryOnBusy(ctx, func() error {
		var clearErr error
		removed, clearErr = s.read().ClearTaskJournal(ctx, taskID)
		return clearErr
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
