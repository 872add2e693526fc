package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

const queueColumns = "name, description, instructions, created_at, updated_at"

const taskColumns = "id, queue_name, title, description, priority, parameters_json, instructions, status, worker_id, created_at, updated_at, checked_out_at, completed_at"

const journalColumns = "id, task_id, status, notes, timestamp"

type rowScanner interface{ Scan(dest ...any) error }

func scanQueue(scanner rowScanner) (*Queue, error) {
	var (
		name         string
		description  sql.NullString
		instructions sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(&name, &description, &instructions, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	queue := &Queue{
		Name:         name,
		Description:  description.String,
		Instructions: instructions.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		queue.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		queue.UpdatedAt = updated
	}
	return queue, nil
}

func scanTask(scanner rowScanner) (*Task, error) {
	var (
		id            int64
		queueName     string
		title         string
		description   sql.NullString
		priority      int
		paramsRaw     sql.NullString
		instructions  sql.NullString
		statusStr     string
		workerID      sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
		checkedOutRaw sql.NullString
		completedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&queueName,
		&title,
		&description,
		&priority,
		&paramsRaw,
		&instructions,
		&statusStr,
		&workerID,
		&createdRaw,
		&updatedRaw,
		&checkedOutRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	task := &Task{
		ID:           id,
		QueueName:    queueName,
		Title:        title,
		Description:  description.String,
		Priority:     priority,
		Instructions: instructions.String,
		Status:       Status(statusStr),
		WorkerID:     workerID.String,
	}
	// A stored parameters document that fails to parse degrades to nil
	// rather than failing the read.
	if paramsRaw.Valid && paramsRaw.String != "" {
		var params Parameters
		if err := json.Unmarshal([]byte(paramsRaw.String), &params); err == nil {
			task.Parameters = params
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		task.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		task.UpdatedAt = updated
	}
	if checkedOutRaw.Valid {
		if checkedOut, err := parseTimeString(checkedOutRaw.String); err == nil {
			task.CheckedOutAt = &checkedOut
		}
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			task.CompletedAt = &completed
		}
	}
	return task, nil
}

func scanJournalEntry(scanner rowScanner) (*JournalEntry, error) {
	var (
		id           int64
		taskID       int64
		statusStr    string
		notes        sql.NullString
		timestampRaw sql.NullString
	)

	if err := scanner.Scan(&id, &taskID, &statusStr, &notes, &timestampRaw); err != nil {
		return nil, err
	}

	entry := &JournalEntry{
		ID:     id,
		TaskID: taskID,
		Status: Status(statusStr),
		Notes:  notes.String,
	}
	if ts, err := parseTimeString(timestampRaw.String); err == nil {
		entry.Timestamp = ts
	}
	return entry, nil
}

func marshalParameters(params Parameters) (any, error) {
	if len(params) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil, validationf("parameters not JSON-serializable: %v", err)
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func timeNow() time.Time {
	return time.Now().UTC()
}

// sortableTimeFormat keeps trailing zeros so stored timestamps order
// correctly under text comparison; RFC3339Nano trims them and is not
// lexicographically sortable.
const sortableTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func fmtTime(value time.Time) string {
	return value.UTC().Format(sortableTimeFormat)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
