package ipc

import (
	"time"

	"taskherd/internal/store"
)

func fmtTimestamp(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func fmtTimestampPtr(value *time.Time) string {
	if value == nil {
		return ""
	}
	return fmtTimestamp(*value)
}

func queueToWire(queue *store.Queue) *Queue {
	if queue == nil {
		return nil
	}
	return &Queue{
		Name:         queue.Name,
		Description:  queue.Description,
		Instructions: queue.Instructions,
		CreatedAt:    fmtTimestamp(queue.CreatedAt),
		UpdatedAt:    fmtTimestamp(queue.UpdatedAt),
	}
}

func taskToWire(task *store.Task) *Task {
	if task == nil {
		return nil
	}
	return &Task{
		ID:           task.ID,
		QueueName:    task.QueueName,
		Title:        task.Title,
		Description:  task.Description,
		Priority:     task.Priority,
		Parameters:   task.Parameters,
		Instructions: task.Instructions,
		Status:       string(task.Status),
		WorkerID:     task.WorkerID,
		CreatedAt:    fmtTimestamp(task.CreatedAt),
		UpdatedAt:    fmtTimestamp(task.UpdatedAt),
		CheckedOutAt: fmtTimestampPtr(task.CheckedOutAt),
		CompletedAt:  fmtTimestampPtr(task.CompletedAt),
	}
}

func entryToWire(entry *store.JournalEntry) *JournalEntry {
	if entry == nil {
		return nil
	}
	return &JournalEntry{
		ID:        entry.ID,
		TaskID:    entry.TaskID,
		Status:    string(entry.Status),
		Notes:     entry.Notes,
		Timestamp: fmtTimestamp(entry.Timestamp),
	}
}

func statsToWire(stats *store.Stats) *Stats {
	if stats == nil {
		return nil
	}
	return &Stats{
		Total:      stats.Total,
		Pending:    stats.Pending,
		CheckedOut: stats.CheckedOut,
		Completed:  stats.Completed,
		Failed:     stats.Failed,
	}
}

func envelope(err error) *ErrorEnvelope {
	if err == nil {
		return nil
	}
	return &ErrorEnvelope{Kind: store.Kind(err), Message: err.Error()}
}
