package ipc

import "fmt"

// ErrorEnvelope carries a typed failure across the RPC boundary. RPC
// methods return it inside the response rather than as a transport error
// so the failure kind survives the codec.
type ErrorEnvelope struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// CallError is the client-side form of an ErrorEnvelope.
type CallError struct {
	Kind    string
	Message string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ErrorEnvelope) asError() error {
	if e == nil {
		return nil
	}
	return &CallError{Kind: e.Kind, Message: e.Message}
}

// Queue mirrors store.Queue for RPC transport.
type Queue struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// Task mirrors store.Task for RPC transport.
type Task struct {
	ID           int64          `json:"id"`
	QueueName    string         `json:"queue_name"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	Priority     int            `json:"priority"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	Instructions string         `json:"instructions,omitempty"`
	Status       string         `json:"status"`
	WorkerID     string         `json:"worker_id,omitempty"`
	CreatedAt    string         `json:"created_at"`
	UpdatedAt    string         `json:"updated_at"`
	CheckedOutAt string         `json:"checked_out_at,omitempty"`
	CompletedAt  string         `json:"completed_at,omitempty"`
}

// JournalEntry mirrors store.JournalEntry for RPC transport.
type JournalEntry struct {
	ID        int64  `json:"id"`
	TaskID    int64  `json:"task_id"`
	Status    string `json:"status"`
	Notes     string `json:"notes,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Stats mirrors store.Stats for RPC transport.
type Stats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	CheckedOut int `json:"checked_out"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// CreateQueueRequest creates a named queue.
type CreateQueueRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Instructions string `json:"instructions"`
}

// QueueResponse returns a single queue or a typed failure.
type QueueResponse struct {
	Queue *Queue         `json:"queue,omitempty"`
	Err   *ErrorEnvelope `json:"error,omitempty"`
}

// UpdateQueueRequest applies a partial update. Nil fields preserve stored
// values; empty strings clear them.
type UpdateQueueRequest struct {
	Name         string  `json:"name"`
	Description  *string `json:"description"`
	Instructions *string `json:"instructions"`
}

// DeleteQueueRequest removes a queue and everything it owns.
type DeleteQueueRequest struct {
	Name string `json:"name"`
}

// EmptyResponse reports success or a typed failure.
type EmptyResponse struct {
	Err *ErrorEnvelope `json:"error,omitempty"`
}

// GetQueueRequest fetches one queue; a missing queue yields a nil Queue
// with no error.
type GetQueueRequest struct {
	Name string `json:"name"`
}

// ListQueuesRequest lists all queues ordered by name.
type ListQueuesRequest struct{}

// ListQueuesResponse contains queue entries.
type ListQueuesResponse struct {
	Queues []Queue        `json:"queues"`
	Err    *ErrorEnvelope `json:"error,omitempty"`
}

// QueueStatsRequest fetches per-status task counts for one queue.
type QueueStatsRequest struct {
	Name string `json:"name"`
}

// QueueStatsResponse contains the counters.
type QueueStatsResponse struct {
	Stats *Stats         `json:"stats,omitempty"`
	Err   *ErrorEnvelope `json:"error,omitempty"`
}

// AddTaskRequest creates a pending task. Priority zero means the default.
type AddTaskRequest struct {
	QueueName    string         `json:"queue_name"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Priority     int            `json:"priority"`
	Parameters   map[string]any `json:"parameters"`
	Instructions string         `json:"instructions"`
}

// TaskResponse returns a single task or a typed failure. Checkout by queue
// name leaves both fields nil when no pending task is available.
type TaskResponse struct {
	Task *Task          `json:"task,omitempty"`
	Err  *ErrorEnvelope `json:"error,omitempty"`
}

// UpdateTaskRequest applies a partial update. Nil fields preserve stored
// values. A non-nil Parameters map replaces the bag; ClearParameters
// drops it.
type UpdateTaskRequest struct {
	ID              int64          `json:"id"`
	Title           *string        `json:"title"`
	Description     *string        `json:"description"`
	Priority        *int           `json:"priority"`
	Parameters      map[string]any `json:"parameters"`
	ClearParameters bool           `json:"clear_parameters"`
	Instructions    *string        `json:"instructions"`
}

// CheckoutRequest claims a task: by queue name when Queue is set,
// otherwise by TaskID.
type CheckoutRequest struct {
	Queue    string `json:"queue,omitempty"`
	TaskID   int64  `json:"task_id,omitempty"`
	WorkerID string `json:"worker_id,omitempty"`
}

// TaskIDRequest addresses one task by id.
type TaskIDRequest struct {
	ID int64 `json:"id"`
}

// ListTasksRequest lists a queue's tasks in dispatch order.
type ListTasksRequest struct {
	Queue  string `json:"queue"`
	Status string `json:"status,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// ListTasksResponse contains task entries.
type ListTasksResponse struct {
	Tasks []Task         `json:"tasks"`
	Err   *ErrorEnvelope `json:"error,omitempty"`
}

// JournalAddRequest appends an observation to a task's journal.
type JournalAddRequest struct {
	TaskID int64  `json:"task_id"`
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// JournalEntryResponse returns one journal entry or a typed failure.
type JournalEntryResponse struct {
	Entry *JournalEntry  `json:"entry,omitempty"`
	Err   *ErrorEnvelope `json:"error,omitempty"`
}

// JournalListRequest fetches a task's journal in timestamp order.
type JournalListRequest struct {
	TaskID int64 `json:"task_id"`
}

// JournalListResponse contains journal entries.
type JournalListResponse struct {
	Entries []JournalEntry `json:"entries"`
	Err     *ErrorEnvelope `json:"error,omitempty"`
}

// JournalClearRequest removes all of a task's journal entries.
type JournalClearRequest struct {
	TaskID int64 `json:"task_id"`
}

// JournalClearResponse reports how many entries were removed.
type JournalClearResponse struct {
	Removed int64          `json:"removed"`
	Err     *ErrorEnvelope `json:"error,omitempty"`
}

// HealthRequest fetches database diagnostics.
type HealthRequest struct{}

// HealthResponse reports database health information.
type HealthResponse struct {
	DBPath           string         `json:"db_path"`
	DatabaseExists   bool           `json:"database_exists"`
	DatabaseReadable bool           `json:"database_readable"`
	TablesPresent    []string       `json:"tables_present"`
	MissingTables    []string       `json:"missing_tables"`
	IntegrityCheck   bool           `json:"integrity_check"`
	TotalQueues      int            `json:"total_queues"`
	TotalTasks       int            `json:"total_tasks"`
	Err              *ErrorEnvelope `json:"error,omitempty"`
}
