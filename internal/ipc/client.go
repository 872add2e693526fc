package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to a taskherd daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// CreateQueue creates a named queue.
func (c *Client) CreateQueue(req CreateQueueRequest) (*Queue, error) {
	var resp QueueResponse
	if err := c.client.Call("Taskherd.CreateQueue", req, &resp); err != nil {
		return nil, err
	}
	return resp.Queue, resp.Err.asError()
}

// UpdateQueue applies a partial update to a queue.
func (c *Client) UpdateQueue(req UpdateQueueRequest) (*Queue, error) {
	var resp QueueResponse
	if err := c.client.Call("Taskherd.UpdateQueue", req, &resp); err != nil {
		return nil, err
	}
	return resp.Queue, resp.Err.asError()
}

// DeleteQueue removes a queue and everything it owns.
func (c *Client) DeleteQueue(name string) error {
	var resp EmptyResponse
	if err := c.client.Call("Taskherd.DeleteQueue", DeleteQueueRequest{Name: name}, &resp); err != nil {
		return err
	}
	return resp.Err.asError()
}

// GetQueue fetches one queue; nil means the queue does not exist.
func (c *Client) GetQueue(name string) (*Queue, error) {
	var resp QueueResponse
	if err := c.client.Call("Taskherd.GetQueue", GetQueueRequest{Name: name}, &resp); err != nil {
		return nil, err
	}
	return resp.Queue, resp.Err.asError()
}

// ListQueues returns all queues ordered by name.
func (c *Client) ListQueues() ([]Queue, error) {
	var resp ListQueuesResponse
	if err := c.client.Call("Taskherd.ListQueues", ListQueuesRequest{}, &resp); err != nil {
		return nil, err
	}
	return resp.Queues, resp.Err.asError()
}

// QueueStats returns per-status task counts for one queue.
func (c *Client) QueueStats(name string) (*Stats, error) {
	var resp QueueStatsResponse
	if err := c.client.Call("Taskherd.QueueStats", QueueStatsRequest{Name: name}, &resp); err != nil {
		return nil, err
	}
	return resp.Stats, resp.Err.asError()
}

// AddTask creates a pending task.
func (c *Client) AddTask(req AddTaskRequest) (*Task, error) {
	var resp TaskResponse
	if err := c.client.Call("Taskherd.AddTask", req, &resp); err != nil {
		return nil, err
	}
	return resp.Task, resp.Err.asError()
}

// UpdateTask applies a partial update to a task.
func (c *Client) UpdateTask(req UpdateTaskRequest) (*Task, error) {
	var resp TaskResponse
	if err := c.client.Call("Taskherd.UpdateTask", req, &resp); err != nil {
		return nil, err
	}
	return resp.Task, resp.Err.asError()
}

// Checkout claims a task by queue name or id. A nil task with a nil error
// means the queue had no pending work.
func (c *Client) Checkout(req CheckoutRequest) (*Task, error) {
	var resp TaskResponse
	if err := c.client.Call("Taskherd.Checkout", req, &resp); err != nil {
		return nil, err
	}
	return resp.Task, resp.Err.asError()
}

// CompleteTask marks a checked-out task completed.
func (c *Client) CompleteTask(id int64) (*Task, error) {
	var resp TaskResponse
	if err := c.client.Call("Taskherd.CompleteTask", TaskIDRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return resp.Task, resp.Err.asError()
}

// ResetTask restores a task to pending.
func (c *Client) ResetTask(id int64) (*Task, error) {
	var resp TaskResponse
	if err := c.client.Call("Taskherd.ResetTask", TaskIDRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return resp.Task, resp.Err.asError()
}

// FailTask marks a task failed.
func (c *Client) FailTask(id int64) (*Task, error) {
	var resp TaskResponse
	if err := c.client.Call("Taskherd.FailTask", TaskIDRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return resp.Task, resp.Err.asError()
}

// DeleteTask removes a task and its journal entries.
func (c *Client) DeleteTask(id int64) error {
	var resp EmptyResponse
	if err := c.client.Call("Taskherd.DeleteTask", TaskIDRequest{ID: id}, &resp); err != nil {
		return err
	}
	return resp.Err.asError()
}

// GetTask fetches one task; nil means the task does not exist.
func (c *Client) GetTask(id int64) (*Task, error) {
	var resp TaskResponse
	if err := c.client.Call("Taskherd.GetTask", TaskIDRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return resp.Task, resp.Err.asError()
}

// ListTasks returns a queue's tasks in dispatch order.
func (c *Client) ListTasks(req ListTasksRequest) ([]Task, error) {
	var resp ListTasksResponse
	if err := c.client.Call("Taskherd.ListTasks", req, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, resp.Err.asError()
}

// JournalAdd appends an observation to a task's journal.
func (c *Client) JournalAdd(req JournalAddRequest) (*JournalEntry, error) {
	var resp JournalEntryResponse
	if err := c.client.Call("Taskherd.JournalAdd", req, &resp); err != nil {
		return nil, err
	}
	return resp.Entry, resp.Err.asError()
}

// JournalList fetches a task's journal in timestamp order.
func (c *Client) JournalList(taskID int64) ([]JournalEntry, error) {
	var resp JournalListResponse
	if err := c.client.Call("Taskherd.JournalList", JournalListRequest{TaskID: taskID}, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, resp.Err.asError()
}

// JournalClear removes a task's journal entries.
func (c *Client) JournalClear(taskID int64) (int64, error) {
	var resp JournalClearResponse
	if err := c.client.Call("Taskherd.JournalClear", JournalClearRequest{TaskID: taskID}, &resp); err != nil {
		return 0, err
	}
	return resp.Removed, resp.Err.asError()
}

// Health retrieves database diagnostics.
func (c *Client) Health() (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.client.Call("Taskherd.Health", HealthRequest{}, &resp); err != nil {
		return nil, err
	}
	if err := resp.Err.asError(); err != nil {
		return nil, err
	}
	return &resp, nil
}
