package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"taskherd/internal/logging"
	"taskherd/internal/store"
)

// Server exposes the task store via JSON-RPC over a unix domain socket.
type Server struct {
	path      string
	store     *store.Store
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, st *store.Store, logger *slog.Logger) (*Server, error) {
	if st == nil {
		return nil, errors.New("ipc server requires a store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{store: st, logger: logger.With(logging.String("component", "ipc"))}
	if err := rpcServer.RegisterName("Taskherd", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		store:     st,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections in the background until Close
// closes the listener.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

type service struct {
	store  *store.Store
	logger *slog.Logger
}

func (s *service) ctx() context.Context {
	return context.Background()
}

func (s *service) logOutcome(op string, err error) {
	if err == nil {
		s.logger.Debug("rpc ok", logging.String("op", op))
		return
	}
	s.logger.Debug("rpc failed",
		logging.String("op", op),
		logging.String("kind", store.Kind(err)),
		logging.Error(err))
}

func (s *service) CreateQueue(req CreateQueueRequest, resp *QueueResponse) error {
	queue, err := s.store.CreateQueue(s.ctx(), req.Name, req.Description, req.Instructions)
	s.logOutcome("CreateQueue", err)
	resp.Queue = queueToWire(queue)
	resp.Err = envelope(err)
	return nil
}

func (s *service) UpdateQueue(req UpdateQueueRequest, resp *QueueResponse) error {
	patch := store.QueuePatch{
		Description:  req.Description,
		Instructions: req.Instructions,
	}
	queue, err := s.store.UpdateQueue(s.ctx(), req.Name, patch)
	s.logOutcome("UpdateQueue", err)
	resp.Queue = queueToWire(queue)
	resp.Err = envelope(err)
	return nil
}

func (s *service) DeleteQueue(req DeleteQueueRequest, resp *EmptyResponse) error {
	err := s.store.DeleteQueue(s.ctx(), req.Name)
	s.logOutcome("DeleteQueue", err)
	resp.Err = envelope(err)
	return nil
}

func (s *service) GetQueue(req GetQueueRequest, resp *QueueResponse) error {
	queue, err := s.store.GetQueue(s.ctx(), req.Name)
	s.logOutcome("GetQueue", err)
	resp.Queue = queueToWire(queue)
	resp.Err = envelope(err)
	return nil
}

func (s *service) ListQueues(_ ListQueuesRequest, resp *ListQueuesResponse) error {
	queues, err := s.store.ListQueues(s.ctx())
	s.logOutcome("ListQueues", err)
	resp.Err = envelope(err)
	for _, queue := range queues {
		resp.Queues = append(resp.Queues, *queueToWire(queue))
	}
	return nil
}

func (s *service) QueueStats(req QueueStatsRequest, resp *QueueStatsResponse) error {
	stats, err := s.store.QueueStats(s.ctx(), req.Name)
	s.logOutcome("QueueStats", err)
	resp.Stats = statsToWire(stats)
	resp.Err = envelope(err)
	return nil
}

func (s *service) AddTask(req AddTaskRequest, resp *TaskResponse) error {
	task, err := s.store.AddTask(s.ctx(), store.NewTask{
		QueueName:    req.QueueName,
		Title:        req.Title,
		Description:  req.Description,
		Priority:     req.Priority,
		Parameters:   store.Parameters(req.Parameters),
		Instructions: req.Instructions,
	})
	s.logOutcome("AddTask", err)
	resp.Task = taskToWire(task)
	resp.Err = envelope(err)
	return nil
}

func (s *service) UpdateTask(req UpdateTaskRequest, resp *TaskResponse) error {
	patch := store.TaskPatch{
		Title:        req.Title,
		Description:  req.Description,
		Priority:     req.Priority,
		Instructions: req.Instructions,
	}
	if req.ClearParameters {
		empty := store.Parameters(nil)
		patch.Parameters = &empty
	} else if req.Parameters != nil {
		params := store.Parameters(req.Parameters)
		patch.Parameters = &params
	}
	task, err := s.store.UpdateTask(s.ctx(), req.ID, patch)
	s.logOutcome("UpdateTask", err)
	resp.Task = taskToWire(task)
	resp.Err = envelope(err)
	return nil
}

func (s *service) Checkout(req CheckoutRequest, resp *TaskResponse) error {
	var (
		task *store.Task
		err  error
	)
	if req.Queue != "" {
		task, err = s.store.CheckoutNext(s.ctx(), req.Queue, req.WorkerID)
	} else {
		task, err = s.store.CheckoutTask(s.ctx(), req.TaskID, req.WorkerID)
	}
	s.logOutcome("Checkout", err)
	resp.Task = taskToWire(task)
	resp.Err = envelope(err)
	return nil
}

func (s *service) CompleteTask(req TaskIDRequest, resp *TaskResponse) error {
	task, err := s.store.CompleteTask(s.ctx(), req.ID)
	s.logOutcome("CompleteTask", err)
	resp.Task = taskToWire(task)
	resp.Err = envelope(err)
	return nil
}

func (s *service) ResetTask(req TaskIDRequest, resp *TaskResponse) error {
	task, err := s.store.ResetTask(s.ctx(), req.ID)
	s.logOutcome("ResetTask", err)
	resp.Task = taskToWire(task)
	resp.Err = envelope(err)
	return nil
}

func (s *service) FailTask(req TaskIDRequest, resp *TaskResponse) error {
	task, err := s.store.FailTask(s.ctx(), req.ID)
	s.logOutcome("FailTask", err)
	resp.Task = taskToWire(task)
	resp.Err = envelope(err)
	return nil
}

func (s *service) DeleteTask(req TaskIDRequest, resp *EmptyResponse) error {
	err := s.store.DeleteTask(s.ctx(), req.ID)
	s.logOutcome("DeleteTask", err)
	resp.Err = envelope(err)
	return nil
}

func (s *service) GetTask(req TaskIDRequest, resp *TaskResponse) error {
	task, err := s.store.GetTask(s.ctx(), req.ID)
	s.logOutcome("GetTask", err)
	resp.Task = taskToWire(task)
	resp.Err = envelope(err)
	return nil
}

func (s *service) ListTasks(req ListTasksRequest, resp *ListTasksResponse) error {
	tasks, err := s.store.ListTasks(s.ctx(), req.Queue, store.ListOptions{
		Status: store.Status(req.Status),
		Limit:  req.Limit,
	})
	s.logOutcome("ListTasks", err)
	resp.Err = envelope(err)
	for _, task := range tasks {
		resp.Tasks = append(resp.Tasks, *taskToWire(task))
	}
	return nil
}

func (s *service) JournalAdd(req JournalAddRequest, resp *JournalEntryResponse) error {
	entry, err := s.store.AddJournalEntry(s.ctx(), req.TaskID, store.Status(req.Status), req.Notes)
	s.logOutcome("JournalAdd", err)
	resp.Entry = entryToWire(entry)
	resp.Err = envelope(err)
	return nil
}

func (s *service) JournalList(req JournalListRequest, resp *JournalListResponse) error {
	entries, err := s.store.TaskJournal(s.ctx(), req.TaskID)
	s.logOutcome("JournalList", err)
	resp.Err = envelope(err)
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, *entryToWire(entry))
	}
	return nil
}

func (s *service) JournalClear(req JournalClearRequest, resp *JournalClearResponse) error {
	removed, err := s.store.ClearTaskJournal(s.ctx(), req.TaskID)
	s.logOutcome("JournalClear", err)
	resp.Removed = removed
	resp.Err = envelope(err)
	return nil
}

func (s *service) Health(_ HealthRequest, resp *HealthResponse) error {
	health, err := s.store.CheckHealth(s.ctx())
	s.logOutcome("Health", err)
	resp.DBPath = health.DBPath
	resp.DatabaseExists = health.DatabaseExists
	resp.DatabaseReadable = health.DatabaseReadable
	resp.TablesPresent = health.TablesPresent
	resp.MissingTables = health.MissingTables
	resp.IntegrityCheck = health.IntegrityCheck
	resp.TotalQueues = health.TotalQueues
	resp.TotalTasks = health.TotalTasks
	resp.Err = envelope(err)
	return nil
}
