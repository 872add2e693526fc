package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gofrs/flock"

	"taskherd/internal/config"
	"taskherd/internal/ipc"
	"taskherd/internal/logging"
	"taskherd/internal/store"
)

func main() {
	var configPath string
	var dbPath string
	var socketPath string
	flag.StringVar(&configPath, "config", "", "configuration file path")
	flag.StringVar(&dbPath, "db", "", "database file path (overrides config and TASKHERD_DB_PATH)")
	flag.StringVar(&socketPath, "socket", "", "unix socket path for the RPC server")
	flag.Parse()

	if err := run(configPath, dbPath, socketPath); err != nil {
		log.Fatal(err)
	}
}

func run(configPath, dbPath, socketPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if strings.TrimSpace(dbPath) != "" {
		expanded, err := config.ExpandPath(dbPath)
		if err != nil {
			return err
		}
		cfg.Paths.DatabasePath = expanded
	}
	if strings.TrimSpace(socketPath) != "" {
		expanded, err := config.ExpandPath(socketPath)
		if err != nil {
			return err
		}
		cfg.Paths.SocketPath = expanded
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "taskherdd.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return errors.New("another taskherd daemon instance is already running")
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release daemon lock", logging.Error(err))
		}
		_ = os.Remove(lockPath)
	}()

	st, err := store.Open(cfg.Paths.DatabasePath)
	if err != nil {
		return fmt.Errorf("open task store: %w", err)
	}
	defer st.Close()

	server, err := ipc.NewServer(ctx, cfg.Paths.SocketPath, st, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer server.Close()
	server.Serve()

	logger.Info("taskherd daemon started",
		logging.String("socket", cfg.Paths.SocketPath),
		logging.String("db", cfg.Paths.DatabasePath))

	<-ctx.Done()
	logger.Info("taskherd daemon shutting down")
	return nil
}
