package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/clout9/backend/internal/db"
	"github.com/clout9/backend/internal/notify"
	"github.com/clout9/backend/internal/queue"
	"github.com/clout9/backend/pkg/config"
	"github.com/clout9/backend/pkg/logging"
)

const dequeueTimeout = 5 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting Clout9 Notification Worker")

	// Connect to database
	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	// Connect to the notification queue broker
	q, err := queue.New(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to queue", zap.Error(err))
	}
	defer q.Close()

	repo := db.NewRepository(database.DB)
	pusher := notify.NewFCMPusher(&cfg.Push, nil)
	mailer := notify.NewSMTPMailer(&cfg.Email)
	dispatcher := notify.NewDispatcher(repo, pusher, mailer)

	ctx, cancel := context.WithCancel(context.Background())

	// Stop dequeueing on interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("Shutting down worker...")
		cancel()
	}()

	for {
		task, err := q.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) {
				continue
			}
			if ctx.Err() != nil {
				break
			}
			logger.Error("dequeue failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		logger.Info("handling task",
			zap.String("task", task.Name),
			zap.Int64("to_user_id", task.ToUserID))
		if err := dispatcher.Handle(ctx, task); err != nil {
			logger.Error("task failed",
				zap.String("task", task.Name),
				zap.Error(err))
		}
	}

	logger.Info("Worker exited")
}
