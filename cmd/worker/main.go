package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/taskboard/internal/database"
	"github.com/hugh/taskboard/internal/jobs"
	"github.com/hugh/taskboard/pkg/config"
	"github.com/hugh/taskboard/pkg/queue"
	"github.com/hugh/taskboard/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting taskboard worker",
		"concurrency", cfg.Worker.Concurrency,
		"reminder_cron", cfg.Reminder.Cron,
		"reminder_window", cfg.Reminder.Window().String(),
	)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	srv := queue.NewServer(&cfg.Redis, cfg.Worker.Concurrency)

	handler := jobs.NewHandler(db, logger, cfg.Reminder.Window())
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	// An empty payload scans every organization
	scanTask, err := jobs.NewDueReminderScanTask(jobs.DueReminderScanPayload{})
	if err != nil {
		logger.Error("failed to build scheduled task", "error", err)
		os.Exit(1)
	}
	scheduler := queue.NewScheduler(&cfg.Redis)
	entryID, err := scheduler.Register(cfg.Reminder.Cron, scanTask, asynq.Queue(queue.QueueLow))
	if err != nil {
		logger.Error("failed to register reminder schedule", "error", err)
		os.Exit(1)
	}
	if next, err := util.NextCronTime(cfg.Reminder.Cron, time.Now().UTC()); err == nil {
		logger.Info("reminder scan scheduled", "entry_id", entryID, "next_run", next)
	}

	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	if err := srv.Start(mux); err != nil {
		logger.Error("failed to start worker", "error", err)
		scheduler.Shutdown()
		os.Exit(1)
	}

	logger.Info("worker started, waiting for tasks...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker...")
	scheduler.Shutdown()
	srv.Shutdown()

	logger.Info("worker stopped")
}
