package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voiceagent-server/internal/bootstrap"
	"voiceagent-server/internal/clients/crm"
	"voiceagent-server/internal/config"
	"voiceagent-server/internal/jobs"
	"voiceagent-server/internal/jobs/workers"
	"voiceagent-server/internal/observability"
	targetListProcessor "voiceagent-server/internal/targetlist/processor"

	"github.com/hibiken/asynq"
)

func main() {
	logger := observability.NewLogger()
	defer logger.Sync()
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.Redis.Enabled {
		log.Fatal("REDIS_ENABLED must be true for the background worker")
	}

	logger.Info(ctx, "Starting background worker server...")

	// Import progress goes to Redis so the API can stream it
	svc, err := bootstrap.InitializeServices(ctx, cfg, observability.NewMetrics(), logger)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer svc.Close()

	contacts := targetListProcessor.New(svc.Contacts, targetListProcessor.Config{Repository: &svc.Store}, logger)
	crmSyncWorker := workers.NewCRMSyncWorker(svc.Imports, contacts, logger)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				jobs.QueueHigh:   6,
				jobs.QueueMedium: 3,
				jobs.QueueLow:    1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error(ctx, fmt.Sprintf("task %s failed", task.Type()), err)
			}),
			RetryDelayFunc:  asynq.DefaultRetryDelayFunc,
			ShutdownTimeout: 30 * time.Second,
			Logger:          &asynqLogger{logger: logger},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(jobs.TypeCRMSync, crmSyncWorker.ProcessCRMSyncTask)

	if cfg.CRMSync.Schedule != "" {
		scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
			Logger: &asynqLogger{logger: logger},
		})
		task, err := jobs.NewCRMSyncTask(jobs.CRMSyncJobPayload{Connector: scheduledConnector(cfg.CRMSync)})
		if err != nil {
			log.Fatalf("Failed to build scheduled crm sync task: %v", err)
		}
		entryID, err := scheduler.Register(cfg.CRMSync.Schedule, task)
		if err != nil {
			log.Fatalf("Failed to register crm sync schedule %q: %v", cfg.CRMSync.Schedule, err)
		}
		logger.Info(ctx, fmt.Sprintf("scheduled crm sync %s (%s)", entryID, cfg.CRMSync.Schedule))

		if err := scheduler.Start(); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
		defer scheduler.Shutdown()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := srv.Start(mux); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
	logger.Info(ctx, fmt.Sprintf("Worker server started on Redis: %s", cfg.Redis.Addr()))

	<-sigChan
	logger.Info(ctx, "Shutting down worker server...")

	srv.Shutdown()
	logger.Info(ctx, "Worker server stopped")
}

func scheduledConnector(cfg config.CRMSyncConfig) crm.ConnectorConfig {
	return crm.ConnectorConfig{
		Provider:     crm.Provider(cfg.Provider),
		BaseURL:      cfg.BaseURL,
		TokenURL:     cfg.TokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       cfg.Scopes,
		DealerID:     cfg.DealerID,
	}
}

// asynqLogger adapts observability.Logger to the asynq.Logger interface
type asynqLogger struct {
	logger *observability.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) {
	l.logger.Debug(context.Background(), fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...interface{}) {
	l.logger.Info(context.Background(), fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.logger.Warn(context.Background(), fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.logger.Error(context.Background(), fmt.Sprint(args...), nil)
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.logger.Error(context.Background(), fmt.Sprint(args...), nil)
	os.Exit(1)
}
