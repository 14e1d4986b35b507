package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lyosaas/booking-engine/cmd/mainconfig"
	"github.com/lyosaas/booking-engine/internal/api/router"
	"github.com/lyosaas/booking-engine/internal/app/bootstrap"
	appconfig "github.com/lyosaas/booking-engine/internal/config"
	"github.com/lyosaas/booking-engine/internal/conversation"
	"github.com/lyosaas/booking-engine/internal/messaging"
	"github.com/lyosaas/booking-engine/internal/observability/metrics"
	"github.com/lyosaas/booking-engine/pkg/logging"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking engine",
		"env", cfg.Env,
		"port", cfg.Port,
		"version", version,
	)

	ctx := context.Background()

	stores, err := bootstrap.BuildStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("build stores", "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	redisClient, err := bootstrap.BuildRedisClient(ctx, cfg, true)
	if err != nil {
		logger.Error("build redis client", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	service, err := bootstrap.BuildService(ctx, cfg, stores, redisClient, m, logger)
	if err != nil {
		logger.Error("build conversation service", "error", err)
		os.Exit(1)
	}

	workerOpts := []conversation.WorkerOption{conversation.WithWorkerCount(cfg.WorkerCount)}
	var (
		publisher *conversation.Publisher
		worker    *conversation.Worker
	)
	if cfg.UseMemoryQueue {
		queue := conversation.NewMemoryQueue(256)
		publisher = conversation.NewPublisher(queue)
		worker = conversation.NewWorker(service, queue, logger, workerOpts...)
	} else {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("load AWS config", "error", err)
			os.Exit(1)
		}
		queue := conversation.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.ConversationQueueURL)
		publisher = conversation.NewPublisher(queue)
		worker = conversation.NewWorker(service, queue, logger, workerOpts...)
	}

	workerCtx, stopWorkers := context.WithCancel(ctx)
	worker.Start(workerCtx)

	webhook := messaging.NewWebhookHandler(cfg.WhatsAppVerifyToken, stores.Directory, publisher, logger, m)
	r := router.New(&router.Config{
		Logger:         logger,
		Webhook:        webhook,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Version:        version,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	stopWorkers()
	worker.Wait()

	logger.Info("stopped")
}
