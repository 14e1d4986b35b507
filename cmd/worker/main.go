// Standalone conversation worker. Deployments that scale message processing
// independently of the webhook run this binary against the shared SQS queue.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lyosaas/booking-engine/cmd/mainconfig"
	"github.com/lyosaas/booking-engine/internal/app/bootstrap"
	appconfig "github.com/lyosaas/booking-engine/internal/config"
	"github.com/lyosaas/booking-engine/internal/conversation"
	"github.com/lyosaas/booking-engine/internal/observability/metrics"
	"github.com/lyosaas/booking-engine/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting conversation worker", "env", cfg.Env)

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

	m := metrics.New(prometheus.NewRegistry())
	service, err := bootstrap.BuildService(ctx, cfg, stores, redisClient, m, logger)
	if err != nil {
		logger.Error("build conversation service", "error", err)
		os.Exit(1)
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("load AWS config", "error", err)
		os.Exit(1)
	}
	queue := conversation.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.ConversationQueueURL)

	worker := conversation.NewWorker(service, queue, logger,
		conversation.WithWorkerCount(cfg.WorkerCount),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	worker.Start(runCtx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down conversation worker")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("conversation worker stopped")
	case <-doneCtx.Done():
		logger.Error("conversation worker shutdown timed out", "error", doneCtx.Err())
	}
}
