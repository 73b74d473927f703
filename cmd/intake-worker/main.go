package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mbella-dev/colisflow/cmd/mainconfig"
	"github.com/mbella-dev/colisflow/internal/app/bootstrap"
	appconfig "github.com/mbella-dev/colisflow/internal/config"
	intakeworker "github.com/mbella-dev/colisflow/internal/worker/intake"
	"github.com/mbella-dev/colisflow/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting colisflow intake worker", "env", cfg.Env)

	if cfg.IntakeQueueURL == "" {
		logger.Error("INTAKE_QUEUE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, pool, err := bootstrap.BuildOrderStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	service := bootstrap.BuildIntakeService(cfg, store, redisClient, prometheus.NewRegistry(), logger)

	awsConfig, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	sqsClient := sqs.NewFromConfig(awsConfig)
	queue := intakeworker.NewSQSQueue(sqsClient, cfg.IntakeQueueURL)

	worker := intakeworker.NewWorker(
		service,
		queue,
		logger,
		intakeworker.WithWorkerCount(cfg.WorkerCount),
		intakeworker.WithReceiveWaitSeconds(cfg.PollWaitSeconds),
	)

	worker.Start(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down intake worker...")
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
		logger.Info("intake worker stopped")
	case <-doneCtx.Done():
		logger.Error("intake worker shutdown timed out", "error", doneCtx.Err())
	}
}
