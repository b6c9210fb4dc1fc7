// cmd/decision-worker/main.go
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"

	"loan-funnel/internal/common/config"
	"loan-funnel/internal/common/logger"
	"loan-funnel/internal/workers/eligibility"
	"loan-funnel/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	if cfg.Workflow.BrokerAddress == "" {
		zapLog.Fatal("workflow.broker_address is required for the decision worker")
	}

	reg, err := registry.LoadRegistry(cfg.Workflow.Worker.RegistryPath)
	if err != nil {
		zapLog.Fatal("failed to load activity registry", zap.String("path", cfg.Workflow.Worker.RegistryPath), zap.Error(err))
	}
	activity, ok := reg.Find(eligibility.TaskType)
	if !ok {
		zapLog.Fatal("activity not registered", zap.String("taskType", eligibility.TaskType))
	}

	// --- Init Zeebe Client with retry ---
	var zeebeClient zbc.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.Workflow.BrokerAddress,
			UsePlaintextConnection: cfg.Workflow.UsePlaintext,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebeClient.Close()

	handler := eligibility.NewHandler(&eligibility.Config{
		ApproveThreshold: cfg.Workflow.Worker.ApproveThreshold,
		MinimumAge:       cfg.Workflow.Worker.MinimumAge,
		Timeout:          activity.TimeoutDuration(),
	}, activity, log)

	maxJobs := activity.MaxJobsActive
	if maxJobs <= 0 {
		maxJobs = cfg.Workflow.Worker.MaxJobsActive
	}

	jobWorker := zeebeClient.NewJobWorker().
		JobType(eligibility.TaskType).
		Handler(handler.Handle).
		MaxJobsActive(maxJobs).
		Timeout(activity.TimeoutDuration()).
		Open()

	zapLog.Info("worker started",
		zap.String("taskType", eligibility.TaskType),
		zap.Int("maxJobsActive", maxJobs),
		zap.Duration("timeout", activity.TimeoutDuration()),
	)

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping worker...")
	jobWorker.Close()
	jobWorker.AwaitClose()
	zapLog.Info("Decision worker stopped")
}
