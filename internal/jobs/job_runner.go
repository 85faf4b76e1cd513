package jobs

import (
	"time"

	"harvest-wallet-backend/internal/config"
	"harvest-wallet-backend/internal/logger"
	"harvest-wallet-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	config   *config.Config
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Reconciliation service.ReconciliationService
	Alerts         service.AlertNotifier
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

func (jr *JobRunner) jobTimeout() time.Duration {
	if jr.config == nil || jr.config.Scheduler.JobTimeoutMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(jr.config.Scheduler.JobTimeoutMinutes) * time.Minute
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	log := logger.WithComponent("jobs").With("job", jobName)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Job panicked", "panic", r)
		}
	}()

	start := time.Now()
	log.Info("Starting job")
	jobFunc()
	log.Info("Job completed", "duration", time.Since(start))
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.ReconcileWallets()
}
