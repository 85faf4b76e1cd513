package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"harvest-wallet-backend/internal/bootstrap"
	"harvest-wallet-backend/internal/config"
	"harvest-wallet-backend/internal/jobs"
	"harvest-wallet-backend/internal/logger"
	"harvest-wallet-backend/internal/scheduler"
	"harvest-wallet-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'reconcile', 'all')")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Ignoring .env: %v", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Harvest Wallet Cronjob Runner...", "log_level", cfg.Log.Level, "storage", cfg.Storage.Type)

	rt, err := bootstrap.Open(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize dependencies", "error", err)
		log.Fatalf("Failed to initialize dependencies: %v", err)
	}
	defer rt.Close()

	jobRunner := jobs.NewJobRunner(&jobs.Services{
		Reconciliation: service.NewReconciliationService(rt.Store),
		Alerts:         rt.Alerts,
	}, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if !runJobOnce(jobRunner, *runOnce) {
			rt.Close()
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	cronScheduler := scheduler.NewScheduler(jobRunner)
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) bool {
	switch jobName {
	case "reconcile":
		jobRunner.ReconcileWallets()
	case "all":
		jobRunner.RunAll()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - reconcile\n")
		fmt.Printf("  - all\n")
		return false
	}
	return true
}
