package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"harvest-wallet-backend/internal/config"
	"harvest-wallet-backend/internal/jobs"
)

func TestNewScheduler(t *testing.T) {
	t.Run("Registers Reconciliation", func(t *testing.T) {
		cfg := &config.Config{Scheduler: config.SchedulerConfig{ReconcileWallets: "0 0 3 * * *"}}
		s := NewScheduler(jobs.NewJobRunner(&jobs.Services{}, cfg))

		assert.Len(t, s.cron.Entries(), 1)
		assert.True(t, s.IsRunning())
	})

	t.Run("Invalid Schedule", func(t *testing.T) {
		cfg := &config.Config{Scheduler: config.SchedulerConfig{ReconcileWallets: "every night"}}
		s := NewScheduler(jobs.NewJobRunner(&jobs.Services{}, cfg))

		assert.False(t, s.IsRunning())
	})
}

func TestScheduler_StartStop(t *testing.T) {
	cfg := &config.Config{Scheduler: config.SchedulerConfig{ReconcileWallets: "0 0 3 * * *"}}
	s := NewScheduler(jobs.NewJobRunner(&jobs.Services{}, cfg))
	s.Start()
	s.Stop()
}
