// Package scheduler runs periodic reward distributions on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bandhub/bandhub/internal/vault"
)

// jobTimeout bounds a single distribution run.
const jobTimeout = 10 * time.Minute

// Distributor pays out every vault's reward pool.
type Distributor interface {
	DistributeAll(ctx context.Context, trigger string) (int, error)
}

// Scheduler triggers Distributor on a cron spec (standard five-field syntax or
// descriptors such as "@daily"), evaluated in UTC. Overlapping runs are skipped.
type Scheduler struct {
	cron        *cron.Cron
	distributor Distributor
	spec        string

	// base parents every job context; set by Start before the cron loop runs.
	base context.Context
}

// New validates spec and creates a Scheduler.
func New(spec string, distributor Distributor) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	s := &Scheduler{cron: c, distributor: distributor, spec: spec, base: context.Background()}

	if _, err := c.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("parsing reward schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the schedule. It blocks until ctx is cancelled and any running
// job has finished. Cancelling ctx also cancels the running job.
func (s *Scheduler) Start(ctx context.Context) {
	s.base = ctx
	slog.Info("reward scheduler started", "schedule", s.spec)
	s.cron.Start()

	<-ctx.Done()
	<-s.cron.Stop().Done()
	slog.Info("reward scheduler stopped")
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(s.base, jobTimeout)
	defer cancel()

	start := time.Now()
	paid, err := s.distributor.DistributeAll(ctx, vault.TriggerSchedule)
	if err != nil {
		slog.Error("scheduler: reward distribution failed", "error", err)
		return
	}
	slog.Info("scheduler: reward distribution finished", "vaults_paid", paid, "duration", time.Since(start).String())
}
