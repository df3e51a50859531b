package worker

import (
	"context"
	"errors"
	"time"

	"github.com/ignite/lgl-sync/internal/pkg/distlock"
	"github.com/ignite/lgl-sync/internal/pkg/logger"
	"github.com/ignite/lgl-sync/internal/service/renewal"
)

// DefaultRenewalInterval is how often the renewal pass runs.
const DefaultRenewalInterval = time.Hour

// PassRunner runs one renewal scheduling pass.
type PassRunner interface {
	Run(ctx context.Context) (*renewal.PassReport, error)
}

// RenewalJob runs renewal passes on a ticker. A job-wide lock keeps workers
// on different hosts from running passes at the same time.
type RenewalJob struct {
	runner   PassRunner
	lock     distlock.DistLock
	interval time.Duration
	log      *logger.Logger
}

// NewRenewalJob creates the job.
func NewRenewalJob(runner PassRunner, lock distlock.DistLock, interval time.Duration) *RenewalJob {
	if interval <= 0 {
		interval = DefaultRenewalInterval
	}
	return &RenewalJob{
		runner:   runner,
		lock:     lock,
		interval: interval,
		log:      logger.With("component", "renewal_job"),
	}
}

// Start runs a pass immediately and then on every tick. It blocks until ctx
// is cancelled.
func (j *RenewalJob) Start(ctx context.Context) {
	j.log.Info("renewal job started", "interval", j.interval.String())
	j.tick(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			j.log.Info("renewal job stopping")
			return
		case <-ticker.C:
			j.tick(ctx)
		}
	}
}

func (j *RenewalJob) tick(ctx context.Context) {
	if _, err := j.RunOnce(ctx); err != nil && !errors.Is(err, distlock.ErrNotAcquired) {
		j.log.Error("renewal pass failed", "error", err)
	}
}

// RunOnce runs a single pass under the job lock. It returns
// distlock.ErrNotAcquired when another worker holds the lock.
func (j *RenewalJob) RunOnce(ctx context.Context) (*renewal.PassReport, error) {
	var report *renewal.PassReport
	err := distlock.WithLock(ctx, j.lock, func(ctx context.Context) error {
		var err error
		report, err = j.runner.Run(ctx)
		return err
	})
	if errors.Is(err, distlock.ErrNotAcquired) {
		j.log.Debug("renewal pass already running elsewhere")
	}
	return report, err
}
