package scheduler

import (
	"context"
	"fmt"
	"time"

	"bank-cards/internal/core/ports"

	"github.com/rs/zerolog"
)

const sweepLockTTL = 24 * time.Hour

// ExpiryJob runs the expiry sweep once per UTC day across all instances.
type ExpiryJob struct {
	sweeper ports.ExpirySweeper
	lock    ports.SweepLock
	log     zerolog.Logger
	now     func() time.Time
}

// NewExpiryJob creates the sweep job. A nil lock runs every invocation.
func NewExpiryJob(sweeper ports.ExpirySweeper, lock ports.SweepLock, log zerolog.Logger) *ExpiryJob {
	return &ExpiryJob{
		sweeper: sweeper,
		lock:    lock,
		log:     log,
		now:     time.Now,
	}
}

// Name returns the job name.
func (j *ExpiryJob) Name() string {
	return "card-expiry-sweep"
}

// Run claims today's run key and sweeps. If the lock store is unreachable the
// sweep still runs; marking cards expired is idempotent. A failed sweep gives
// the key back so the next scheduled run retries.
func (j *ExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	key := now.Format(time.DateOnly)

	claimed := false
	if j.lock != nil {
		acquired, err := j.lock.Acquire(ctx, key, sweepLockTTL)
		switch {
		case err != nil:
			j.log.Warn().Err(err).Str("run", key).Msg("Sweep lock unavailable, sweeping anyway")
		case !acquired:
			j.log.Info().Str("run", key).Msg("Sweep already claimed by another instance")
			return nil
		default:
			claimed = true
		}
	}

	n, err := j.sweeper.Sweep(ctx, now)
	if err != nil {
		if claimed {
			if relErr := j.lock.Release(context.WithoutCancel(ctx), key); relErr != nil {
				j.log.Warn().Err(relErr).Str("run", key).Msg("Failed to release sweep lock")
			}
		}
		return fmt.Errorf("expiry sweep: %w", err)
	}
	j.log.Info().Int("expired", n).Msg("Expiry sweep completed")
	return nil
}
