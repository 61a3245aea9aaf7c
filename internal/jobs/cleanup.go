package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kokare-darshan/quickconnect/internal/repository"
)

// PendingRequestSweeper removes pairing requests past their deadline.
// Expiry is also enforced lazily on every registry read; the job just
// keeps memory from accumulating between reads.
type PendingRequestSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

type CleanupJob struct {
	sweeper     PendingRequestSweeper
	sessionRepo repository.DeviceSessionRepository
	interval    time.Duration
	done        chan struct{}
}

func NewCleanupJob(
	sweeper PendingRequestSweeper,
	sessionRepo repository.DeviceSessionRepository,
	interval time.Duration,
) *CleanupJob {
	return &CleanupJob{
		sweeper:     sweeper,
		sessionRepo: sessionRepo,
		interval:    interval,
		done:        make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	j.runCleanup(ctx, "pending pairing requests", j.sweeper.SweepExpired)
	j.runCleanup(ctx, "device sessions", j.sessionRepo.DeleteExpired)
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
