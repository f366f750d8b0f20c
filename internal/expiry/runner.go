package expiry

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Runner re-checks expiration on a fixed interval so stale state is cleared
// close to the TTL boundary without a restart.
type Runner struct {
	Interval time.Duration
	Check    func(ctx context.Context) (bool, error)
	Log      *zap.Logger
}

// Run checks once immediately and then every Interval until ctx is done.
// Check errors are logged and never stop the loop.
func (r *Runner) Run(ctx context.Context) error {
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	r.tick(ctx, log)

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			r.tick(ctx, log)
		}
	}
}

func (r *Runner) tick(ctx context.Context, log *zap.Logger) {
	expired, err := r.Check(ctx)
	if err != nil {
		log.Error("expiration check failed", zap.Error(err))
		return
	}
	if expired {
		log.Info("expiration check cleared stale order")
	}
}

// Scheduler runs f once after d. Scheduled work is never cancelled; whatever
// it does must tolerate running against state that changed in the meantime.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

type TimerScheduler struct{}

func (TimerScheduler) AfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }
