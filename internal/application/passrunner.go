package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// PeriodicPassJob is the single-flight key for the periodic SLA pass.
const PeriodicPassJob = "sla-check"

// PeriodicPasser runs one periodic SLA pass.
type PeriodicPasser interface {
	RunPeriodicPass(ctx context.Context, now time.Time) (PassResult, error)
}

// PassRunner triggers periodic passes on a fixed cadence and on demand. At most
// one pass is in flight at a time; a trigger arriving while a pass runs waits for
// it and receives its result instead of starting another.
type PassRunner struct {
	passer   PeriodicPasser
	interval time.Duration
	now      func() time.Time
	group    singleflight.Group
	inflight sync.WaitGroup
	logger   *slog.Logger
}

// NewPassRunner creates a PassRunner. now defaults to time.Now.
func NewPassRunner(passer PeriodicPasser, interval time.Duration, now func() time.Time, logger *slog.Logger) *PassRunner {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PassRunner{
		passer:   passer,
		interval: interval,
		now:      now,
		logger:   logger,
	}
}

// Start runs passes aligned to multiples of the interval (the top of the hour
// for the default hourly cadence). It blocks until the context is canceled.
func (r *PassRunner) Start(ctx context.Context) {
	first := time.NewTimer(untilNextBoundary(r.now(), r.interval))
	defer first.Stop()

	select {
	case <-ctx.Done():
		r.logger.Info("pass runner stopped")
		return
	case <-first.C:
		r.runScheduled(ctx)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("pass runner stopped")
			return
		case <-ticker.C:
			r.runScheduled(ctx)
		}
	}
}

// RunNow runs a pass immediately, or joins the pass already in flight.
func (r *PassRunner) RunNow(ctx context.Context) (PassResult, error) {
	v, err, shared := r.group.Do(PeriodicPassJob, func() (any, error) {
		r.inflight.Add(1)
		defer r.inflight.Done()
		return r.passer.RunPeriodicPass(ctx, r.now())
	})
	if shared {
		r.logger.Info("joined in-flight pass", "job", PeriodicPassJob)
	}
	result, _ := v.(PassResult)
	return result, err
}

// Wait blocks until no pass is running. Call it after Start has returned and
// on-demand triggers have stopped, before closing the stores passes use.
func (r *PassRunner) Wait() {
	r.inflight.Wait()
}

func (r *PassRunner) runScheduled(ctx context.Context) {
	if _, err := r.RunNow(ctx); err != nil {
		r.logger.Error("scheduled pass failed", "job", PeriodicPassJob, "error", err)
	}
}

// untilNextBoundary returns the delay until the next multiple of interval.
func untilNextBoundary(now time.Time, interval time.Duration) time.Duration {
	if interval <= 0 {
		return 0
	}
	next := now.Truncate(interval).Add(interval)
	return next.Sub(now)
}
