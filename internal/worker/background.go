package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Runner executes fire-and-forget tasks off the event-handling path. The
// submitting handler never observes the task's outcome; failures are only
// logged. Callers therefore must not assume read-after-write consistency
// against the store immediately after submitting a write.
type Runner struct {
	logger  *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewRunner constructs the background runner. Every task runs under its
// own bounded context so a slow collaborator cannot pile up goroutines
// forever.
func NewRunner(logger *zap.Logger, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Runner{logger: logger, timeout: timeout}
}

// Submit schedules a named task and returns immediately.
func (r *Runner) Submit(name string, task func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := task(ctx); err != nil {
			r.logger.Error("background task failed", zap.String("task", name), zap.Error(err))
			return
		}
		r.logger.Debug("background task done", zap.String("task", name))
	}()
}

// Wait blocks until all submitted tasks finish. Used on shutdown and in
// tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}
