package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"docket/internal/logging"
)

const defaultTimeout = 30 * time.Second

// Pool runs fire-and-forget side effects on a bounded number of goroutines.
// Task failures are logged, never returned to the submitter of the task.
type Pool struct {
	group   *errgroup.Group
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

// New returns a pool with at most workers tasks in flight. Each task gets
// its own deadline of timeout.
func New(workers int, timeout time.Duration, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	group := &errgroup.Group{}
	group.SetLimit(workers)
	return &Pool{
		group:   group,
		ctx:     ctx,
		cancel:  cancel,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "tasks"),
	}
}

// Go schedules fn. It blocks while the pool is saturated. After Close the
// task is dropped and false is returned.
func (p *Pool) Go(name string, fn func(ctx context.Context) error) bool {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		p.logger.Debug("task dropped after close", logging.String("task", name))
		return false
	}
	p.group.Go(func() error {
		p.run(name, fn)
		return nil
	})
	return true
}

func (p *Pool) run(name string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(p.logger, "background task panicked", "task_panic",
				logging.String("task", name),
				logging.String("panic", fmt.Sprint(r)),
				logging.String(logging.FieldErrorHint, "report this as a bug"),
				logging.String(logging.FieldImpact, "the side effect was not delivered"),
			)
		}
	}()
	if err := fn(ctx); err != nil {
		logging.WarnWithContext(p.logger, "background task failed", "task_failed",
			logging.String("task", name),
			logging.Error(err),
			logging.Duration("elapsed", time.Since(start)),
			logging.String(logging.FieldErrorHint, "check connectivity to the notification endpoint"),
			logging.String(logging.FieldImpact, "a notification was not delivered"),
		)
		return
	}
	p.logger.Debug("background task done", logging.String("task", name), logging.Duration("elapsed", time.Since(start)))
}

// Close stops accepting tasks and waits for in-flight ones. Tasks still
// running when ctx ends are cancelled.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = p.group.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}
