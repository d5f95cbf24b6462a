package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pizza-service/internal/apperr"
	"pizza-service/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const defaultTaskTimeout = 30 * time.Second

// ErrDispatcherStopped is reported for tasks submitted after Stop
var ErrDispatcherStopped = errors.New("dispatcher stopped")

// Dispatcher runs fire-and-forget tasks. Go never blocks the caller and a
// task's error or panic never reaches it: failures are logged and counted.
// At most maxConcurrent tasks run at once, each under its own timeout and
// detached from the submitting request's context.
type Dispatcher struct {
	sem     *semaphore.Weighted
	timeout time.Duration
	logger  *zap.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// mu orders wg.Add in Go against the stop flag, so Add never races Wait.
	mu      sync.RWMutex
	stopped bool
}

// NewDispatcher creates a dispatcher
func NewDispatcher(maxConcurrent int, timeout time.Duration) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if timeout <= 0 {
		timeout = defaultTaskTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		timeout: timeout,
		logger:  util.GetLogger(),
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Go schedules task under name
func (d *Dispatcher) Go(name string, task func(ctx context.Context) error) {
	d.mu.RLock()
	if d.stopped {
		d.mu.RUnlock()
		d.logger.Warn("Task dropped", zap.String("task", name), zap.Error(ErrDispatcherStopped))
		util.NotificationsFailedTotal.WithLabelValues("dispatcher_stopped").Inc()
		return
	}
	d.wg.Add(1)
	d.mu.RUnlock()

	go func() {
		defer d.wg.Done()

		if err := d.sem.Acquire(d.baseCtx, 1); err != nil {
			d.logger.Warn("Task dropped", zap.String("task", name), zap.Error(err))
			return
		}
		defer d.sem.Release(1)

		ctx, cancel := context.WithTimeout(d.baseCtx, d.timeout)
		defer cancel()

		if err := d.run(ctx, task); err != nil {
			d.logger.Error("Background task failed",
				zap.String("task", name),
				zap.String("kind", apperr.Kind(err)),
				zap.Error(err))
		}
	}()
}

func (d *Dispatcher) run(ctx context.Context, task func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return task(ctx)
}

// Wait blocks until every submitted task has finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Stop rejects new tasks and waits for running ones until ctx is done, at
// which point the remaining tasks are cancelled.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
