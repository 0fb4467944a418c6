// Package tasks runs deferred side-effect jobs in-process. Enqueue never
// blocks the caller; each job fires in its own goroutine at (or after)
// its scheduled time. Jobs are best-effort: failures are logged, never
// retried, and a crashed process loses pending jobs.
package tasks

import (
	"context"
	"log"
	"sync"
	"time"
)

// Job is a deferred unit of work. The context is cancelled when the
// runner shuts down.
type Job func(ctx context.Context) error

// Runner schedules and executes jobs.
type Runner struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewRunner() *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{ctx: ctx, cancel: cancel}
}

// Enqueue schedules fn to run at runAt (immediately when runAt is in the
// past). It returns right away; the job outcome never reaches the
// caller.
func (r *Runner) Enqueue(name string, runAt time.Time, fn Job) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		log.Printf("[TASKS] job=%s dropped: runner closed", name)
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[TASKS] job=%s panic: %v", name, rec)
			}
		}()

		if delay := time.Until(runAt); delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-r.ctx.Done():
				log.Printf("[TASKS] job=%s cancelled before run", name)
				return
			}
		}

		if err := fn(r.ctx); err != nil {
			log.Printf("[TASKS] job=%s failed: %v", name, err)
		}
	}()
}

// Close cancels pending jobs and waits for running ones to return.
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
	r.wg.Wait()
}
