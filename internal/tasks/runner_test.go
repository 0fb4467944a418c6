package tasks

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestEnqueueRunsImmediateJob(t *testing.T) {
	r := NewRunner()
	done := make(chan struct{})

	r.Enqueue("now", time.Now(), func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("immediate job never ran")
	}
	r.Close()
}

func TestEnqueueDoesNotBlockCaller(t *testing.T) {
	r := NewRunner()
	defer r.Close()

	start := time.Now()
	r.Enqueue("later", time.Now().Add(time.Hour), func(ctx context.Context) error { return nil })
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("enqueue blocked on a scheduled job")
	}
}

func TestCloseCancelsScheduledJobs(t *testing.T) {
	r := NewRunner()
	var ran atomic.Bool

	r.Enqueue("far", time.Now().Add(time.Hour), func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	r.Close()

	if ran.Load() {
		t.Fatal("scheduled job ran despite cancellation")
	}

	// a runner that is closed drops new jobs instead of leaking goroutines
	r.Enqueue("late", time.Now(), func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	time.Sleep(50 * time.Millisecond)
	if ran.Load() {
		t.Fatal("job accepted after close")
	}
}

func TestPanicInJobIsRecovered(t *testing.T) {
	r := NewRunner()
	r.Enqueue("boom", time.Now(), func(ctx context.Context) error {
		panic("boom")
	})
	// Close waits for the job; the panic must not escape the goroutine
	r.Close()
}
