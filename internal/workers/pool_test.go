package workers

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestPoolRunsTasks(t *testing.T) {
	pool := NewPool(2, 5, nil)
	defer pool.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	ran := 0
	for i := 0; i < 5; i++ {
		wg.Add(1)
		err := pool.Go(fmt.Sprintf("task-%d", i), func() {
			defer wg.Done()
			mu.Lock()
			ran++
			mu.Unlock()
		})
		if err != nil {
			t.Fatalf("Go failed: %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for tasks")
	}
	if ran != 5 {
		t.Errorf("ran %d tasks, want 5", ran)
	}
}

func TestPoolQueueFull(t *testing.T) {
	pool := NewPool(1, 1, nil)
	defer pool.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	if err := pool.Go("blocker", func() {
		close(started)
		<-release
	}); err != nil {
		t.Fatalf("Go failed: %v", err)
	}
	<-started

	if err := pool.Go("queued", func() {}); err != nil {
		t.Fatalf("expected queued task to be accepted: %v", err)
	}
	if err := pool.Go("overflow", func() {}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	close(release)
}

func TestPoolSurvivesPanics(t *testing.T) {
	pool := NewPool(1, 2, nil)
	defer pool.Stop()

	done := make(chan struct{})
	pool.Go("panics", func() { panic("boom") })
	pool.Go("after", func() { close(done) })

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not survive a panicking task")
	}
}

func TestStoppedPoolRejects(t *testing.T) {
	pool := NewPool(1, 1, nil)
	pool.Stop()
	pool.Stop()
	if err := pool.Go("late", func() {}); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("expected ErrPoolStopped, got %v", err)
	}
}

func TestInline(t *testing.T) {
	ran := false
	Inline.Go("x", func() { ran = true })
	if !ran {
		t.Error("Inline did not run the job synchronously")
	}
}
