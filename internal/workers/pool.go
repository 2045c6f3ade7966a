// Package workers runs background jobs on a bounded pool of goroutines
package workers

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Common errors
var (
	ErrQueueFull   = errors.New("worker queue is full")
	ErrPoolStopped = errors.New("worker pool is stopped")
)

// Task is a queued job
type Task struct {
	ID        string
	Run       func()
	Timestamp time.Time
}

// Pool manages a fixed set of worker goroutines fed from a bounded queue
type Pool struct {
	tasks   chan *Task
	workers int
	wg      sync.WaitGroup
	quit    chan struct{}
	active  map[string]*Task
	mu      sync.RWMutex
	stopped bool
	log     *zap.SugaredLogger
}

// NewPool creates and starts a worker pool
func NewPool(workers, queueSize int, log *zap.SugaredLogger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 10
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	pool := &Pool{
		tasks:   make(chan *Task, queueSize),
		workers: workers,
		quit:    make(chan struct{}),
		active:  make(map[string]*Task),
		log:     log,
	}
	pool.start()
	return pool
}

func (p *Pool) start() {
	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.worker(i)
	}
	p.log.Infow("started worker pool", "workers", p.workers, "queue", cap(p.tasks))
}

// Stop stops the workers after their current task. Queued tasks are dropped.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	close(p.quit)
	p.wg.Wait()
	p.log.Info("worker pool stopped")
}

// Go queues fn under id. It never blocks: a full queue returns ErrQueueFull.
func (p *Pool) Go(id string, fn func()) error {
	task := &Task{ID: id, Run: fn, Timestamp: time.Now()}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrPoolStopped
	}
	p.active[task.ID] = task
	p.mu.Unlock()

	select {
	case p.tasks <- task:
		return nil
	default:
		p.mu.Lock()
		delete(p.active, task.ID)
		p.mu.Unlock()
		return ErrQueueFull
	}
}

// ActiveTasks returns the number of queued or running tasks
func (p *Pool) ActiveTasks() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.active)
}

// Stats returns the active task count and the current queue length
func (p *Pool) Stats() (int, int) {
	return p.ActiveTasks(), len(p.tasks)
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case task := <-p.tasks:
			p.log.Debugw("worker picked task", "worker", id, "task", task.ID)
			p.run(id, task)

			p.mu.Lock()
			delete(p.active, task.ID)
			p.mu.Unlock()
		case <-p.quit:
			return
		}
	}
}

func (p *Pool) run(id int, task *Task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorw("task panicked", "worker", id, "task", task.ID, "panic", r)
		}
	}()
	task.Run()
}

// Executor runs a job in the background
type Executor interface {
	Go(id string, fn func()) error
}

// ExecutorFunc adapts a function to Executor
type ExecutorFunc func(id string, fn func()) error

// Go calls f(id, fn)
func (f ExecutorFunc) Go(id string, fn func()) error {
	return f(id, fn)
}

// Inline runs every job synchronously on the caller's goroutine
var Inline Executor = ExecutorFunc(func(_ string, fn func()) error {
	fn()
	return nil
})

// Spawn starts a new goroutine per job
var Spawn Executor = ExecutorFunc(func(_ string, fn func()) error {
	go fn()
	return nil
})
