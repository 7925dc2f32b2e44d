package delivery

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Dispatcher runs side-effect jobs on a bounded worker pool. Submitting
// never blocks: when the queue is full the job is dropped and logged.
type Dispatcher struct {
	jobs    chan func(context.Context)
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(workers, queue int, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{
		jobs:    make(chan func(context.Context), queue),
		timeout: timeout,
		logger:  logger,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for job := range d.jobs {
		d.run(job)
	}
}

func (d *Dispatcher) run(job func(context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Dispatch job panicked", zap.Any("panic", r))
		}
	}()
	job(ctx)
}

// Go queues job. It reports false when the job was dropped.
func (d *Dispatcher) Go(job func(context.Context)) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.jobs <- job:
		return true
	default:
		d.logger.Warn("Dispatch queue full, dropping job")
		return false
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	d.wg.Wait()
}
