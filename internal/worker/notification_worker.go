package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is one unit of deferred delivery work.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// PoolConfig sizes the pool.
type PoolConfig struct {
	Workers   int
	QueueSize int
	// Timeout bounds each job. Zero means no per-job deadline.
	Timeout time.Duration
}

// Pool runs notification deliveries on a fixed number of goroutines. Jobs
// submitted while the queue is full are dropped and logged; callers never
// block on delivery.
type Pool struct {
	cfg    PoolConfig
	jobs   chan Job
	logger *zap.Logger

	// OnResult observes every finished job. It may be nil.
	OnResult func(name string, err error)

	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
	mu        sync.RWMutex
	stopped   bool
}

// NewPool builds a pool. Call Start before submitting.
func NewPool(cfg PoolConfig, logger *zap.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		cfg:    cfg,
		jobs:   make(chan Job, cfg.QueueSize),
		logger: logger,
	}
}

// Start launches the workers. They exit once Stop drains the queue.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		for i := 0; i < p.cfg.Workers; i++ {
			p.wg.Add(1)
			go p.run(ctx)
		}
		p.logger.Info("notification workers started", zap.Int("workers", p.cfg.Workers))
	})
}

// Submit enqueues job without blocking. It reports false when the job was
// dropped.
func (p *Pool) Submit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		p.logger.Warn("notification dropped: pool stopped", zap.String("job", job.Name))
		return false
	}
	select {
	case p.jobs <- job:
		return true
	default:
		p.logger.Warn("notification dropped: queue full", zap.String("job", job.Name))
		return false
	}
}

// Stop closes the queue and waits for queued jobs to finish.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.jobs)
		p.mu.Unlock()
	})
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context) {
	defer p.wg.Done()
	for job := range p.jobs {
		p.execute(ctx, job)
	}
}

func (p *Pool) execute(ctx context.Context, job Job) {
	jobCtx := context.WithoutCancel(ctx)
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(jobCtx, p.cfg.Timeout)
		defer cancel()
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("notification job panicked", zap.String("job", job.Name), zap.Any("panic", r))
				err = errPanicked
			}
		}()
		return job.Run(jobCtx)
	}()
	if err != nil {
		p.logger.Warn("notification delivery failed", zap.String("job", job.Name), zap.Error(err))
	}
	if p.OnResult != nil {
		p.OnResult(job.Name, err)
	}
}
