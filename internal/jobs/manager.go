package jobs

import (
	"context"
	"sync"
	"time"

	"chronos/pkg/logger"
)

// Job represents a periodic background task.
type Job interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) error
}

// AlignedJob is a job that runs at aligned time boundaries (e.g., on the hour).
type AlignedJob interface {
	Job
	AlignToInterval() bool
}

// Manager orchestrates the lifecycle of background jobs.
type Manager struct {
	ctx     context.Context
	cancel  context.CancelFunc
	jobs    []Job
	started bool
	now     func() time.Time

	mu sync.Mutex
	wg sync.WaitGroup
}

// NewManager creates a job manager bound to the provided context.
func NewManager(parent context.Context) *Manager {
	ctx, cancel := context.WithCancel(parent)
	return &Manager{
		ctx:    ctx,
		cancel: cancel,
		jobs:   make([]Job, 0),
		now:    time.Now,
	}
}

// Register adds a job to the manager. Registering after Start has no effect.
func (m *Manager) Register(job Job) {
	if job == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
}

// Jobs returns the registered job names.
func (m *Manager) Jobs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.jobs))
	for _, job := range m.jobs {
		names = append(names, job.Name())
	}
	return names
}

// Start launches all registered jobs.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	jobs := append([]Job(nil), m.jobs...)
	m.mu.Unlock()

	for _, job := range jobs {
		m.wg.Add(1)
		go m.runJob(job)
	}
}

// Stop signals all jobs to stop.
func (m *Manager) Stop() {
	m.cancel()
}

// Wait blocks until all jobs exit.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) runJob(job Job) {
	defer m.wg.Done()

	interval := job.Interval()
	if interval <= 0 {
		interval = time.Minute
	}

	alignedJob, shouldAlign := job.(AlignedJob)
	if shouldAlign && alignedJob.AlignToInterval() {
		wait := untilAligned(m.now(), interval)
		logger.InfoCtx(m.ctx, "job %s will start in %v", job.Name(), wait)

		select {
		case <-m.ctx.Done():
			return
		case <-time.After(wait):
			m.executeJob(job)
		}
	} else {
		// Run immediately once.
		m.executeJob(job)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.executeJob(job)
		}
	}
}

// untilAligned returns the wait until the next multiple of interval.
func untilAligned(now time.Time, interval time.Duration) time.Duration {
	next := now.Truncate(interval).Add(interval)
	return next.Sub(now)
}

func (m *Manager) executeJob(job Job) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(m.ctx, "background job %s panicked: %v", job.Name(), r)
		}
	}()
	if err := job.Run(m.ctx); err != nil {
		logger.WarnCtx(m.ctx, "background job %s failed: %v", job.Name(), err)
	}
}
