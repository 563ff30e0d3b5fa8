package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ticket-admission/monitoring"
	"ticket-admission/utils"
)

// Job is one recurring unit of background work. Run returns how many
// items it processed and how many failed; the scheduler only logs and
// measures, it never interprets the counts.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (processed, failed int, err error)
}

// Scheduler runs registered jobs on their own tickers. Every tick
// takes a distributed lease first, so multiple instances of the
// process share the work without duplicating it.
type Scheduler struct {
	lock    *LeaseLock
	monitor *monitoring.Monitor
	jobs    []Job

	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewScheduler(lock *LeaseLock, monitor *monitoring.Monitor) *Scheduler {
	return &Scheduler{
		lock:     lock,
		monitor:  monitor,
		stopChan: make(chan struct{}),
	}
}

func (s *Scheduler) Register(job Job) {
	s.jobs = append(s.jobs, job)
}

// Start launches one goroutine per registered job. Call Shutdown to
// stop them.
func (s *Scheduler) Start() {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.runLoop(job)
	}
	slog.Info("scheduler started", "jobs", len(s.jobs))
}

// Shutdown stops the tickers and waits for in-flight runs, up to the
// given timeout.
func (s *Scheduler) Shutdown(timeout time.Duration) {
	close(s.stopChan)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("scheduler stopped")
	case <-time.After(timeout):
		slog.Warn("scheduler shutdown timed out", "timeout", timeout)
	}
}

func (s *Scheduler) runLoop(job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runOnce(job)
		}
	}
}

func (s *Scheduler) runOnce(job Job) {
	ctx := context.Background()

	lease, err := s.lock.Acquire(ctx, job.Name)
	if err != nil {
		slog.Error("job lease acquisition failed", "job", job.Name, "error", err)
		return
	}
	if lease == nil {
		// another instance holds the lease this tick
		return
	}
	defer func() {
		if err := lease.Release(ctx); err != nil {
			slog.Warn("job lease release failed", "job", job.Name, "error", err)
		}
	}()

	runID, err := utils.GenerateCode(4)
	if err != nil {
		runID = "unknown"
	}
	logger := slog.With("job", job.Name, "run_id", runID)

	start := time.Now()
	logger.Info("job run started")

	defer func() {
		if r := recover(); r != nil {
			logger.Error("job run panicked", "panic", r)
		}
	}()

	processed, failed, err := job.Run(ctx)
	elapsed := time.Since(start)
	s.monitor.ObserveJobDuration(job.Name, elapsed)

	if err != nil {
		logger.Error("job run failed", "elapsed", elapsed, "error", err)
		return
	}
	logger.Info("job run finished",
		"elapsed", elapsed, "processed", processed, "failed", failed)
}
