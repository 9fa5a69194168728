package jobs

import (
	"context"
	"errors"
	"log/slog"
)

const (
	JobPayrollRun = "payroll_run"

	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var ErrQueueFull = errors.New("job queue full")

// RunStore persists job_runs rows so operators can poll background work.
type RunStore interface {
	CreateJobRun(ctx context.Context, jobType string) (string, error)
	UpdateJobRun(ctx context.Context, runID, status string, details any) error
}

type RunFunc func(context.Context) (any, error)

type Service struct {
	store  RunStore
	logger *slog.Logger
	queue  chan job
}

type job struct {
	ID   string
	Type string
	Run  RunFunc
}

func New(store RunStore, logger *slog.Logger, size int) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if size <= 0 {
		size = 128
	}
	return &Service{
		store:  store,
		logger: logger,
		queue:  make(chan job, size),
	}
}

// Start launches workers goroutines draining the queue until ctx is done.
func (s *Service) Start(ctx context.Context, workers int) {
	workers = max(workers, 1)
	for range workers {
		go s.worker(ctx)
	}
}

// Enqueue records a running job and hands it to the background workers. The
// returned id can be polled through the job_runs table.
func (s *Service) Enqueue(ctx context.Context, jobType string, run RunFunc) (string, error) {
	runID, err := s.store.CreateJobRun(ctx, jobType)
	if err != nil {
		return "", err
	}
	select {
	case s.queue <- job{ID: runID, Type: jobType, Run: run}:
		return runID, nil
	default:
		s.logger.Warn("job queue full", "jobType", jobType)
		s.finish(ctx, runID, StatusFailed, map[string]string{"error": ErrQueueFull.Error()})
		return "", ErrQueueFull
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run RunFunc) (any, error) {
	runID, err := s.store.CreateJobRun(ctx, jobType)
	if err != nil {
		s.logger.Warn("job run insert failed", "jobType", jobType, "err", err)
	}
	return s.runJob(ctx, job{ID: runID, Type: jobType, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				s.logger.Warn("job run failed", "jobType", j.Type, "jobId", j.ID, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	details, err := j.Run(ctx)
	status := StatusCompleted
	if err != nil {
		status = StatusFailed
		details = map[string]any{"error": err.Error(), "result": details}
	}
	if j.ID != "" {
		s.finish(ctx, j.ID, status, details)
	}
	return details, err
}

func (s *Service) finish(ctx context.Context, runID, status string, details any) {
	if err := s.store.UpdateJobRun(context.WithoutCancel(ctx), runID, status, details); err != nil {
		s.logger.Warn("job run update failed", "jobId", runID, "err", err)
	}
}
