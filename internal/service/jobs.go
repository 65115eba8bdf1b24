package service

import (
	"context"
	"errors"

	"recall-ai/internal/contextutil"
	"recall-ai/internal/storage"
)

// defaultJobListLimit bounds GET /jobs when no limit is given.
const defaultJobListLimit = 20

// JobService exposes job tracking to the HTTP layer.
type JobService struct {
	jobs storage.JobStore
}

// NewJobService creates a new JobService.
func NewJobService(jobs storage.JobStore) *JobService {
	return &JobService{jobs: jobs}
}

// GetJob returns the user's job.
func (s *JobService) GetJob(ctx context.Context, userID, jobID string) (*storage.ProcessingJob, error) {
	job, err := s.jobs.GetByID(ctx, userID, jobID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, WrapError(err, "failed to load job")
	}
	return job, nil
}

// ListJobs returns the user's most recent jobs.
func (s *JobService) ListJobs(ctx context.Context, userID string, limit int) ([]storage.ProcessingJob, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultJobListLimit
	}
	jobs, err := s.jobs.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, WrapError(err, "failed to list jobs")
	}
	return jobs, nil
}

// CancelJob cancels a job that has not yet finished. Cancelling a terminal
// job is a validation error, not a conflict the client can resolve by retry.
func (s *JobService) CancelJob(ctx context.Context, userID, jobID string) error {
	logger := contextutil.LoggerFromContext(ctx)

	job, err := s.GetJob(ctx, userID, jobID)
	if err != nil {
		return err
	}
	if job.Terminal() {
		return &ValidationError{Field: "job_id", Message: "job has already finished"}
	}

	if err := s.jobs.Cancel(ctx, jobID); err != nil {
		return WrapError(err, "failed to cancel job")
	}
	logger.InfoContext(ctx, "job cancelled", "job_id", jobID, "previous_status", job.Status)
	return nil
}
