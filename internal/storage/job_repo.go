package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_job_store.go -package=mocks recall-ai/internal/storage JobStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// JobStore defines the interface for processing job persistence. Updates are
// partial by design: the orchestrator's progress writes must never clobber
// fields written by other phases.
type JobStore interface {
	// Create inserts a new job row. The job.ID must be set (UUID).
	Create(ctx context.Context, job *ProcessingJob) error
	// GetByID returns the user's job, or ErrNotFound.
	GetByID(ctx context.Context, userID, jobID string) (*ProcessingJob, error)
	// ListByUser returns the user's most recent jobs, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]ProcessingJob, error)
	// UpdatePhase sets the job's status, phase and progress.
	UpdatePhase(ctx context.Context, jobID, status, phase string, progress float64) error
	// UpdateProgress writes only progress and batch/item counters.
	UpdateProgress(ctx context.Context, jobID string, progress float64, processedItems, processedBatches, failedBatches int) error
	// SetTotals writes the batch/item totals computed during initialization.
	SetTotals(ctx context.Context, jobID string, totalItems, totalBatches int) error
	// MarkCompleted transitions the job to completed with its result payload.
	MarkCompleted(ctx context.Context, jobID string, result, aggregationDetails map[string]any, actualSeconds float64) error
	// MarkFailed transitions the job to failed with an error message and details.
	MarkFailed(ctx context.Context, jobID, errorMessage string, errorDetails map[string]any) error
	// Cancel transitions the job to cancelled.
	Cancel(ctx context.Context, jobID string) error
}

// JobRepo provides methods for processing job operations.
// It implements the JobStore interface.
type JobRepo struct {
	db *sql.DB
}

// NewJobRepo creates a new JobRepo.
func NewJobRepo(db *sql.DB) *JobRepo {
	return &JobRepo{db: db}
}

// Create inserts a new job row. The job.ID must be set (UUID).
func (r *JobRepo) Create(ctx context.Context, job *ProcessingJob) error {
	if job.StartedAt.IsZero() {
		job.StartedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO processing_jobs
			(id, user_id, job_type, status, current_phase, progress, estimated_duration_seconds, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.UserID, job.JobType, job.Status, job.CurrentPhase,
		job.Progress, job.EstimatedDurationSeconds, job.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

// GetByID returns the user's job, or ErrNotFound.
func (r *JobRepo) GetByID(ctx context.Context, userID, jobID string) (*ProcessingJob, error) {
	row := r.db.QueryRowContext(ctx,
		jobSelectColumns+" FROM processing_jobs WHERE id = ? AND user_id = ?",
		jobID, userID,
	)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// ListByUser returns the user's most recent jobs, newest first.
func (r *JobRepo) ListByUser(ctx context.Context, userID string, limit int) ([]ProcessingJob, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx,
		jobSelectColumns+" FROM processing_jobs WHERE user_id = ? ORDER BY started_at DESC LIMIT ?",
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var jobs []ProcessingJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return jobs, nil
}

// UpdatePhase sets the job's status, phase and progress.
func (r *JobRepo) UpdatePhase(ctx context.Context, jobID, status, phase string, progress float64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE processing_jobs SET status = ?, current_phase = ?, progress = ? WHERE id = ?",
		status, phase, progress, jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to update job phase: %w", err)
	}
	return checkAffected(res)
}

// UpdateProgress writes only progress and batch/item counters.
func (r *JobRepo) UpdateProgress(ctx context.Context, jobID string, progress float64, processedItems, processedBatches, failedBatches int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE processing_jobs
		 SET progress = ?, processed_items = ?, processed_batches = ?, failed_batches = ?
		 WHERE id = ?`,
		progress, processedItems, processedBatches, failedBatches, jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return checkAffected(res)
}

// SetTotals writes the batch/item totals computed during initialization.
func (r *JobRepo) SetTotals(ctx context.Context, jobID string, totalItems, totalBatches int) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE processing_jobs SET total_items = ?, total_batches = ? WHERE id = ?",
		totalItems, totalBatches, jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to set job totals: %w", err)
	}
	return checkAffected(res)
}

// MarkCompleted transitions the job to completed with its result payload.
func (r *JobRepo) MarkCompleted(ctx context.Context, jobID string, result, aggregationDetails map[string]any, actualSeconds float64) error {
	resultJSON, err := marshalJSONColumn(result)
	if err != nil {
		return fmt.Errorf("failed to marshal job result: %w", err)
	}
	detailsJSON, err := marshalJSONColumn(aggregationDetails)
	if err != nil {
		return fmt.Errorf("failed to marshal aggregation details: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE processing_jobs
		 SET status = ?, current_phase = ?, progress = 1.0,
		     result = ?, aggregation_details = ?,
		     actual_duration_seconds = ?, completed_at = ?
		 WHERE id = ?`,
		JobStatusCompleted, PhaseComplete, resultJSON, detailsJSON,
		actualSeconds, time.Now().UTC(), jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}
	return checkAffected(res)
}

// MarkFailed transitions the job to failed with an error message and details.
func (r *JobRepo) MarkFailed(ctx context.Context, jobID, errorMessage string, errorDetails map[string]any) error {
	detailsJSON, err := marshalJSONColumn(errorDetails)
	if err != nil {
		return fmt.Errorf("failed to marshal error details: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE processing_jobs
		 SET status = ?, error_message = ?, error_details = ?, completed_at = ?
		 WHERE id = ?`,
		JobStatusFailed, errorMessage, detailsJSON, time.Now().UTC(), jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	return checkAffected(res)
}

// Cancel transitions the job to cancelled.
func (r *JobRepo) Cancel(ctx context.Context, jobID string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE processing_jobs SET status = ?, completed_at = ? WHERE id = ?",
		JobStatusCancelled, time.Now().UTC(), jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel job: %w", err)
	}
	return checkAffected(res)
}

const jobSelectColumns = `SELECT id, user_id, job_type, status, current_phase, progress,
	total_items, processed_items, total_batches, processed_batches, failed_batches,
	result, aggregation_details, error_message, error_details,
	estimated_duration_seconds, actual_duration_seconds, started_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*ProcessingJob, error) {
	var job ProcessingJob
	var result, aggregationDetails, errorDetails sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(&job.ID, &job.UserID, &job.JobType, &job.Status, &job.CurrentPhase, &job.Progress,
		&job.TotalItems, &job.ProcessedItems, &job.TotalBatches, &job.ProcessedBatches, &job.FailedBatches,
		&result, &aggregationDetails, &job.ErrorMessage, &errorDetails,
		&job.EstimatedDurationSeconds, &job.ActualDurationSeconds, &job.StartedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	if err := unmarshalJSONColumn(result, &job.Result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job result: %w", err)
	}
	if err := unmarshalJSONColumn(aggregationDetails, &job.AggregationDetails); err != nil {
		return nil, fmt.Errorf("failed to unmarshal aggregation details: %w", err)
	}
	if err := unmarshalJSONColumn(errorDetails, &job.ErrorDetails); err != nil {
		return nil, fmt.Errorf("failed to unmarshal error details: %w", err)
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	return &job, nil
}

func unmarshalJSONColumn(col sql.NullString, dest *map[string]any) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(col.String), dest)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
