package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"recall-ai/internal/service"
	"recall-ai/internal/storage"
)

// JobsHandler handles HTTP requests for job tracking.
type JobsHandler struct {
	jobs *service.JobService
}

// NewJobsHandler creates a new JobsHandler.
func NewJobsHandler(jobs *service.JobService) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

// JobResponse represents one job in HTTP responses. Result fields appear only
// once the job completed; error fields only once it failed.
type JobResponse struct {
	ID                       string         `json:"id"`
	JobType                  string         `json:"job_type"`
	Status                   string         `json:"status"`
	CurrentPhase             string         `json:"current_phase"`
	Progress                 float64        `json:"progress"`
	TotalItems               int            `json:"total_items"`
	ProcessedItems           int            `json:"processed_items"`
	TotalBatches             int            `json:"total_batches"`
	ProcessedBatches         int            `json:"processed_batches"`
	FailedBatches            int            `json:"failed_batches"`
	Result                   map[string]any `json:"result,omitempty"`
	AggregationDetails       map[string]any `json:"aggregation_details,omitempty"`
	ErrorMessage             string         `json:"error_message,omitempty"`
	ErrorDetails             map[string]any `json:"error_details,omitempty"`
	EstimatedDurationSeconds float64        `json:"estimated_duration_seconds"`
	ActualDurationSeconds    float64        `json:"actual_duration_seconds,omitempty"`
	StartedAt                string         `json:"started_at"`
	CompletedAt              string         `json:"completed_at,omitempty"`
}

func jobResponse(job *storage.ProcessingJob) JobResponse {
	resp := JobResponse{
		ID:                       job.ID,
		JobType:                  job.JobType,
		Status:                   job.Status,
		CurrentPhase:             job.CurrentPhase,
		Progress:                 job.Progress,
		TotalItems:               job.TotalItems,
		ProcessedItems:           job.ProcessedItems,
		TotalBatches:             job.TotalBatches,
		ProcessedBatches:         job.ProcessedBatches,
		FailedBatches:            job.FailedBatches,
		EstimatedDurationSeconds: job.EstimatedDurationSeconds,
		StartedAt:                job.StartedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}

	switch job.Status {
	case storage.JobStatusCompleted:
		resp.Result = job.Result
		resp.AggregationDetails = job.AggregationDetails
		resp.ActualDurationSeconds = job.ActualDurationSeconds
	case storage.JobStatusFailed:
		resp.ErrorMessage = job.ErrorMessage
		resp.ErrorDetails = job.ErrorDetails
	}

	if job.CompletedAt != nil {
		resp.CompletedAt = job.CompletedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}

// Get returns one job's status.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	job, err := h.jobs.GetJob(r.Context(), userID, chi.URLParam(r, "jobID"))
	if err != nil {
		handleServiceError(w, r, err, "Failed to load job")
		return
	}
	writeJSON(w, http.StatusOK, jobResponse(job))
}

// List returns the user's most recent jobs.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	jobs, err := h.jobs.ListJobs(r.Context(), userID, limit)
	if err != nil {
		handleServiceError(w, r, err, "Failed to list jobs")
		return
	}

	responses := make([]JobResponse, 0, len(jobs))
	for i := range jobs {
		responses = append(responses, jobResponse(&jobs[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  responses,
		"count": len(responses),
	})
}

// Cancel cancels a queued or processing job.
func (h *JobsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	jobID := chi.URLParam(r, "jobID")
	if err := h.jobs.CancelJob(r.Context(), userID, jobID); err != nil {
		handleServiceError(w, r, err, "Failed to cancel job")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     jobID,
		"status": storage.JobStatusCancelled,
	})
}
