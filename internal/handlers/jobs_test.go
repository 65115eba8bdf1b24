package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"recall-ai/internal/storage"
)

func seedJob(t *testing.T, env *testEnv, userID string) *storage.ProcessingJob {
	t.Helper()
	job := &storage.ProcessingJob{
		ID:                       uuid.NewString(),
		UserID:                   userID,
		JobType:                  "aggregation",
		Status:                   storage.JobStatusQueued,
		CurrentPhase:             storage.PhaseInitialization,
		EstimatedDurationSeconds: 9,
	}
	if err := env.jobRepo.Create(context.Background(), job); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return job
}

func TestJobsHandler_Get_NotFound(t *testing.T) {
	env := newTestEnv(t)
	handler := NewJobsHandler(env.jobs)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/missing", nil)
	req.Header.Set(userIDHeader, testUserID)
	req = withJobID(req, "missing")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Get() status = %v, want %v", w.Code, http.StatusNotFound)
	}
}

func TestJobsHandler_Get_OtherUsersJobIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	handler := NewJobsHandler(env.jobs)
	job := seedJob(t, env, "someone-else")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID, nil)
	req.Header.Set(userIDHeader, testUserID)
	req = withJobID(req, job.ID)
	w := httptest.NewRecorder()

	handler.Get(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Get() status = %v, want %v", w.Code, http.StatusNotFound)
	}
}

func TestJobsHandler_Get_HidesResultUntilCompleted(t *testing.T) {
	env := newTestEnv(t)
	handler := NewJobsHandler(env.jobs)
	job := seedJob(t, env, testUserID)

	if err := env.jobRepo.UpdatePhase(context.Background(), job.ID, storage.JobStatusProcessing, storage.PhaseMap, 0.4); err != nil {
		t.Fatalf("UpdatePhase() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID, nil)
	req.Header.Set(userIDHeader, testUserID)
	req = withJobID(req, job.ID)
	w := httptest.NewRecorder()

	handler.Get(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Get() status = %v, want %v", w.Code, http.StatusOK)
	}
	body := decodeBody(t, w)
	if body["status"] != storage.JobStatusProcessing {
		t.Errorf("Get() status field = %v, want processing", body["status"])
	}
	if body["current_phase"] != storage.PhaseMap {
		t.Errorf("Get() current_phase = %v, want map", body["current_phase"])
	}
	if _, ok := body["result"]; ok {
		t.Error("Get() should omit result while processing")
	}
	if _, ok := body["error_message"]; ok {
		t.Error("Get() should omit error_message while processing")
	}
}

func TestJobsHandler_Get_CompletedJobCarriesResult(t *testing.T) {
	env := newTestEnv(t)
	handler := NewJobsHandler(env.jobs)
	job := seedJob(t, env, testUserID)

	result := map[string]any{"answer": "Total: $350.75", "confidence": 0.95}
	details := map[string]any{"summary": map[string]any{"total": 350.75}}
	if err := env.jobRepo.MarkCompleted(context.Background(), job.ID, result, details, 4.2); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID, nil)
	req.Header.Set(userIDHeader, testUserID)
	req = withJobID(req, job.ID)
	w := httptest.NewRecorder()

	handler.Get(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Get() status = %v, want %v", w.Code, http.StatusOK)
	}
	body := decodeBody(t, w)
	if body["status"] != storage.JobStatusCompleted {
		t.Errorf("Get() status field = %v, want completed", body["status"])
	}
	gotResult, _ := body["result"].(map[string]any)
	if gotResult["answer"] != "Total: $350.75" {
		t.Errorf("Get() result = %v, want answer field", body["result"])
	}
	if body["actual_duration_seconds"] != 4.2 {
		t.Errorf("Get() actual_duration_seconds = %v, want 4.2", body["actual_duration_seconds"])
	}
	if body["completed_at"] == nil {
		t.Error("Get() completed_at should be set")
	}
}

func TestJobsHandler_Get_FailedJobCarriesError(t *testing.T) {
	env := newTestEnv(t)
	handler := NewJobsHandler(env.jobs)
	job := seedJob(t, env, testUserID)

	if err := env.jobRepo.MarkFailed(context.Background(), job.ID, "all batches failed", map[string]any{"phase": storage.PhaseMap}); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID, nil)
	req.Header.Set(userIDHeader, testUserID)
	req = withJobID(req, job.ID)
	w := httptest.NewRecorder()

	handler.Get(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Get() status = %v, want %v", w.Code, http.StatusOK)
	}
	body := decodeBody(t, w)
	if body["error_message"] != "all batches failed" {
		t.Errorf("Get() error_message = %v, want all batches failed", body["error_message"])
	}
	if _, ok := body["result"]; ok {
		t.Error("Get() should omit result on failed jobs")
	}
}

func TestJobsHandler_List(t *testing.T) {
	env := newTestEnv(t)
	handler := NewJobsHandler(env.jobs)
	seedJob(t, env, testUserID)
	seedJob(t, env, testUserID)
	seedJob(t, env, "someone-else")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs?limit=10", nil)
	req.Header.Set(userIDHeader, testUserID)
	w := httptest.NewRecorder()

	handler.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("List() status = %v, want %v", w.Code, http.StatusOK)
	}
	body := decodeBody(t, w)
	if body["count"] != float64(2) {
		t.Errorf("List() count = %v, want 2", body["count"])
	}
}

func TestJobsHandler_Cancel(t *testing.T) {
	env := newTestEnv(t)
	handler := NewJobsHandler(env.jobs)
	job := seedJob(t, env, testUserID)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/jobs/"+job.ID, nil)
	req.Header.Set(userIDHeader, testUserID)
	req = withJobID(req, job.ID)
	w := httptest.NewRecorder()

	handler.Cancel(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Cancel() status = %v, want %v", w.Code, http.StatusOK)
	}
	body := decodeBody(t, w)
	if body["status"] != storage.JobStatusCancelled {
		t.Errorf("Cancel() status field = %v, want cancelled", body["status"])
	}

	got, err := env.jobRepo.GetByID(context.Background(), testUserID, job.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != storage.JobStatusCancelled {
		t.Errorf("job status after cancel = %v, want cancelled", got.Status)
	}
}

func TestJobsHandler_Cancel_TerminalJob(t *testing.T) {
	env := newTestEnv(t)
	handler := NewJobsHandler(env.jobs)
	job := seedJob(t, env, testUserID)

	if err := env.jobRepo.MarkCompleted(context.Background(), job.ID, map[string]any{"answer": "done"}, nil, 1); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/jobs/"+job.ID, nil)
	req.Header.Set(userIDHeader, testUserID)
	req = withJobID(req, job.ID)
	w := httptest.NewRecorder()

	handler.Cancel(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Cancel() status = %v, want %v", w.Code, http.StatusBadRequest)
	}
}
