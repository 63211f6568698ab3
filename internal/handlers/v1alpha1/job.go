package v1alpha1

import (
	"net/http"

	"github.com/dataforge/dataset-pipeline/api/v1alpha1"
	"github.com/dataforge/dataset-pipeline/internal/handlers/v1alpha1/mappers"
	"github.com/dataforge/dataset-pipeline/internal/handlers/validator"
	"github.com/dataforge/dataset-pipeline/internal/store/model"
	"github.com/dataforge/dataset-pipeline/pkg/log"
)

// (POST /api/v1/jobs)
func (h *ServiceHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("job_handler").WithContext(ctx).Operation("submit_job").Build()

	var form v1alpha1.JobCreate
	if err := decodeAndValidate(w, r, &form, validator.NewJobValidationRules()); err != nil {
		logger.Error(err).Log()
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.jobSrv.SubmitJob(ctx, mappers.JobFormApi(form))
	if err != nil {
		logger.Error(err).Log()
		respondServiceError(w, r, err, "failed to submit job")
		return
	}

	logger.Success().WithInt64("job_id", job.ID).Log()
	respond(w, r, http.StatusCreated, mappers.JobToApi(*job))
}

// (GET /api/v1/jobs?projectId=&status=)
func (h *ServiceHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("projectId")
	if projectID == "" {
		respondError(w, r, http.StatusBadRequest, "projectId is required")
		return
	}

	var statuses []model.JobStatus
	for _, s := range r.URL.Query()["status"] {
		status := model.JobStatus(s)
		switch status {
		case model.JobStatusPending, model.JobStatusProcessing, model.JobStatusCompleted, model.JobStatusFailed, model.JobStatusCancelled:
			statuses = append(statuses, status)
		default:
			respondError(w, r, http.StatusBadRequest, "unknown job status: "+s)
			return
		}
	}

	jobs, err := h.jobSrv.ListJobs(r.Context(), projectID, statuses...)
	if err != nil {
		respondServiceError(w, r, err, "failed to list jobs")
		return
	}

	respond(w, r, http.StatusOK, mappers.JobListToApi(jobs))
}

// (GET /api/v1/jobs/{id})
func (h *ServiceHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := jobIDParam(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.jobSrv.GetJob(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "failed to get job")
		return
	}

	progress, err := h.jobSrv.GetJobProgress(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "failed to get job progress")
		return
	}

	respond(w, r, http.StatusOK, mappers.JobWithProgressToApi(*job, progress))
}

// (GET /api/v1/jobs/{id}/logs)
func (h *ServiceHandler) GetJobLogs(w http.ResponseWriter, r *http.Request) {
	id, err := jobIDParam(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	lines, err := h.jobSrv.GetJobLogs(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "failed to get job logs")
		return
	}

	respond(w, r, http.StatusOK, mappers.JobLogsToApi(id, lines))
}

// (POST /api/v1/jobs/{id}/cancel)
func (h *ServiceHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id, err := jobIDParam(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	logger := log.NewDebugLogger("job_handler").WithContext(r.Context()).Operation("cancel_job").WithInt64("job_id", id).Build()

	job, err := h.jobSrv.CancelJob(r.Context(), id)
	if err != nil {
		logger.Error(err).Log()
		respondServiceError(w, r, err, "failed to cancel job")
		return
	}

	logger.Success().Log()
	respond(w, r, http.StatusAccepted, mappers.JobToApi(*job))
}
