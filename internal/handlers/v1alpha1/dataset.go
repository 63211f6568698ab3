package v1alpha1

import (
	"net/http"
	"strconv"

	"github.com/dataforge/dataset-pipeline/internal/handlers/v1alpha1/mappers"
	"github.com/dataforge/dataset-pipeline/internal/service"
	"github.com/dataforge/dataset-pipeline/pkg/log"
	"github.com/google/uuid"
)

// (GET /api/v1/datasets?projectId=&jobId=&dataSourceId=)
func (h *ServiceHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := service.DatasetFilter{ProjectID: query.Get("projectId")}
	if filter.ProjectID == "" {
		respondError(w, r, http.StatusBadRequest, "projectId is required")
		return
	}

	if v := query.Get("jobId"); v != "" {
		jobID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "invalid jobId: "+v)
			return
		}
		filter.JobID = &jobID
	}
	if v := query.Get("dataSourceId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "invalid dataSourceId: "+v)
			return
		}
		filter.DataSourceID = &id
	}

	datasets, err := h.datasetSrv.ListDatasets(r.Context(), filter)
	if err != nil {
		respondServiceError(w, r, err, "failed to list datasets")
		return
	}

	respond(w, r, http.StatusOK, mappers.DatasetListToApi(datasets))
}

// (GET /api/v1/datasets/{id})
func (h *ServiceHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	dataset, err := h.datasetSrv.GetDataset(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "failed to get dataset")
		return
	}

	respond(w, r, http.StatusOK, mappers.DatasetToApi(*dataset))
}

// (GET /api/v1/datasets/{id}/download-url)
func (h *ServiceHandler) GetDatasetDownloadURL(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	url, expiresAt, err := h.datasetSrv.GetDownloadURL(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "failed to create download url")
		return
	}

	respond(w, r, http.StatusOK, mappers.DownloadUrlToApi(url, expiresAt))
}

// (DELETE /api/v1/datasets/{id})
func (h *ServiceHandler) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	logger := log.NewDebugLogger("dataset_handler").WithContext(r.Context()).Operation("delete_dataset").WithUUID("dataset_id", id).Build()

	if err := h.datasetSrv.DeleteDataset(r.Context(), id); err != nil {
		logger.Error(err).Log()
		respondServiceError(w, r, err, "failed to delete dataset")
		return
	}

	logger.Success().Log()
	w.WriteHeader(http.StatusNoContent)
}
