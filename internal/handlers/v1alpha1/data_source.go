package v1alpha1

import (
	"net/http"

	"github.com/dataforge/dataset-pipeline/api/v1alpha1"
	"github.com/dataforge/dataset-pipeline/internal/handlers/v1alpha1/mappers"
	"github.com/dataforge/dataset-pipeline/internal/handlers/validator"
	"github.com/dataforge/dataset-pipeline/pkg/log"
)

// (POST /api/v1/data-sources)
func (h *ServiceHandler) CreateDataSource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("data_source_handler").WithContext(ctx).Operation("create_data_source").Build()

	var form v1alpha1.DataSourceCreate
	if err := decodeAndValidate(w, r, &form, validator.NewDataSourceValidationRules()); err != nil {
		logger.Error(err).Log()
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ticket, err := h.dataSourceSrv.CreateUploadURL(ctx, mappers.DataSourceFormApi(form))
	if err != nil {
		logger.Error(err).Log()
		respondServiceError(w, r, err, "failed to create data source")
		return
	}

	logger.Success().WithUUID("data_source_id", ticket.DataSource.ID).Log()
	respond(w, r, http.StatusCreated, mappers.UploadTicketToApi(*ticket))
}

// (POST /api/v1/data-sources/{id}/ready)
func (h *ServiceHandler) MarkDataSourceReady(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	source, err := h.dataSourceSrv.MarkReady(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "failed to mark data source ready")
		return
	}

	respond(w, r, http.StatusOK, mappers.DataSourceToApi(*source))
}

// (GET /api/v1/data-sources/{id})
func (h *ServiceHandler) GetDataSource(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	source, err := h.dataSourceSrv.GetDataSource(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "failed to get data source")
		return
	}

	respond(w, r, http.StatusOK, mappers.DataSourceToApi(*source))
}

// (GET /api/v1/data-sources?projectId=)
func (h *ServiceHandler) ListDataSources(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("projectId")
	if projectID == "" {
		respondError(w, r, http.StatusBadRequest, "projectId is required")
		return
	}

	sources, err := h.dataSourceSrv.ListDataSources(r.Context(), projectID)
	if err != nil {
		respondServiceError(w, r, err, "failed to list data sources")
		return
	}

	respond(w, r, http.StatusOK, mappers.DataSourceListToApi(sources))
}
