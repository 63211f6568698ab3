package v1alpha1

import (
	"net/http"

	"github.com/dataforge/dataset-pipeline/api/v1alpha1"
	"github.com/dataforge/dataset-pipeline/internal/handlers/v1alpha1/mappers"
	"github.com/dataforge/dataset-pipeline/internal/handlers/validator"
)

// (POST /api/v1/schema-mappings)
func (h *ServiceHandler) CreateSchemaMapping(w http.ResponseWriter, r *http.Request) {
	var form v1alpha1.SchemaMappingCreate
	if err := decodeAndValidate(w, r, &form, validator.NewSchemaMappingValidationRules()); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	mapping, err := h.schemaMappingSrv.CreateSchemaMapping(r.Context(), mappers.SchemaMappingFormApi(form))
	if err != nil {
		respondServiceError(w, r, err, "failed to create schema mapping")
		return
	}

	respond(w, r, http.StatusCreated, mappers.SchemaMappingToApi(*mapping))
}

// (GET /api/v1/schema-mappings/{id})
func (h *ServiceHandler) GetSchemaMapping(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	mapping, err := h.schemaMappingSrv.GetSchemaMapping(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "failed to get schema mapping")
		return
	}

	respond(w, r, http.StatusOK, mappers.SchemaMappingToApi(*mapping))
}

// (GET /api/v1/schema-mappings?projectId=)
func (h *ServiceHandler) ListSchemaMappings(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("projectId")
	if projectID == "" {
		respondError(w, r, http.StatusBadRequest, "projectId is required")
		return
	}

	mappings, err := h.schemaMappingSrv.ListSchemaMappings(r.Context(), projectID)
	if err != nil {
		respondServiceError(w, r, err, "failed to list schema mappings")
		return
	}

	respond(w, r, http.StatusOK, mappers.SchemaMappingListToApi(mappings))
}
