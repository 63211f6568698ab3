package v1alpha1

import (
	"net/http"

	"github.com/dataforge/dataset-pipeline/api/v1alpha1"
	"github.com/dataforge/dataset-pipeline/internal/handlers/v1alpha1/mappers"
	"github.com/dataforge/dataset-pipeline/internal/handlers/validator"
)

// (POST /api/v1/pii/preview)
func (h *ServiceHandler) PreviewPII(w http.ResponseWriter, r *http.Request) {
	var form v1alpha1.PiiPreviewRequest
	if err := decodeAndValidate(w, r, &form, validator.NewPreviewValidationRules()); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.previewSrv.Preview(form.Text, mappers.PreviewOptionsApi(form))
	if err != nil {
		respondServiceError(w, r, err, "failed to preview")
		return
	}

	respond(w, r, http.StatusOK, mappers.PreviewToApi(*result))
}
