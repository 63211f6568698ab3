package v1alpha1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dataforge/dataset-pipeline/api/v1alpha1"
	"github.com/dataforge/dataset-pipeline/internal/handlers/validator"
	"github.com/dataforge/dataset-pipeline/internal/service"
	"github.com/dataforge/dataset-pipeline/pkg/requestid"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 1 << 20

type ServiceHandler struct {
	jobSrv           *service.JobService
	dataSourceSrv    *service.DataSourceService
	schemaMappingSrv *service.SchemaMappingService
	datasetSrv       *service.DatasetService
	previewSrv       *service.PreviewService
}

func NewServiceHandler(
	jobService *service.JobService,
	dataSourceService *service.DataSourceService,
	schemaMappingService *service.SchemaMappingService,
	datasetService *service.DatasetService,
	previewService *service.PreviewService,
) *ServiceHandler {
	return &ServiceHandler{
		jobSrv:           jobService,
		dataSourceSrv:    dataSourceService,
		schemaMappingSrv: schemaMappingService,
		datasetSrv:       datasetService,
		previewSrv:       previewService,
	}
}

// Routes registers the /api/v1 endpoints on r.
func (h *ServiceHandler) Routes(r chi.Router) {
	r.Get("/info", h.GetInfo)

	r.Route("/data-sources", func(r chi.Router) {
		r.Get("/", h.ListDataSources)
		r.Post("/", h.CreateDataSource)
		r.Get("/{id}", h.GetDataSource)
		r.Post("/{id}/ready", h.MarkDataSourceReady)
	})

	r.Route("/schema-mappings", func(r chi.Router) {
		r.Get("/", h.ListSchemaMappings)
		r.Post("/", h.CreateSchemaMapping)
		r.Get("/{id}", h.GetSchemaMapping)
	})

	r.Route("/jobs", func(r chi.Router) {
		r.Get("/", h.ListJobs)
		r.Post("/", h.SubmitJob)
		r.Get("/{id}", h.GetJob)
		r.Get("/{id}/logs", h.GetJobLogs)
		r.Post("/{id}/cancel", h.CancelJob)
	})

	r.Route("/datasets", func(r chi.Router) {
		r.Get("/", h.ListDatasets)
		r.Get("/{id}", h.GetDataset)
		r.Get("/{id}/download-url", h.GetDatasetDownloadURL)
		r.Delete("/{id}", h.DeleteDataset)
	})

	r.Post("/pii/preview", h.PreviewPII)
}

func respond(w http.ResponseWriter, r *http.Request, status int, body any) {
	render.Status(r, status)
	render.JSON(w, r, body)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respond(w, r, status, v1alpha1.Error{Message: message, RequestId: requestid.FromContextPtr(r.Context())})
}

// respondServiceError maps the service error types to a status code.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch err.(type) {
	case *service.ErrResourceNotFound:
		respondError(w, r, http.StatusNotFound, err.Error())
	case *service.ErrInvalidProcessingConfig, *service.ErrUnsupportedFormat, *service.ErrDataSourceNotReady:
		respondError(w, r, http.StatusBadRequest, err.Error())
	case *service.ErrJobNotCancellable, *service.ErrDuplicateResource:
		respondError(w, r, http.StatusConflict, err.Error())
	case *service.ErrDatasetExpired:
		respondError(w, r, http.StatusGone, err.Error())
	default:
		respondError(w, r, http.StatusInternalServerError, fallback+": "+err.Error())
	}
}

// decodeAndValidate reads a JSON body into form and checks it against rules.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, form any, rules []validator.ValidationRule) error {
	if r.Body == nil || r.ContentLength == 0 {
		return errors.New("empty body")
	}
	if err := render.DecodeJSON(http.MaxBytesReader(w, r.Body, maxBodySize), form); err != nil {
		return errors.New("malformed body: " + err.Error())
	}

	v := validator.NewValidator()
	v.Register(rules...)
	return v.Struct(form)
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errors.New("invalid id: " + chi.URLParam(r, name))
	}
	return id, nil
}

func jobIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid job id: " + chi.URLParam(r, "id"))
	}
	return id, nil
}
