package service

import (
	"context"
	"errors"
	"path"
	"time"

	"github.com/dataforge/dataset-pipeline/internal/blob"
	"github.com/dataforge/dataset-pipeline/internal/codec"
	"github.com/dataforge/dataset-pipeline/internal/service/mappers"
	"github.com/dataforge/dataset-pipeline/internal/store"
	"github.com/dataforge/dataset-pipeline/internal/store/model"
	"github.com/dataforge/dataset-pipeline/pkg/log"
	"github.com/google/uuid"
)

const sourceKeyPrefix = "sources"

// inputFormats are the formats a data source can be declared with.
var inputFormats = []string{string(codec.FormatCSV), string(codec.FormatJSON), string(codec.FormatJSONL), string(codec.FormatXLSX)}

type DataSourceService struct {
	store      store.Store
	blob       blob.Store
	presignTTL time.Duration
	now        func() time.Time
	logger     *log.StructuredLogger
}

func NewDataSourceService(store store.Store, blobStore blob.Store, presignTTL time.Duration) *DataSourceService {
	return &DataSourceService{
		store:      store,
		blob:       blobStore,
		presignTTL: presignTTL,
		now:        time.Now,
		logger:     log.NewDebugLogger("data_source_service"),
	}
}

type UploadTicket struct {
	DataSource *model.DataSource
	UploadURL  string
	ExpiresAt  time.Time
}

// CreateUploadURL registers a data source in uploading status and returns a
// presigned URL the client uploads the file to.
func (s *DataSourceService) CreateUploadURL(ctx context.Context, form mappers.DataSourceCreateForm) (*UploadTicket, error) {
	tracer := s.logger.WithContext(ctx).
		Operation("create_data_source").
		WithString("project_id", form.ProjectID).
		WithString("format", form.Format).
		Build()

	format, err := codec.ParseFormat(form.Format)
	if err != nil {
		return nil, NewErrUnsupportedFormat(form.Format, inputFormats)
	}
	form.Format = string(format)

	id := uuid.New()
	key := path.Join(sourceKeyPrefix, form.ProjectID, id.String()+"."+format.Extension())

	ctx, err = s.store.NewTransactionContext(ctx)
	if err != nil {
		return nil, err
	}

	source, err := s.store.DataSource().Create(ctx, form.ToDataSource(id, key))
	if err != nil {
		_, _ = store.Rollback(ctx)
		tracer.Error(err).Log()
		return nil, err
	}

	url, err := s.blob.PresignUpload(ctx, key, codec.ContentType(format), s.presignTTL)
	if err != nil {
		_, _ = store.Rollback(ctx)
		tracer.Error(err).Log()
		return nil, err
	}

	if _, err := store.Commit(ctx); err != nil {
		return nil, err
	}

	tracer.Success().WithUUID("data_source_id", source.ID).WithString("storage_key", key).Log()
	return &UploadTicket{DataSource: source, UploadURL: url, ExpiresAt: s.now().Add(s.presignTTL)}, nil
}

// MarkReady checks the uploaded object and flips the data source to ready.
func (s *DataSourceService) MarkReady(ctx context.Context, id uuid.UUID) (*model.DataSource, error) {
	tracer := s.logger.WithContext(ctx).Operation("mark_data_source_ready").WithUUID("data_source_id", id).Build()

	source, err := s.GetDataSource(ctx, id)
	if err != nil {
		return nil, err
	}
	if source.IsReady() {
		return source, nil
	}

	data, err := s.blob.Fetch(ctx, source.StorageKey)
	if err != nil {
		if errors.Is(err, blob.ErrObjectNotFound) {
			return nil, NewErrDataSourceNotReady(id, "upload missing")
		}
		tracer.Error(err).Log()
		return nil, err
	}

	updated, err := s.store.DataSource().UpdateStatus(ctx, id, model.DataSourceStatusReady, int64(len(data)))
	if err != nil {
		tracer.Error(err).Log()
		return nil, err
	}

	tracer.Success().WithInt64("file_size", updated.FileSize).Log()
	return updated, nil
}

func (s *DataSourceService) GetDataSource(ctx context.Context, id uuid.UUID) (*model.DataSource, error) {
	source, err := s.store.DataSource().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrDataSourceNotFound(id)
		}
		return nil, err
	}
	return source, nil
}

func (s *DataSourceService) ListDataSources(ctx context.Context, projectID string) (model.DataSourceList, error) {
	return s.store.DataSource().List(ctx, store.NewDataSourceQueryFilter().ByProjectID(projectID))
}
