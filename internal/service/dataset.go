package service

import (
	"context"
	"errors"
	"time"

	"github.com/dataforge/dataset-pipeline/internal/blob"
	"github.com/dataforge/dataset-pipeline/internal/codec"
	"github.com/dataforge/dataset-pipeline/internal/store"
	"github.com/dataforge/dataset-pipeline/internal/store/model"
	"github.com/dataforge/dataset-pipeline/pkg/log"
	"github.com/google/uuid"
)

type DatasetService struct {
	store      store.Store
	blob       blob.Store
	presignTTL time.Duration
	now        func() time.Time
	logger     *log.StructuredLogger
}

func NewDatasetService(store store.Store, blobStore blob.Store, presignTTL time.Duration) *DatasetService {
	return &DatasetService{
		store:      store,
		blob:       blobStore,
		presignTTL: presignTTL,
		now:        time.Now,
		logger:     log.NewDebugLogger("dataset_service"),
	}
}

// GetDataset returns a dataset which is not deleted.
func (s *DatasetService) GetDataset(ctx context.Context, id uuid.UUID) (*model.Dataset, error) {
	dataset, err := s.store.Dataset().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrDatasetNotFound(id)
		}
		return nil, err
	}
	return dataset, nil
}

type DatasetFilter struct {
	ProjectID    string
	JobID        *int64
	DataSourceID *uuid.UUID
}

func (s *DatasetService) ListDatasets(ctx context.Context, filter DatasetFilter) (model.DatasetList, error) {
	storeFilter := store.NewDatasetQueryFilter().ByProjectID(filter.ProjectID)
	if filter.JobID != nil {
		storeFilter = storeFilter.ByJobID(*filter.JobID)
	}
	if filter.DataSourceID != nil {
		storeFilter = storeFilter.ByDataSourceID(filter.DataSourceID.String())
	}
	return s.store.Dataset().List(ctx, storeFilter)
}

// GetDownloadURL issues a presigned download URL. The file is offered as
// <name>.<format>.
func (s *DatasetService) GetDownloadURL(ctx context.Context, id uuid.UUID) (string, time.Time, error) {
	tracer := s.logger.WithContext(ctx).Operation("get_dataset_download_url").WithUUID("dataset_id", id).Build()

	dataset, err := s.GetDataset(ctx, id)
	if err != nil {
		return "", time.Time{}, err
	}

	now := s.now()
	if dataset.Expired(now) {
		return "", time.Time{}, NewErrDatasetExpired(id)
	}

	filename := dataset.Name + "." + codec.Format(dataset.Format).Extension()
	url, err := s.blob.PresignDownload(ctx, dataset.StorageKey, s.presignTTL, filename)
	if err != nil {
		tracer.Error(err).Log()
		return "", time.Time{}, err
	}

	expiresAt := now.Add(s.presignTTL)
	if dataset.ExpiresAt != nil && dataset.ExpiresAt.Before(expiresAt) {
		expiresAt = *dataset.ExpiresAt
	}

	tracer.Success().WithString("storage_key", dataset.StorageKey).Log()
	return url, expiresAt, nil
}

// DeleteDataset soft deletes the dataset. The blob is kept.
func (s *DatasetService) DeleteDataset(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Dataset().Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return NewErrDatasetNotFound(id)
		}
		return err
	}
	return nil
}
