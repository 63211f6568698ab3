package service

import (
	"context"
	"errors"

	"github.com/dataforge/dataset-pipeline/internal/service/mappers"
	"github.com/dataforge/dataset-pipeline/internal/store"
	"github.com/dataforge/dataset-pipeline/internal/store/model"
	"github.com/dataforge/dataset-pipeline/internal/transform"
	"github.com/google/uuid"
)

type SchemaMappingService struct {
	store store.Store
}

func NewSchemaMappingService(store store.Store) *SchemaMappingService {
	return &SchemaMappingService{store: store}
}

// CreateSchemaMapping validates the config before persisting it, jobs
// referencing the mapping can rely on it.
func (s *SchemaMappingService) CreateSchemaMapping(ctx context.Context, form mappers.SchemaMappingCreateForm) (*model.SchemaMapping, error) {
	if _, err := transform.New(form.Config); err != nil {
		return nil, NewErrInvalidProcessingConfig(err)
	}

	mapping, err := s.store.SchemaMapping().Create(ctx, form.ToSchemaMapping())
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, NewErrDuplicateSchemaMapping(form.Name)
		}
		return nil, err
	}
	return mapping, nil
}

func (s *SchemaMappingService) GetSchemaMapping(ctx context.Context, id uuid.UUID) (*model.SchemaMapping, error) {
	mapping, err := s.store.SchemaMapping().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrSchemaMappingNotFound(id)
		}
		return nil, err
	}
	return mapping, nil
}

func (s *SchemaMappingService) ListSchemaMappings(ctx context.Context, projectID string) (model.SchemaMappingList, error) {
	return s.store.SchemaMapping().List(ctx, store.NewSchemaMappingQueryFilter().ByProjectID(projectID))
}
