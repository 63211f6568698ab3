package store

import (
	"context"
	"errors"

	"github.com/dataforge/dataset-pipeline/internal/store/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SchemaMapping interface {
	Create(ctx context.Context, mapping model.SchemaMapping) (*model.SchemaMapping, error)
	Get(ctx context.Context, id uuid.UUID) (*model.SchemaMapping, error)
	List(ctx context.Context, filter *SchemaMappingQueryFilter) (model.SchemaMappingList, error)
}

type SchemaMappingStore struct {
	db *gorm.DB
}

// Make sure we conform to SchemaMapping interface
var _ SchemaMapping = (*SchemaMappingStore)(nil)

func NewSchemaMappingStore(db *gorm.DB) SchemaMapping {
	return &SchemaMappingStore{db: db}
}

func (s *SchemaMappingStore) Create(ctx context.Context, mapping model.SchemaMapping) (*model.SchemaMapping, error) {
	if mapping.ID == uuid.Nil {
		mapping.ID = uuid.New()
	}
	result := s.getDB(ctx).Clauses(clause.Returning{}).Create(&mapping)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, result.Error
	}
	return &mapping, nil
}

func (s *SchemaMappingStore) Get(ctx context.Context, id uuid.UUID) (*model.SchemaMapping, error) {
	var mapping model.SchemaMapping
	result := s.getDB(ctx).First(&mapping, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &mapping, nil
}

func (s *SchemaMappingStore) List(ctx context.Context, filter *SchemaMappingQueryFilter) (model.SchemaMappingList, error) {
	var mappings model.SchemaMappingList
	tx := s.getDB(ctx).Model(&mappings).Order("name")

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}

	if result := tx.Find(&mappings); result.Error != nil {
		return nil, result.Error
	}
	return mappings, nil
}

func (s *SchemaMappingStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}
