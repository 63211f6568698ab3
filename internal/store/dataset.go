package store

import (
	"context"
	"errors"

	"github.com/dataforge/dataset-pipeline/internal/store/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Dataset interface {
	Create(ctx context.Context, dataset model.Dataset) (*model.Dataset, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Dataset, error)
	List(ctx context.Context, filter *DatasetQueryFilter) (model.DatasetList, error)
	// Delete is a soft delete: the row stays with deleted_at set.
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}

type DatasetStore struct {
	db *gorm.DB
}

// Make sure we conform to Dataset interface
var _ Dataset = (*DatasetStore)(nil)

func NewDatasetStore(db *gorm.DB) Dataset {
	return &DatasetStore{db: db}
}

func (d *DatasetStore) Create(ctx context.Context, dataset model.Dataset) (*model.Dataset, error) {
	if dataset.ID == uuid.Nil {
		dataset.ID = uuid.New()
	}
	result := d.getDB(ctx).Clauses(clause.Returning{}).Create(&dataset)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, result.Error
	}
	return &dataset, nil
}

func (d *DatasetStore) Get(ctx context.Context, id uuid.UUID) (*model.Dataset, error) {
	var dataset model.Dataset
	result := d.getDB(ctx).First(&dataset, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &dataset, nil
}

func (d *DatasetStore) List(ctx context.Context, filter *DatasetQueryFilter) (model.DatasetList, error) {
	var datasets model.DatasetList
	tx := d.getDB(ctx).Model(&datasets).Order("created_at DESC")

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}

	if result := tx.Find(&datasets); result.Error != nil {
		return nil, result.Error
	}
	return datasets, nil
}

func (d *DatasetStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := d.getDB(ctx).Delete(&model.Dataset{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (d *DatasetStore) Count(ctx context.Context) (int64, error) {
	var total int64
	if result := d.getDB(ctx).Model(&model.Dataset{}).Count(&total); result.Error != nil {
		return 0, result.Error
	}
	return total, nil
}

func (d *DatasetStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return d.db.WithContext(ctx)
}
