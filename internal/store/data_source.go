package store

import (
	"context"
	"errors"

	"github.com/dataforge/dataset-pipeline/internal/store/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DataSource interface {
	Create(ctx context.Context, source model.DataSource) (*model.DataSource, error)
	Get(ctx context.Context, id uuid.UUID) (*model.DataSource, error)
	List(ctx context.Context, filter *DataSourceQueryFilter) (model.DataSourceList, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.DataSourceStatus, fileSize int64) (*model.DataSource, error)
}

type DataSourceStore struct {
	db *gorm.DB
}

// Make sure we conform to DataSource interface
var _ DataSource = (*DataSourceStore)(nil)

func NewDataSourceStore(db *gorm.DB) DataSource {
	return &DataSourceStore{db: db}
}

func (d *DataSourceStore) Create(ctx context.Context, source model.DataSource) (*model.DataSource, error) {
	if source.ID == uuid.Nil {
		source.ID = uuid.New()
	}
	result := d.getDB(ctx).Clauses(clause.Returning{}).Create(&source)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, result.Error
	}
	return &source, nil
}

func (d *DataSourceStore) Get(ctx context.Context, id uuid.UUID) (*model.DataSource, error) {
	var source model.DataSource
	result := d.getDB(ctx).First(&source, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &source, nil
}

func (d *DataSourceStore) List(ctx context.Context, filter *DataSourceQueryFilter) (model.DataSourceList, error) {
	var sources model.DataSourceList
	tx := d.getDB(ctx).Model(&sources).Order("created_at DESC")

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}

	if result := tx.Find(&sources); result.Error != nil {
		return nil, result.Error
	}
	return sources, nil
}

func (d *DataSourceStore) UpdateStatus(ctx context.Context, id uuid.UUID, status model.DataSourceStatus, fileSize int64) (*model.DataSource, error) {
	result := d.getDB(ctx).Model(&model.DataSource{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "file_size": fileSize})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrRecordNotFound
	}
	return d.Get(ctx, id)
}

func (d *DataSourceStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return d.db.WithContext(ctx)
}
