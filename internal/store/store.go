package store

import (
	"context"

	"github.com/dataforge/dataset-pipeline/internal/store/model"
	"gorm.io/gorm"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Job() Job
	Dataset() Dataset
	DataSource() DataSource
	SchemaMapping() SchemaMapping
	// AutoMigrate creates the schema from the models. Postgres deployments
	// run the SQL migrations instead.
	AutoMigrate() error
	Close() error
}

type DataStore struct {
	db            *gorm.DB
	job           Job
	dataset       Dataset
	dataSource    DataSource
	schemaMapping SchemaMapping
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		job:           NewJobStore(db),
		dataset:       NewDatasetStore(db),
		dataSource:    NewDataSourceStore(db),
		schemaMapping: NewSchemaMappingStore(db),
		db:            db,
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Job() Job {
	return s.job
}

func (s *DataStore) Dataset() Dataset {
	return s.dataset
}

func (s *DataStore) DataSource() DataSource {
	return s.dataSource
}

func (s *DataStore) SchemaMapping() SchemaMapping {
	return s.schemaMapping
}

func (s *DataStore) AutoMigrate() error {
	return s.db.AutoMigrate(
		&model.DataSource{},
		&model.SchemaMapping{},
		&model.ProcessingJob{},
		&model.Dataset{},
	)
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
