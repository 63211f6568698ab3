package mappers

import (
	"github.com/dataforge/dataset-pipeline/internal/store/model"
	"github.com/dataforge/dataset-pipeline/internal/transform"
	"github.com/google/uuid"
)

type JobSubmitForm struct {
	ProjectID       string
	DataSourceID    uuid.UUID
	SchemaMappingID *uuid.UUID
	OutputFormat    string
	OutputName      string
	// Config is used when no schema mapping is referenced.
	Config *transform.Config
}

func (f JobSubmitForm) ToJob(cfg *transform.Config) model.ProcessingJob {
	return model.ProcessingJob{
		ProjectID:       f.ProjectID,
		DataSourceID:    f.DataSourceID,
		SchemaMappingID: f.SchemaMappingID,
		Status:          model.JobStatusPending,
		Stage:           "queued",
		OutputFormat:    string(cfg.OutputFormat),
		OutputName:      f.OutputName,
		Config:          cfg,
	}
}

type DataSourceCreateForm struct {
	ProjectID string
	Name      string
	Format    string
}

func (f DataSourceCreateForm) ToDataSource(id uuid.UUID, storageKey string) model.DataSource {
	return model.DataSource{
		ID:         id,
		ProjectID:  f.ProjectID,
		Name:       f.Name,
		Format:     f.Format,
		StorageKey: storageKey,
		Status:     model.DataSourceStatusUploading,
	}
}

type SchemaMappingCreateForm struct {
	ProjectID string
	Name      string
	Config    *transform.Config
}

func (f SchemaMappingCreateForm) ToSchemaMapping() model.SchemaMapping {
	return model.SchemaMapping{
		ID:        uuid.New(),
		ProjectID: f.ProjectID,
		Name:      f.Name,
		Config:    f.Config,
	}
}
