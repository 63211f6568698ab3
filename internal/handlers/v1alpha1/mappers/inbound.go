package mappers

import (
	"github.com/dataforge/dataset-pipeline/api/v1alpha1"
	"github.com/dataforge/dataset-pipeline/internal/pii"
	"github.com/dataforge/dataset-pipeline/internal/service/mappers"
)

func JobFormApi(form v1alpha1.JobCreate) mappers.JobSubmitForm {
	return mappers.JobSubmitForm{
		ProjectID:       form.ProjectId,
		DataSourceID:    form.DataSourceId,
		SchemaMappingID: form.SchemaMappingId,
		OutputFormat:    form.OutputFormat,
		OutputName:      form.OutputName,
		Config:          form.Config,
	}
}

func DataSourceFormApi(form v1alpha1.DataSourceCreate) mappers.DataSourceCreateForm {
	return mappers.DataSourceCreateForm{
		ProjectID: form.ProjectId,
		Name:      form.Name,
		Format:    form.Format,
	}
}

func SchemaMappingFormApi(form v1alpha1.SchemaMappingCreate) mappers.SchemaMappingCreateForm {
	return mappers.SchemaMappingCreateForm{
		ProjectID: form.ProjectId,
		Name:      form.Name,
		Config:    form.Config,
	}
}

func PreviewOptionsApi(form v1alpha1.PiiPreviewRequest) pii.Options {
	return pii.Options{
		EnabledTypes:   form.EnabledTypes,
		CustomPatterns: form.CustomPatterns,
	}
}
