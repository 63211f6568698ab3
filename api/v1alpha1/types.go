package v1alpha1

import (
	"time"

	"github.com/dataforge/dataset-pipeline/internal/pii"
	"github.com/dataforge/dataset-pipeline/internal/transform"
	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

type DataSourceStatus string

const (
	DataSourceStatusUploading DataSourceStatus = "uploading"
	DataSourceStatusReady     DataSourceStatus = "ready"
	DataSourceStatusFailed    DataSourceStatus = "failed"
)

// ProcessingConfig is the transformation applied by a job.
type ProcessingConfig = transform.Config

// Error defines model for Error.
type Error struct {
	Message   string  `json:"message"`
	RequestId *string `json:"requestId,omitempty"`
}

// Status defines model for Status.
type Status struct {
	Message string `json:"message,omitempty"`
	Status  string `json:"status"`
}

// DataSourceCreate defines model for DataSourceCreate.
type DataSourceCreate struct {
	ProjectId string `json:"projectId" validate:"required,project_id"`
	Name      string `json:"name" validate:"required,max=255,resource_name"`
	Format    string `json:"format" validate:"required,source_format"`
}

// DataSource defines model for DataSource.
type DataSource struct {
	Id        uuid.UUID        `json:"id"`
	ProjectId string           `json:"projectId"`
	Name      string           `json:"name"`
	Format    string           `json:"format"`
	Status    DataSourceStatus `json:"status"`
	FileSize  int64            `json:"fileSize"`
	CreatedAt time.Time        `json:"createdAt"`
}

type DataSourceList []DataSource

// DataSourceUpload is returned on data source creation.
type DataSourceUpload struct {
	DataSource DataSource `json:"dataSource"`
	UploadUrl  string     `json:"uploadUrl"`
	ExpiresAt  time.Time  `json:"expiresAt"`
}

// SchemaMappingCreate defines model for SchemaMappingCreate.
type SchemaMappingCreate struct {
	ProjectId string            `json:"projectId" validate:"required,project_id"`
	Name      string            `json:"name" validate:"required,max=255,resource_name"`
	Config    *ProcessingConfig `json:"config" validate:"required"`
}

// SchemaMapping defines model for SchemaMapping.
type SchemaMapping struct {
	Id        uuid.UUID         `json:"id"`
	ProjectId string            `json:"projectId"`
	Name      string            `json:"name"`
	Config    *ProcessingConfig `json:"config"`
	CreatedAt time.Time         `json:"createdAt"`
}

type SchemaMappingList []SchemaMapping

// JobCreate defines model for JobCreate.
type JobCreate struct {
	ProjectId       string            `json:"projectId" validate:"required,project_id"`
	DataSourceId    uuid.UUID         `json:"dataSourceId" validate:"uuid_set"`
	SchemaMappingId *uuid.UUID        `json:"schemaMappingId,omitempty" validate:"omitempty,uuid_set"`
	OutputFormat    string            `json:"outputFormat,omitempty" validate:"omitempty,output_format"`
	OutputName      string            `json:"outputName,omitempty" validate:"omitempty,max=255,resource_name"`
	Config          *ProcessingConfig `json:"config,omitempty" validate:"excluded_with=SchemaMappingId"`
}

// Job defines model for Job.
type Job struct {
	Id                   int64      `json:"id"`
	ProjectId            string     `json:"projectId"`
	DataSourceId         uuid.UUID  `json:"dataSourceId"`
	SchemaMappingId      *uuid.UUID `json:"schemaMappingId,omitempty"`
	Status               JobStatus  `json:"status"`
	CancelRequested      bool       `json:"cancelRequested"`
	Progress             int        `json:"progress"`
	Stage                string     `json:"stage,omitempty"`
	OutputFormat         string     `json:"outputFormat"`
	OutputName           string     `json:"outputName,omitempty"`
	InputRecordCount     int        `json:"inputRecordCount"`
	ProcessedRecordCount int        `json:"processedRecordCount"`
	OutputRecordCount    int        `json:"outputRecordCount"`
	PiiDetectedCount     int        `json:"piiDetectedCount"`
	FilteredOutCount     int        `json:"filteredOutCount"`
	ErrorMessage         *string    `json:"errorMessage,omitempty"`
	StartedAt            *time.Time `json:"startedAt,omitempty"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
}

type JobList []Job

// JobLogLine defines model for JobLogLine.
type JobLogLine struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

type JobLogs struct {
	JobId int64        `json:"jobId"`
	Lines []JobLogLine `json:"lines"`
}

// Dataset defines model for Dataset.
type Dataset struct {
	Id           uuid.UUID  `json:"id"`
	ProjectId    string     `json:"projectId"`
	JobId        *int64     `json:"jobId,omitempty"`
	DataSourceId uuid.UUID  `json:"dataSourceId"`
	Name         string     `json:"name"`
	Format       string     `json:"format"`
	RecordCount  int        `json:"recordCount"`
	FileSize     int64      `json:"fileSize"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type DatasetList []Dataset

// DownloadUrl defines model for DownloadUrl.
type DownloadUrl struct {
	Url       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PiiPreviewRequest defines model for PiiPreviewRequest.
type PiiPreviewRequest struct {
	Text           string              `json:"text" validate:"required,max=65536"`
	EnabledTypes   []pii.Type          `json:"enabledTypes,omitempty" validate:"omitempty,dive,pii_type"`
	CustomPatterns []pii.CustomPattern `json:"customPatterns,omitempty" validate:"omitempty,dive"`
}

// PiiPreview defines model for PiiPreview.
type PiiPreview struct {
	HasPii       bool             `json:"hasPII"`
	Matches      []pii.Match      `json:"matches"`
	RedactedText string           `json:"redactedText"`
	Stats        map[pii.Type]int `json:"stats"`
}

// Info defines model for Info.
type Info struct {
	GitCommit   string `json:"gitCommit"`
	VersionName string `json:"versionName"`
}
