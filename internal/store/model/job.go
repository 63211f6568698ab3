package model

import (
	"encoding/json"
	"time"

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

// IsTerminal reports whether no transition leaves the status.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

type ProcessingJob struct {
	ID              int64     `gorm:"primaryKey;autoIncrement"`
	ProjectID       string    `gorm:"index;not null"`
	DataSourceID    uuid.UUID `gorm:"not null"`
	SchemaMappingID *uuid.UUID
	Status          JobStatus `gorm:"index;not null"`
	// CancelRequested is the only field request handlers change after creation.
	CancelRequested bool
	Progress        int
	Stage           string
	OutputFormat    string `gorm:"not null"`
	OutputName      string
	// Config is the processing configuration resolved at submission.
	Config               *transform.Config `gorm:"serializer:json"`
	InputRecordCount     int
	ProcessedRecordCount int
	OutputRecordCount    int
	PIIDetectedCount     int `gorm:"column:pii_detected_count"`
	FilteredOutCount     int
	ErrorMessage         string
	StartedAt            *time.Time
	CompletedAt          *time.Time
	CreatedAt            time.Time `gorm:"autoCreateTime"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime"`
}

type ProcessingJobList []ProcessingJob

func (ProcessingJob) TableName() string {
	return "processing_jobs"
}

func (j ProcessingJob) String() string {
	val, _ := json.Marshal(j)
	return string(val)
}
