package model

import (
	"time"

	"github.com/google/uuid"
)

type DataSourceStatus string

const (
	DataSourceStatusUploading DataSourceStatus = "uploading"
	DataSourceStatusReady     DataSourceStatus = "ready"
	DataSourceStatusFailed    DataSourceStatus = "failed"
)

type DataSource struct {
	ID         uuid.UUID        `gorm:"primaryKey;"`
	ProjectID  string           `gorm:"index;not null"`
	Name       string           `gorm:"not null"`
	Format     string           `gorm:"not null"`
	StorageKey string           `gorm:"uniqueIndex;not null"`
	Status     DataSourceStatus `gorm:"not null"`
	FileSize   int64
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

type DataSourceList []DataSource

func (d DataSource) IsReady() bool {
	return d.Status == DataSourceStatusReady
}
