package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Dataset struct {
	ID           uuid.UUID `gorm:"primaryKey;"`
	ProjectID    string    `gorm:"index;not null"`
	JobID        *int64    `gorm:"uniqueIndex"`
	DataSourceID uuid.UUID
	Name         string `gorm:"not null"`
	Format       string `gorm:"not null"`
	RecordCount  int
	FileSize     int64
	StorageKey   string `gorm:"not null"`
	ExpiresAt    *time.Time
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

type DatasetList []Dataset

// Expired reports whether the dataset has an expiry in the past.
func (d Dataset) Expired(now time.Time) bool {
	return d.ExpiresAt != nil && !now.Before(*d.ExpiresAt)
}
