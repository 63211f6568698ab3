package model

import (
	"time"

	"github.com/dataforge/dataset-pipeline/internal/transform"
	"github.com/google/uuid"
)

// SchemaMapping is a named, reusable processing configuration.
type SchemaMapping struct {
	ID        uuid.UUID         `gorm:"primaryKey;"`
	ProjectID string            `gorm:"uniqueIndex:schema_mappings_project_name;not null"`
	Name      string            `gorm:"uniqueIndex:schema_mappings_project_name;not null"`
	Config    *transform.Config `gorm:"serializer:json"`
	CreatedAt time.Time         `gorm:"autoCreateTime"`
}

type SchemaMappingList []SchemaMapping
