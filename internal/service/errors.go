package service

import (
	"fmt"

	"github.com/google/uuid"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id any, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %v not found", resourceType, id)}
}

func NewErrJobNotFound(id int64) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "job")
}

func NewErrDataSourceNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "data source")
}

func NewErrDatasetNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "dataset")
}

func NewErrSchemaMappingNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "schema mapping")
}

type ErrDataSourceNotReady struct {
	error
}

func NewErrDataSourceNotReady(id uuid.UUID, status string) *ErrDataSourceNotReady {
	return &ErrDataSourceNotReady{fmt.Errorf("data source %s is not ready: status is %s", id, status)}
}

type ErrInvalidProcessingConfig struct {
	error
}

func NewErrInvalidProcessingConfig(err error) *ErrInvalidProcessingConfig {
	return &ErrInvalidProcessingConfig{fmt.Errorf("invalid processing config: %w", err)}
}

type ErrJobNotCancellable struct {
	error
}

func NewErrJobNotCancellable(id int64, status string) *ErrJobNotCancellable {
	return &ErrJobNotCancellable{fmt.Errorf("job %d is not cancellable: status is %s", id, status)}
}

type ErrDatasetExpired struct {
	error
}

func NewErrDatasetExpired(id uuid.UUID) *ErrDatasetExpired {
	return &ErrDatasetExpired{fmt.Errorf("dataset %s has expired", id)}
}

type ErrDuplicateResource struct {
	error
}

func NewErrDuplicateSchemaMapping(name string) *ErrDuplicateResource {
	return &ErrDuplicateResource{fmt.Errorf("schema mapping %q already exists", name)}
}

type ErrUnsupportedFormat struct {
	error
}

func NewErrUnsupportedFormat(format string, allowed []string) *ErrUnsupportedFormat {
	return &ErrUnsupportedFormat{fmt.Errorf("unsupported format %q, expected one of %v", format, allowed)}
}
