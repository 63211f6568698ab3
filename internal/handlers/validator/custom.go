package validator

import (
	"regexp"

	"github.com/dataforge/dataset-pipeline/internal/codec"
	"github.com/dataforge/dataset-pipeline/internal/pii"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/thoas/go-funk"
)

var (
	resourceNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9 +_.-]*$`)
	projectIDRegex    = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9._-]{0,62}[a-zA-Z0-9])?$`)

	sourceFormats = []string{string(codec.FormatCSV), string(codec.FormatJSON), string(codec.FormatJSONL), string(codec.FormatXLSX)}
	outputFormats = []string{string(codec.FormatCSV), string(codec.FormatJSON), string(codec.FormatJSONL)}
)

func nameValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	return resourceNameRegex.MatchString(val)
}

func projectIDValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	return projectIDRegex.MatchString(val)
}

func uuidValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(uuid.UUID)
	if !ok {
		return false
	}
	return val != uuid.UUID{}
}

func formatValidator(allowed []string) func(fl validator.FieldLevel) bool {
	return func(fl validator.FieldLevel) bool {
		val, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		format, err := codec.ParseFormat(val)
		if err != nil {
			return false
		}
		return funk.ContainsString(allowed, string(format))
	}
}

func piiTypeValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(pii.Type)
	if !ok {
		return false
	}
	return val.Valid()
}
