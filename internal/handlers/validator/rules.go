package validator

import "github.com/go-playground/validator/v10"

func registerFn(tag string, fn func(fl validator.FieldLevel) bool) func(v *validator.Validate) {
	return func(v *validator.Validate) {
		_ = v.RegisterValidation(tag, fn)
	}
}

func commonRules() []ValidationRule {
	return []ValidationRule{
		{
			Rule: registerFn("project_id", projectIDValidator),
		},
		{
			Rule: registerFn("resource_name", nameValidator),
		},
	}
}

func NewDataSourceValidationRules() []ValidationRule {
	return append(commonRules(), ValidationRule{
		Rule: registerFn("source_format", formatValidator(sourceFormats)),
	})
}

func NewSchemaMappingValidationRules() []ValidationRule {
	return commonRules()
}

func NewJobValidationRules() []ValidationRule {
	return append(commonRules(),
		ValidationRule{
			Rule: registerFn("uuid_set", uuidValidator),
		},
		ValidationRule{
			Rule: registerFn("output_format", formatValidator(outputFormats)),
		},
	)
}

func NewPreviewValidationRules() []ValidationRule {
	return []ValidationRule{
		{
			Rule: registerFn("pii_type", piiTypeValidator),
		},
	}
}
