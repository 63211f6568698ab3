package transform

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/dataforge/dataset-pipeline/internal/codec"
	"github.com/dataforge/dataset-pipeline/internal/pii"
)

const (
	DefaultBatchSize    = 100
	DefaultOutputFormat = codec.FormatJSONL
)

var (
	ErrInvalidConfig       = errors.New("invalid processing config")
	ErrUnsupportedStrategy = errors.New("unsupported pii strategy")
)

type Operator string

const (
	OperatorEq          Operator = "eq"
	OperatorNe          Operator = "ne"
	OperatorGt          Operator = "gt"
	OperatorGte         Operator = "gte"
	OperatorLt          Operator = "lt"
	OperatorLte         Operator = "lte"
	OperatorContains    Operator = "contains"
	OperatorNotContains Operator = "not_contains"
)

func (o Operator) numeric() bool {
	switch o {
	case OperatorGt, OperatorGte, OperatorLt, OperatorLte:
		return true
	}
	return false
}

func (o Operator) valid() bool {
	switch o {
	case OperatorEq, OperatorNe, OperatorContains, OperatorNotContains:
		return true
	}
	return o.numeric()
}

type Strategy string

const (
	StrategyRedact       Strategy = "redact"
	StrategyPseudonymize Strategy = "pseudonymize"
	StrategyHash         Strategy = "hash"
)

type FilterCondition struct {
	Field    string   `json:"field" yaml:"field"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    any      `json:"value" yaml:"value"`
}

type PIIConfig struct {
	// Enabled defaults to true.
	Enabled        *bool                 `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	EnabledTypes   []pii.Type            `json:"enabledTypes,omitempty" yaml:"enabledTypes,omitempty"`
	CustomPatterns []pii.CustomPattern   `json:"customPatterns,omitempty" yaml:"customPatterns,omitempty"`
	Strategies     map[pii.Type]Strategy `json:"strategies,omitempty" yaml:"strategies,omitempty"`
	// Redact defaults to true. When false matches are only counted.
	Redact         *bool               `json:"redact,omitempty" yaml:"redact,omitempty"`
	Labels         map[pii.Type]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	PreserveLength bool                `json:"preserveLength,omitempty" yaml:"preserveLength,omitempty"`
	RedactionChar  string              `json:"redactionChar,omitempty" yaml:"redactionChar,omitempty"`
}

func (p *PIIConfig) enabled() bool {
	return p == nil || p.Enabled == nil || *p.Enabled
}

func (p *PIIConfig) redact() bool {
	return p == nil || p.Redact == nil || *p.Redact
}

// Config is the processing configuration of a job. The zero value is valid:
// no mapping, no filter, PII detection of every type with redaction.
type Config struct {
	// FieldMappings maps an output field name to a source field name.
	FieldMappings    map[string]string `json:"fieldMappings,omitempty" yaml:"fieldMappings,omitempty"`
	FilterConditions []FilterCondition `json:"filterConditions,omitempty" yaml:"filterConditions,omitempty"`
	PII              *PIIConfig        `json:"piiConfig,omitempty" yaml:"piiConfig,omitempty"`
	OutputFormat     codec.Format      `json:"outputFormat,omitempty" yaml:"outputFormat,omitempty"`
	BatchSize        int               `json:"batchSize,omitempty" yaml:"batchSize,omitempty"`
}

// WithDefaults returns a copy with the output format and batch size filled in.
func (c *Config) WithDefaults() *Config {
	out := Config{}
	if c != nil {
		out = *c
	}
	if out.OutputFormat == "" {
		out.OutputFormat = DefaultOutputFormat
	}
	if out.BatchSize == 0 {
		out.BatchSize = DefaultBatchSize
	}
	return &out
}

// Validate reports every problem as an error wrapping ErrInvalidConfig or,
// for pseudonymize and hash, ErrUnsupportedStrategy.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}

	for target, source := range c.FieldMappings {
		if target == "" || source == "" {
			return fmt.Errorf("%w: field mapping %q <- %q has an empty name", ErrInvalidConfig, target, source)
		}
	}

	for i, cond := range c.FilterConditions {
		if cond.Field == "" {
			return fmt.Errorf("%w: filter condition %d has no field", ErrInvalidConfig, i)
		}
		if !cond.Operator.valid() {
			return fmt.Errorf("%w: filter condition %d has unknown operator %q", ErrInvalidConfig, i, cond.Operator)
		}
		if cond.Operator.numeric() {
			if _, ok := toNumber(cond.Value); !ok {
				return fmt.Errorf("%w: filter condition %d: operator %q needs a numeric value", ErrInvalidConfig, i, cond.Operator)
			}
		}
	}

	switch c.OutputFormat {
	case "", codec.FormatJSON, codec.FormatJSONL, codec.FormatCSV:
	default:
		return fmt.Errorf("%w: output format %q", ErrInvalidConfig, c.OutputFormat)
	}

	if c.BatchSize < 0 {
		return fmt.Errorf("%w: batch size must be positive", ErrInvalidConfig)
	}

	return c.PII.validate()
}

func (p *PIIConfig) validate() error {
	if p == nil {
		return nil
	}
	for t, s := range p.Strategies {
		if !t.Valid() {
			return fmt.Errorf("%w: unknown pii type %q", ErrInvalidConfig, t)
		}
		switch s {
		case StrategyRedact:
		case StrategyPseudonymize, StrategyHash:
			return fmt.Errorf("%w: %q for %s", ErrUnsupportedStrategy, s, t)
		default:
			return fmt.Errorf("%w: unknown strategy %q for %s", ErrInvalidConfig, s, t)
		}
	}
	if utf8.RuneCountInString(p.RedactionChar) > 1 {
		return fmt.Errorf("%w: redaction char must be a single character", ErrInvalidConfig)
	}
	if _, err := pii.NewDetector(p.detectorOptions()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (p *PIIConfig) detectorOptions() pii.Options {
	if p == nil {
		return pii.Options{}
	}
	return pii.Options{EnabledTypes: p.EnabledTypes, CustomPatterns: p.CustomPatterns}
}

func (p *PIIConfig) redactOptions() pii.RedactOptions {
	if p == nil {
		return pii.RedactOptions{}
	}
	opts := pii.RedactOptions{Labels: p.Labels, PreserveLength: p.PreserveLength}
	if p.RedactionChar != "" {
		opts.RedactionChar, _ = utf8.DecodeRuneInString(p.RedactionChar)
	}
	return opts
}
