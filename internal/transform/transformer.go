package transform

import (
	"fmt"
	"sort"

	"github.com/dataforge/dataset-pipeline/internal/codec"
	"github.com/dataforge/dataset-pipeline/internal/pii"
)

// Transformer applies one job configuration to records. It is read only
// after New and may be shared between goroutines.
type Transformer struct {
	config     *Config
	detector   *pii.Detector
	redact     bool
	redactOpts pii.RedactOptions
}

type Result struct {
	// Record is nil when Filtered is true.
	Record   *codec.Record
	Filtered bool
	// PIIFields is the number of string fields with at least one match.
	PIIFields int
}

func New(cfg *Config) (*Transformer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.WithDefaults()

	t := &Transformer{config: cfg}
	if cfg.PII.enabled() {
		detector, err := pii.NewDetector(cfg.PII.detectorOptions())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		t.detector = detector
		t.redact = cfg.PII.redact()
		t.redactOpts = cfg.PII.redactOptions()
	}
	return t, nil
}

func (t *Transformer) Config() *Config {
	return t.config
}

// Transform maps, filters and scrubs one record, in that order. The input
// record is not modified.
func (t *Transformer) Transform(record *codec.Record) Result {
	out := t.mapFields(record)

	if !keep(t.config.FilterConditions, out) {
		return Result{Filtered: true}
	}

	result := Result{Record: out}
	if t.detector == nil {
		return result
	}
	for _, key := range out.Keys() {
		value, _ := out.Get(key)
		text, ok := value.(string)
		if !ok {
			continue
		}
		matches := t.detector.Matches(text)
		if len(matches) == 0 {
			continue
		}
		result.PIIFields++
		if t.redact {
			out.Set(key, pii.RedactMatches(text, matches, t.redactOpts))
		}
	}
	return result
}

// mapFields emits the mapped fields first, ordered by where their source
// sits in the record, then every field that is not a mapping source.
func (t *Transformer) mapFields(record *codec.Record) *codec.Record {
	if len(t.config.FieldMappings) == 0 {
		return record.Clone()
	}

	position := make(map[string]int, record.Len())
	for i, k := range record.Keys() {
		position[k] = i
	}

	targets := make([]string, 0, len(t.config.FieldMappings))
	sources := make(map[string]bool, len(t.config.FieldMappings))
	for target, source := range t.config.FieldMappings {
		targets = append(targets, target)
		sources[source] = true
	}
	sort.Slice(targets, func(i, j int) bool {
		pi, iok := position[t.config.FieldMappings[targets[i]]]
		pj, jok := position[t.config.FieldMappings[targets[j]]]
		if iok != jok {
			return iok
		}
		if pi != pj {
			return pi < pj
		}
		return targets[i] < targets[j]
	})

	out := codec.NewRecord()
	for _, target := range targets {
		if v, found := record.Get(t.config.FieldMappings[target]); found {
			out.Set(target, v)
		}
	}
	for _, k := range record.Keys() {
		if sources[k] {
			continue
		}
		if _, taken := out.Get(k); taken {
			continue
		}
		v, _ := record.Get(k)
		out.Set(k, v)
	}
	return out
}
