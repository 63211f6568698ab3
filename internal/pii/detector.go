package pii

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const defaultRedactionChar = '*'

// Detector finds PII spans in text. It holds no mutable state once built
// and is safe for concurrent use.
type Detector struct {
	enabled map[Type]bool
	custom  []customMatcher
}

// NewDetector compiles the custom patterns of opts. An invalid pattern or an
// unknown type is an error.
func NewDetector(opts Options) (*Detector, error) {
	d := &Detector{enabled: make(map[Type]bool)}

	if len(opts.EnabledTypes) == 0 {
		for _, t := range AllTypes {
			d.enabled[t] = true
		}
	}
	for _, t := range opts.EnabledTypes {
		if !t.Valid() {
			return nil, fmt.Errorf("unknown pii type %q", t)
		}
		d.enabled[t] = true
	}

	for _, p := range opts.CustomPatterns {
		if p.Pattern == "" {
			return nil, fmt.Errorf("custom pattern %q is empty", p.Name)
		}
		expr, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("custom pattern %q: %w", p.Name, err)
		}
		d.custom = append(d.custom, customMatcher{name: p.Name, expr: expr})
	}

	return d, nil
}

// MustNewDetector is NewDetector for options known to be valid.
func MustNewDetector(opts Options) *Detector {
	d, err := NewDetector(opts)
	if err != nil {
		panic(err)
	}
	return d
}

// Detect returns the accepted matches of text together with a copy redacted
// with the bracketed type tags.
func (d *Detector) Detect(text string) Result {
	matches := d.Matches(text)
	return Result{
		HasPII:       len(matches) > 0,
		Matches:      matches,
		RedactedText: apply(text, matches, RedactOptions{}),
	}
}

// Matches runs every enabled source over text and returns the non-overlapping
// matches ordered by start offset.
func (d *Detector) Matches(text string) []Match {
	if text == "" {
		return []Match{}
	}

	var raw []Match
	for _, pm := range patternMatchers {
		if d.enabled[pm.kind] {
			raw = append(raw, pm.find(text)...)
		}
	}
	if d.enabled[TypePersonName] {
		raw = append(raw, findPersonNames(text)...)
	}
	if d.enabled[TypeAddress] {
		raw = append(raw, findPlaces(text)...)
	}
	for _, cm := range d.custom {
		raw = append(raw, cm.find(text)...)
	}

	return resolveOverlaps(raw)
}

// Redact replaces every match with the replacement chosen by opts.
func (d *Detector) Redact(text string, opts RedactOptions) string {
	return apply(text, d.Matches(text), opts)
}

// RedactMatches redacts text with matches already found by Matches on the
// same text. Matches outside text or overlapping an earlier one are skipped.
func RedactMatches(text string, matches []Match, opts RedactOptions) string {
	valid := make([]Match, 0, len(matches))
	for _, m := range matches {
		if m.Start >= 0 && m.End <= len(text) {
			valid = append(valid, m)
		}
	}
	return apply(text, resolveOverlaps(valid), opts)
}

func (d *Detector) ContainsPII(text string) bool {
	return len(d.Matches(text)) > 0
}

// Stats counts accepted matches per type.
func (d *Detector) Stats(text string) map[Type]int {
	stats := make(map[Type]int)
	for _, m := range d.Matches(text) {
		stats[m.Type]++
	}
	return stats
}

// resolveOverlaps sorts by start ascending then confidence descending and
// greedily keeps every match that does not intersect an accepted one.
func resolveOverlaps(raw []Match) []Match {
	sort.SliceStable(raw, func(i, j int) bool {
		if raw[i].Start != raw[j].Start {
			return raw[i].Start < raw[j].Start
		}
		return raw[i].Confidence > raw[j].Confidence
	})

	accepted := make([]Match, 0, len(raw))
	for _, m := range raw {
		if m.Start >= m.End {
			continue
		}
		clash := false
		for _, a := range accepted {
			if m.overlaps(a) {
				clash = true
				break
			}
		}
		if !clash {
			accepted = append(accepted, m)
		}
	}
	return accepted
}

// apply splices replacements from the highest start offset down so the
// offsets of earlier matches stay valid.
func apply(text string, matches []Match, opts RedactOptions) string {
	if len(matches) == 0 {
		return text
	}

	ordered := append([]Match(nil), matches...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start > ordered[j].Start })

	out := text
	for _, m := range ordered {
		out = out[:m.Start] + replacement(m, opts) + out[m.End:]
	}
	return out
}

func replacement(m Match, opts RedactOptions) string {
	if label, ok := opts.Labels[m.Type]; ok && label != "" {
		return label
	}
	if opts.PreserveLength {
		ch := opts.RedactionChar
		if ch == 0 {
			ch = defaultRedactionChar
		}
		return strings.Repeat(string(ch), utf8.RuneCountInString(m.Value))
	}
	return m.Type.Label()
}
