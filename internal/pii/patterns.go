package pii

import "regexp"

const (
	confidenceEmail       = 0.95
	confidencePhone       = 0.85
	confidenceSSN         = 0.90
	confidenceCreditCard  = 0.90
	confidenceIPAddress   = 0.95
	confidenceURL         = 0.95
	confidenceDateOfBirth = 0.70
	confidencePersonName  = 0.75
	confidenceAddress     = 0.65
	confidenceCustom      = 0.80

	minAddressLength = 3
)

type patternMatcher struct {
	kind       Type
	confidence float64
	exprs      []*regexp.Regexp
}

// Order matters only for matches sharing a start offset and a confidence,
// the sort is stable.
var patternMatchers = []patternMatcher{
	{
		kind:       TypeEmail,
		confidence: confidenceEmail,
		exprs:      []*regexp.Regexp{regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)},
	},
	{
		kind:       TypePhone,
		confidence: confidencePhone,
		exprs:      []*regexp.Regexp{regexp.MustCompile(`(?:\+?1[\-.\s]?)?(?:\(\d{3}\)|\b\d{3})[\-.\s]?\d{3}[\-.\s]?\d{4}\b`)},
	},
	{
		kind:       TypeSSN,
		confidence: confidenceSSN,
		exprs:      []*regexp.Regexp{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	},
	{
		kind:       TypeCreditCard,
		confidence: confidenceCreditCard,
		exprs:      []*regexp.Regexp{regexp.MustCompile(`\b(?:\d{4}[\-\s]?){3}\d{4}\b`)},
	},
	{
		kind:       TypeIPAddress,
		confidence: confidenceIPAddress,
		exprs: []*regexp.Regexp{regexp.MustCompile(
			`\b(?:(?:25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\.){3}(?:25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\b`,
		)},
	},
	{
		kind:       TypeURL,
		confidence: confidenceURL,
		exprs:      []*regexp.Regexp{regexp.MustCompile(`(?:https?://|www\.)[^\s<>"']+`)},
	},
	{
		kind:       TypeDateOfBirth,
		confidence: confidenceDateOfBirth,
		exprs: []*regexp.Regexp{
			regexp.MustCompile(`\b(?:0?[1-9]|1[0-2])[/\-](?:0?[1-9]|[12]\d|3[01])[/\-](?:19|20)\d{2}\b`),
			regexp.MustCompile(`\b(?:19|20)\d{2}-(?:0[1-9]|1[0-2])-(?:0[1-9]|[12]\d|3[01])\b`),
		},
	},
}

func (p patternMatcher) find(text string) []Match {
	var matches []Match
	for _, expr := range p.exprs {
		for _, loc := range expr.FindAllStringIndex(text, -1) {
			matches = append(matches, Match{
				Type:       p.kind,
				Value:      text[loc[0]:loc[1]],
				Start:      loc[0],
				End:        loc[1],
				Confidence: p.confidence,
			})
		}
	}
	return matches
}

type customMatcher struct {
	name string
	expr *regexp.Regexp
}

func (c customMatcher) find(text string) []Match {
	var matches []Match
	for _, loc := range c.expr.FindAllStringIndex(text, -1) {
		if loc[0] == loc[1] {
			continue
		}
		matches = append(matches, Match{
			Type:       TypeCustom,
			Value:      text[loc[0]:loc[1]],
			Start:      loc[0],
			End:        loc[1],
			Confidence: confidenceCustom,
			Name:       c.name,
		})
	}
	return matches
}
