package pii

import "strings"

type Type string

const (
	TypeEmail       Type = "email"
	TypePhone       Type = "phone"
	TypeSSN         Type = "ssn"
	TypeCreditCard  Type = "credit_card"
	TypeIPAddress   Type = "ip_address"
	TypeURL         Type = "url"
	TypeDateOfBirth Type = "date_of_birth"
	TypePersonName  Type = "person_name"
	TypeAddress     Type = "address"
	TypeCustom      Type = "custom"
)

// AllTypes lists the built-in detectable types. TypeCustom is not part of it:
// custom matches only exist when custom patterns are configured.
var AllTypes = []Type{
	TypeEmail,
	TypePhone,
	TypeSSN,
	TypeCreditCard,
	TypeIPAddress,
	TypeURL,
	TypeDateOfBirth,
	TypePersonName,
	TypeAddress,
}

func (t Type) Valid() bool {
	if t == TypeCustom {
		return true
	}
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Label is the default replacement for a match of this type, e.g. [EMAIL].
func (t Type) Label() string {
	return "[" + strings.ToUpper(string(t)) + "]"
}

// Match is one detected span. Start and End are byte offsets into the
// scanned text, End exclusive.
type Match struct {
	Type       Type    `json:"type"`
	Value      string  `json:"value"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
	// Name of the custom pattern which produced the match, empty for built-in types.
	Name string `json:"name,omitempty"`
}

func (m Match) overlaps(o Match) bool {
	return m.Start < o.End && o.Start < m.End
}

type CustomPattern struct {
	Name    string `json:"name" yaml:"name"`
	Pattern string `json:"pattern" yaml:"pattern"`
}

// Options selects what a Detector looks for. An empty EnabledTypes enables
// every built-in type.
type Options struct {
	EnabledTypes   []Type
	CustomPatterns []CustomPattern
}

// RedactOptions controls replacement text. Labels take precedence over
// PreserveLength, which takes precedence over the bracketed type tag.
type RedactOptions struct {
	Labels         map[Type]string
	PreserveLength bool
	RedactionChar  rune
}

type Result struct {
	HasPII       bool    `json:"hasPII"`
	Matches      []Match `json:"matches"`
	RedactedText string  `json:"redactedText"`
}
