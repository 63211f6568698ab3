package codec

import (
	"strings"
)

type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatCSV   Format = "csv"
	FormatXLSX  Format = "xlsx"
)

// Codec converts between raw bytes and records for one format.
type Codec interface {
	Decode(data []byte) ([]*Record, error)
	Encode(records []*Record) ([]byte, error)
	SupportedFormat() Format
	ContentType() string
}

var codecs = newRegistry(
	NewJSONCodec(),
	NewJSONLCodec(),
	NewCSVCodec(),
	NewXLSXCodec(),
)

type registry map[Format]Codec

func newRegistry(cs ...Codec) registry {
	r := make(registry, len(cs))
	for _, c := range cs {
		r[c.SupportedFormat()] = c
	}
	return r
}

// Lookup returns the codec for format or an *UnsupportedFormatError.
func Lookup(format Format) (Codec, error) {
	c, found := codecs[format]
	if !found {
		return nil, &UnsupportedFormatError{Format: format}
	}
	return c, nil
}

// ParseFormat accepts any letter case and the "jsonlines" / "ndjson" aliases.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "jsonlines", "ndjson":
		f = FormatJSONL
	}
	if _, err := Lookup(f); err != nil {
		return "", err
	}
	return f, nil
}

func Decode(data []byte, format Format) ([]*Record, error) {
	c, err := Lookup(format)
	if err != nil {
		return nil, err
	}
	return c.Decode(data)
}

func Encode(records []*Record, format Format) ([]byte, error) {
	c, err := Lookup(format)
	if err != nil {
		return nil, err
	}
	return c.Encode(records)
}

func ContentType(format Format) string {
	if c, err := Lookup(format); err == nil {
		return c.ContentType()
	}
	return "application/octet-stream"
}

// Extension is the file extension for format, without the dot.
func (f Format) Extension() string {
	return string(f)
}
