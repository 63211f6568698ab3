package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

type JSONCodec struct{}

func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

func (c *JSONCodec) SupportedFormat() Format {
	return FormatJSON
}

func (c *JSONCodec) ContentType() string {
	return "application/json"
}

// Decode expects a single array of objects.
func (c *JSONCodec) Decode(data []byte) ([]*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, &DecodeError{Format: FormatJSON, Position: fmt.Sprintf("offset %d", dec.InputOffset()), Err: err}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, &DecodeError{Format: FormatJSON, Position: "offset 0", Err: errors.New("expected an array of objects")}
	}

	records := []*Record{}
	for i := 0; dec.More(); i++ {
		r := NewRecord()
		if err := dec.Decode(r); err != nil {
			return nil, &DecodeError{Format: FormatJSON, Position: fmt.Sprintf("element %d", i), Err: err}
		}
		records = append(records, r)
	}
	if _, err := dec.Token(); err != nil {
		return nil, &DecodeError{Format: FormatJSON, Position: fmt.Sprintf("offset %d", dec.InputOffset()), Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &DecodeError{Format: FormatJSON, Position: fmt.Sprintf("offset %d", dec.InputOffset()), Err: errors.New("unexpected data after the array")}
	}
	return records, nil
}

// Encode writes a pretty printed array.
func (c *JSONCodec) Encode(records []*Record) ([]byte, error) {
	if records == nil {
		records = []*Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, &EncodeError{Format: FormatJSON, Err: err}
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

type JSONLCodec struct{}

func NewJSONLCodec() *JSONLCodec {
	return &JSONLCodec{}
}

func (c *JSONLCodec) SupportedFormat() Format {
	return FormatJSONL
}

func (c *JSONLCodec) ContentType() string {
	return "application/x-ndjson"
}

// Decode parses one object per non blank line and stops at the first bad line.
func (c *JSONLCodec) Decode(data []byte) ([]*Record, error) {
	records := []*Record{}
	for i, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		r := NewRecord()
		if err := json.Unmarshal(line, r); err != nil {
			return nil, &DecodeError{Format: FormatJSONL, Position: fmt.Sprintf("line %d", i+1), Err: err}
		}
		records = append(records, r)
	}
	return records, nil
}

func (c *JSONLCodec) Encode(records []*Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, r := range records {
		if err := enc.Encode(r); err != nil {
			return nil, &EncodeError{Format: FormatJSONL, Err: fmt.Errorf("record %d: %w", i, err)}
		}
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
