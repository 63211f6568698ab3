package codec

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type CSVCodec struct{}

func NewCSVCodec() *CSVCodec {
	return &CSVCodec{}
}

func (c *CSVCodec) SupportedFormat() Format {
	return FormatCSV
}

func (c *CSVCodec) ContentType() string {
	return "text/csv"
}

// Decode keys every row after the header by the header names. All values
// are strings. Empty lines are skipped, a row of empty cells is a record.
func (c *CSVCodec) Decode(data []byte) ([]*Record, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []*Record{}, nil
	}
	if err != nil {
		return nil, csvDecodeError(err)
	}

	records := []*Record{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvDecodeError(err)
		}
		if len(row) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, &DecodeError{
				Format:   FormatCSV,
				Position: fmt.Sprintf("line %d", line),
				Err:      fmt.Errorf("row has %d fields, header has %d", len(row), len(header)),
			}
		}
		records = append(records, rowToRecord(header, row))
	}
	return records, nil
}

// Encode writes a header made of every key in first seen order, then one
// row per record. Missing fields are empty cells.
func (c *CSVCodec) Encode(records []*Record) ([]byte, error) {
	header := unionKeys(records)

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if len(header) > 0 {
		if err := writer.Write(header); err != nil {
			return nil, &EncodeError{Format: FormatCSV, Err: err}
		}
	}
	for _, r := range records {
		if err := writer.Write(recordToRow(header, r)); err != nil {
			return nil, &EncodeError{Format: FormatCSV, Err: err}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, &EncodeError{Format: FormatCSV, Err: err}
	}
	return buf.Bytes(), nil
}

func csvDecodeError(err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return &DecodeError{
			Format:   FormatCSV,
			Position: fmt.Sprintf("line %d, column %d", parseErr.Line, parseErr.Column),
			Err:      parseErr.Err,
		}
	}
	return &DecodeError{Format: FormatCSV, Err: err}
}

func rowToRecord(header, row []string) *Record {
	r := NewRecord()
	for i, name := range header {
		value := ""
		if i < len(row) {
			value = row[i]
		}
		r.Set(name, value)
	}
	return r
}

func recordToRow(header []string, r *Record) []string {
	row := make([]string, len(header))
	if r == nil {
		return row
	}
	for i, name := range header {
		if v, found := r.Get(name); found {
			row[i] = FormatValue(v)
		}
	}
	return row
}

func unionKeys(records []*Record) []string {
	seen := make(map[string]bool)
	keys := []string{}
	for _, r := range records {
		if r == nil {
			continue
		}
		for _, k := range r.Keys() {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// FormatValue renders a field value as text for tabular formats.
func FormatValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(value), 'f', -1, 32)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case bool:
		return strconv.FormatBool(value)
	case json.Number:
		return value.String()
	case json.RawMessage:
		return string(value)
	default:
		out, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}
		return string(out)
	}
}
