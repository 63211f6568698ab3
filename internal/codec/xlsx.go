package codec

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

type XLSXCodec struct{}

func NewXLSXCodec() *XLSXCodec {
	return &XLSXCodec{}
}

func (c *XLSXCodec) SupportedFormat() Format {
	return FormatXLSX
}

func (c *XLSXCodec) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Decode reads the first sheet. The first row is the header, like csv.
func (c *XLSXCodec) Decode(data []byte) ([]*Record, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Format: FormatXLSX, Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &DecodeError{Format: FormatXLSX, Err: errors.New("workbook has no sheets")}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &DecodeError{Format: FormatXLSX, Position: fmt.Sprintf("sheet %q", sheets[0]), Err: err}
	}

	records := []*Record{}
	if len(rows) == 0 {
		return records, nil
	}
	header := rows[0]
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		if len(row) > len(header) {
			return nil, &DecodeError{
				Format:   FormatXLSX,
				Position: fmt.Sprintf("sheet %q row %d", sheets[0], i+2),
				Err:      fmt.Errorf("row has %d cells, header has %d", len(row), len(header)),
			}
		}
		records = append(records, rowToRecord(header, row))
	}
	return records, nil
}

func (c *XLSXCodec) Encode(records []*Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	header := unionKeys(records)
	if err := setRow(f, 1, header); err != nil {
		return nil, &EncodeError{Format: FormatXLSX, Err: err}
	}
	for i, r := range records {
		if err := setRow(f, i+2, recordToRow(header, r)); err != nil {
			return nil, &EncodeError{Format: FormatXLSX, Err: err}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, &EncodeError{Format: FormatXLSX, Err: err}
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, row int, values []string) error {
	if len(values) == 0 {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(defaultSheet, cell, &cells)
}

// isBlankRow reports a spreadsheet row with no content, which excelize
// returns for formatted but empty rows.
func isBlankRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
