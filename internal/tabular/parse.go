// Package tabular parses delimited files into headers and rows and infers a
// semantic type for every column.
package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// MaxRowBytes is the per-row size ceiling. Rows beyond it abort the parse.
const MaxRowBytes = 64 * 1024

const sampleRowCount = 5

// ParseResult is the structured view of one delimited file.
type ParseResult struct {
	Headers    []string
	Rows       [][]string
	SampleRows [][]string // first rows, at most 5
	RowCount   int
	DataTypes  map[string]DataTypeInfo // keyed by header; computed once, read-only
}

// Record returns row i as a header-keyed map. Short rows yield empty strings
// for the trailing columns.
func (r *ParseResult) Record(i int) map[string]string {
	rec := make(map[string]string, len(r.Headers))
	for j, h := range r.Headers {
		if i < len(r.Rows) && j < len(r.Rows[i]) {
			rec[h] = r.Rows[i][j]
		} else {
			rec[h] = ""
		}
	}
	return rec
}

// Parse reads a delimited file whose first row is the header row. delimiter 0
// means comma. The returned result includes inferred column types.
func Parse(data []byte, delimiter rune) (*ParseResult, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("empty input: no header row")
	}
	if delimiter == 0 {
		delimiter = ','
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // ragged rows tolerated; Record pads them

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing delimited input: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty input: no header row")
	}

	headers := records[0]
	blank := true
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
		if headers[i] != "" {
			blank = false
		}
	}
	if blank {
		return nil, fmt.Errorf("first row cannot establish column headers")
	}

	rows := records[1:]
	for i, row := range rows {
		size := 0
		for _, cell := range row {
			size += len(cell)
		}
		if size > MaxRowBytes {
			return nil, fmt.Errorf("row %d exceeds size ceiling (%d > %d bytes)", i+2, size, MaxRowBytes)
		}
	}

	sample := rows
	if len(sample) > sampleRowCount {
		sample = sample[:sampleRowCount]
	}

	return &ParseResult{
		Headers:    headers,
		Rows:       rows,
		SampleRows: sample,
		RowCount:   len(rows),
		DataTypes:  InferTypes(headers, rows),
	}, nil
}
