package exporter

import (
	"fmt"
	"io"
	"strconv"

	"bikereport/internal/dataprocessing"
	apperrors "bikereport/internal/errors"
)

// ParsePivotCSV reads a pivot table previously written by WriteTable.
// Empty cells are treated as absent.
func ParsePivotCSV(r io.Reader) (*dataprocessing.Pivot, error) {
	raw, err := dataprocessing.ReadCSV(r)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read pivot csv", err)
	}
	if len(raw.Header) == 0 || raw.Header[0] != PivotIndexHeader {
		return nil, apperrors.NewSchemaError("pivot", fmt.Sprintf("first column must be %q", PivotIndexHeader))
	}

	p := dataprocessing.NewPivot()
	p.Columns = append(p.Columns, raw.Header[1:]...)

	for i, row := range raw.Rows {
		if len(row) == 0 {
			continue
		}
		if len(row) > len(raw.Header) {
			return nil, apperrors.NewSchemaError("pivot", fmt.Sprintf("row %d has %d cells, header has %d", i+2, len(row), len(raw.Header)))
		}
		service := row[0]
		p.Rows = append(p.Rows, service)
		for j, cell := range row[1:] {
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, apperrors.NewParsingError(fmt.Sprintf("row %d column %q", i+2, p.Columns[j]), err)
			}
			p.Set(service, p.Columns[j], v)
		}
	}
	return p, nil
}
