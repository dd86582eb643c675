package dataprocessing

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	apperrors "bikereport/internal/errors"
)

// XLSXSource reads both tables from Excel workbooks. An empty sheet name
// selects the first sheet of the workbook.
type XLSXSource struct {
	registryPath  string
	registrySheet string
	dispatchPath  string
	dispatchSheet string
}

// NewXLSXSource creates a workbook source
func NewXLSXSource(registryPath, registrySheet, dispatchPath, dispatchSheet string) *XLSXSource {
	return &XLSXSource{
		registryPath:  registryPath,
		registrySheet: registrySheet,
		dispatchPath:  dispatchPath,
		dispatchSheet: dispatchSheet,
	}
}

// Name implements Source
func (s *XLSXSource) Name() string { return "xlsx" }

// ReadTable implements Source
func (s *XLSXSource) ReadTable(ctx context.Context, kind TableKind) (*RawTable, error) {
	path, sheet := s.registryPath, s.registrySheet
	if kind == TableDispatch {
		path, sheet = s.dispatchPath, s.dispatchSheet
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("open %s workbook", kind), err).WithContext("path", path)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewSchemaError(string(kind), "workbook has no sheets")
	}
	// single-sheet exports rarely keep the configured tab name
	if sheet == "" || (len(sheets) == 1 && !containsString(sheets, sheet)) {
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("read sheet %q", sheet), err).WithContext("path", path)
	}
	return rowsToTable(rows), nil
}

func rowsToTable(rows [][]string) *RawTable {
	if len(rows) == 0 {
		return &RawTable{}
	}
	return &RawTable{Header: rows[0], Rows: rows[1:]}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
