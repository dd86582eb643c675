package exporter

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	apperrors "bikereport/internal/errors"
)

const defaultSheet = "Sheet1"

// WorkbookExporter writes report tables into a single XLSX workbook
type WorkbookExporter struct{}

// NewWorkbookExporter creates a workbook exporter
func NewWorkbookExporter() *WorkbookExporter {
	return &WorkbookExporter{}
}

// Build returns a workbook with one sheet per table. The caller closes it.
func (e *WorkbookExporter) Build(tables []Table) (*excelize.File, error) {
	f := excelize.NewFile()

	for i, t := range tables {
		sheet := t.Sheet
		if sheet == "" {
			sheet = fmt.Sprintf("Table%d", i+1)
		}
		if _, err := f.NewSheet(sheet); err != nil {
			f.Close()
			return nil, apperrors.NewStorageError("failed to create sheet "+sheet, err)
		}

		if err := setRow(f, sheet, 1, t.Headers, false); err != nil {
			f.Close()
			return nil, err
		}
		for r, row := range t.Rows {
			if err := setRow(f, sheet, r+2, row, t.Numeric); err != nil {
				f.Close()
				return nil, err
			}
		}
	}

	if len(tables) > 0 && !hasSheet(tables, defaultSheet) {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			f.Close()
			return nil, apperrors.NewStorageError("failed to remove default sheet", err)
		}
		f.SetActiveSheet(0)
	}
	return f, nil
}

// Write streams the workbook to out
func (e *WorkbookExporter) Write(out io.Writer, tables []Table) error {
	f, err := e.Build(tables)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(out); err != nil {
		return apperrors.NewStorageError("failed to write workbook", err)
	}
	return nil
}

// SaveAs writes the workbook to path
func (e *WorkbookExporter) SaveAs(path string, tables []Table) error {
	f, err := e.Build(tables)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return apperrors.NewStorageError("failed to save workbook", err)
	}
	return nil
}

// setRow writes cells starting at column A. In numeric rows every cell after
// the label that parses as a number is stored as one.
func setRow(f *excelize.File, sheet string, row int, cells []string, numeric bool) error {
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		if n, err := strconv.ParseFloat(c, 64); numeric && i > 0 && err == nil {
			values[i] = n
		} else {
			values[i] = c
		}
	}

	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return apperrors.NewStorageError("invalid cell coordinates", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to write row %d of %s", row, sheet), err)
	}
	return nil
}

func hasSheet(tables []Table, name string) bool {
	for _, t := range tables {
		if t.Sheet == name {
			return true
		}
	}
	return false
}
