package exporter

import (
	"bikereport/internal/dataprocessing"
	apperrors "bikereport/internal/errors"
	"bikereport/pkg/contracts/domain"
)

// PivotIndexHeader names the row-label column of pivot tables
const PivotIndexHeader = "Service"

// Table is a display-ready report table
type Table struct {
	Name     string     `json:"name"`
	Filename string     `json:"filename"`
	Sheet    string     `json:"-"`
	Headers  []string   `json:"headers"`
	Rows     [][]string `json:"rows"`

	// Numeric marks tables whose cells after the first column are numbers
	Numeric bool `json:"numeric"`
}

// tableNaming maps report sections to download filenames and sheet names.
// Sheet names are capped at 31 characters by Excel.
var tableNaming = map[string]struct{ filename, sheet string }{
	dataprocessing.SectionServiceByType:         {"ServiceByType.csv", "ServiceByType"},
	dataprocessing.SectionServiceByTypeKeywords: {"ServiceByTypeWithKeywords.csv", "ServiceByTypeWithKeywords"},
	dataprocessing.SectionTouches:               {"Touches.csv", "Touches"},
	dataprocessing.SectionDispatches:            {"DispatchesWithKeyWordsInOfficeNotes.csv", "Dispatches"},
	dataprocessing.SectionEfficiency:            {"Efficiency.csv", "Efficiency"},
	SectionTypeTotals:                           {"TypeTotals.csv", "TypeTotals"},
}

// SectionTypeTotals is the extra table holding the type-of-interest totals
const SectionTypeTotals = "type-totals"

func newTable(name string, headers []string, rows [][]string) Table {
	naming := tableNaming[name]
	if rows == nil {
		rows = [][]string{}
	}
	return Table{
		Name:     name,
		Filename: naming.filename,
		Sheet:    naming.sheet,
		Headers:  headers,
		Rows:     rows,
		Numeric:  name != dataprocessing.SectionDispatches,
	}
}

// PivotRows converts a pivot to its header and rows. Absent cells are empty.
func PivotRows(p *dataprocessing.Pivot) ([]string, [][]string) {
	headers := append([]string{PivotIndexHeader}, p.Columns...)
	matrix := p.Matrix()

	rows := make([][]string, len(p.Rows))
	for i, service := range p.Rows {
		row := make([]string, 0, len(p.Columns)+1)
		row = append(row, service)
		for _, v := range matrix[i] {
			row = append(row, formatCell(v))
		}
		rows[i] = row
	}
	return headers, rows
}

// EfficiencyRows converts efficiency results to rows
func EfficiencyRows(results []dataprocessing.EfficiencyResult) ([]string, [][]string) {
	headers := []string{"Type", "Numerator", "Denominator", "Efficiency"}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.BikeType,
			formatCount(r.Numerator),
			formatCount(r.Denominator),
			r.String(),
		})
	}
	return headers, rows
}

// DispatchRows converts the dispatch listing to rows
func DispatchRows(views []domain.DispatchView) ([]string, [][]string) {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, v.Values())
	}
	return append([]string(nil), domain.DispatchViewHeaders...), rows
}

// TypeTotalRows lays the per-pivot type totals side by side, one row per type
func TypeTotalRows(totals dataprocessing.TypeTotals) ([]string, [][]string) {
	headers := []string{"Type", "Service By Type", "Service By Type With Keywords", "Touches"}

	var order []string
	for _, list := range [][]dataprocessing.TypeTotal{totals.ServiceByType, totals.WithKeywords, totals.Touches} {
		for _, tt := range list {
			if !contains(order, tt.BikeType) {
				order = append(order, tt.BikeType)
			}
		}
	}

	lookup := func(list []dataprocessing.TypeTotal, bikeType string) string {
		for _, tt := range list {
			if tt.BikeType == bikeType {
				return formatCount(tt.Total)
			}
		}
		return ""
	}

	rows := make([][]string, 0, len(order))
	for _, t := range order {
		rows = append(rows, []string{
			t,
			lookup(totals.ServiceByType, t),
			lookup(totals.WithKeywords, t),
			lookup(totals.Touches, t),
		})
	}
	return headers, rows
}

// TableFor converts one report section. A section that failed to build
// yields an unavailable error; an unknown name yields not found.
func TableFor(report *dataprocessing.Report, name string) (Table, error) {
	if _, ok := tableNaming[name]; !ok {
		return Table{}, apperrors.NewNotFoundError("table " + name)
	}
	if report.SectionFailed(name) {
		return Table{}, apperrors.NewUnavailableError("section " + name + " failed to build").
			WithContext("section", name)
	}

	var headers []string
	var rows [][]string

	switch name {
	case dataprocessing.SectionServiceByType:
		if report.ServiceByType == nil {
			return Table{}, apperrors.NewUnavailableError("service by type table is empty")
		}
		headers, rows = PivotRows(report.ServiceByType)
	case dataprocessing.SectionServiceByTypeKeywords:
		if report.ServiceByTypeWithKeywords == nil {
			return Table{}, apperrors.NewUnavailableError("keyword table is empty")
		}
		headers, rows = PivotRows(report.ServiceByTypeWithKeywords)
	case dataprocessing.SectionTouches:
		if report.Touches == nil {
			return Table{}, apperrors.NewUnavailableError("touches table is empty")
		}
		headers, rows = PivotRows(report.Touches)
	case dataprocessing.SectionDispatches:
		headers, rows = DispatchRows(report.Dispatches)
	case dataprocessing.SectionEfficiency:
		headers, rows = EfficiencyRows(report.Efficiency)
	case SectionTypeTotals:
		headers, rows = TypeTotalRows(report.TypeTotals)
	}

	return newTable(name, headers, rows), nil
}

// TableNames lists every exportable table in display order
func TableNames() []string {
	return append(append([]string(nil), dataprocessing.Sections...), SectionTypeTotals)
}

// ReportTables converts every section that built successfully
func ReportTables(report *dataprocessing.Report) []Table {
	var tables []Table
	for _, name := range TableNames() {
		t, err := TableFor(report, name)
		if err != nil {
			continue
		}
		tables = append(tables, t)
	}
	return tables
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
