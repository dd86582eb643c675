package dataprocessing

import (
	"encoding/json"
	"sort"

	"bikereport/internal/config"
	"bikereport/pkg/contracts/domain"
)

// ValueField selects the record field a pivot aggregates
type ValueField int

const (
	FieldPartner ValueField = iota
	FieldTouched
)

// AggFunc is the aggregation applied per cell
type AggFunc int

const (
	AggCount AggFunc = iota
	AggSum
)

// OrderPolicy fixes the order of pivot rows and columns
type OrderPolicy string

const (
	OrderLexicographic OrderPolicy = config.OrderLexicographic
	OrderFirstSeen     OrderPolicy = config.OrderFirstSeen
)

type cellKey struct {
	service  string
	bikeType string
}

// Pivot is a sparse service x bike type matrix. Absent cells read as zero.
type Pivot struct {
	Rows    []string
	Columns []string
	cells   map[cellKey]float64
}

// NewPivot returns an empty pivot
func NewPivot() *Pivot {
	return &Pivot{cells: make(map[cellKey]float64)}
}

// BuildPivot aggregates records by service label (rows) and bike type
// (columns). Records without a bike type are skipped. AggCount counts records
// with a non-empty value field; AggSum adds the field's numeric value.
func BuildPivot(records []domain.ServiceRecord, value ValueField, agg AggFunc, order OrderPolicy) *Pivot {
	p := NewPivot()
	rowSeen := make(map[string]bool)
	colSeen := make(map[string]bool)

	for _, rec := range records {
		if rec.BikeType == "" || rec.Service == "" {
			continue
		}

		var v float64
		switch agg {
		case AggCount:
			if value == FieldPartner && rec.Partner == "" {
				continue
			}
			v = 1
		case AggSum:
			if value == FieldTouched {
				v = float64(rec.Touched)
			}
		}

		if !rowSeen[rec.Service] {
			rowSeen[rec.Service] = true
			p.Rows = append(p.Rows, rec.Service)
		}
		if !colSeen[rec.BikeType] {
			colSeen[rec.BikeType] = true
			p.Columns = append(p.Columns, rec.BikeType)
		}
		p.cells[cellKey{rec.Service, rec.BikeType}] += v
	}

	if order != OrderFirstSeen {
		sort.Strings(p.Rows)
		sort.Strings(p.Columns)
	}
	return p
}

// Set stores a cell value, adding the row and column if they are new
func (p *Pivot) Set(service, bikeType string, v float64) {
	if !containsString(p.Rows, service) {
		p.Rows = append(p.Rows, service)
	}
	if !containsString(p.Columns, bikeType) {
		p.Columns = append(p.Columns, bikeType)
	}
	p.cells[cellKey{service, bikeType}] = v
}

// Get returns the cell value, or 0 for an absent row, column or cell
func (p *Pivot) Get(service, bikeType string) float64 {
	return p.cells[cellKey{service, bikeType}]
}

// Has reports whether any record contributed to the cell
func (p *Pivot) Has(service, bikeType string) bool {
	_, ok := p.cells[cellKey{service, bikeType}]
	return ok
}

// Column returns the non-empty cells of one bike type keyed by service.
// An unknown bike type yields an empty map.
func (p *Pivot) Column(bikeType string) map[string]float64 {
	col := make(map[string]float64)
	for _, s := range p.Rows {
		if v, ok := p.cells[cellKey{s, bikeType}]; ok {
			col[s] = v
		}
	}
	return col
}

// ColumnTotal sums one bike type
func (p *Pivot) ColumnTotal(bikeType string) float64 {
	var total float64
	for _, s := range p.Rows {
		total += p.cells[cellKey{s, bikeType}]
	}
	return total
}

// RowTotal sums one service label
func (p *Pivot) RowTotal(service string) float64 {
	var total float64
	for _, t := range p.Columns {
		total += p.cells[cellKey{service, t}]
	}
	return total
}

// GrandTotal sums every cell
func (p *Pivot) GrandTotal() float64 {
	var total float64
	for _, v := range p.cells {
		total += v
	}
	return total
}

// Empty reports whether the pivot has no cells
func (p *Pivot) Empty() bool {
	return len(p.cells) == 0
}

// Matrix returns the dense values in Rows x Columns order with absent cells
// as nil.
func (p *Pivot) Matrix() [][]*float64 {
	m := make([][]*float64, len(p.Rows))
	for i, s := range p.Rows {
		m[i] = make([]*float64, len(p.Columns))
		for j, t := range p.Columns {
			if v, ok := p.cells[cellKey{s, t}]; ok {
				v := v
				m[i][j] = &v
			}
		}
	}
	return m
}

type pivotJSON struct {
	Rows    []string     `json:"rows"`
	Columns []string     `json:"columns"`
	Values  [][]*float64 `json:"values"`
}

// MarshalJSON encodes the pivot as rows, columns and a dense value matrix
func (p *Pivot) MarshalJSON() ([]byte, error) {
	rows, cols := p.Rows, p.Columns
	if rows == nil {
		rows = []string{}
	}
	if cols == nil {
		cols = []string{}
	}
	return json.Marshal(pivotJSON{Rows: rows, Columns: cols, Values: p.Matrix()})
}

// TypeTotal is the column total of one bike type of interest
type TypeTotal struct {
	BikeType string  `json:"type"`
	Total    float64 `json:"total"`
}

// TypeTotals returns the column totals for types, reading absent types as 0
func (p *Pivot) TypeTotals(types []string) []TypeTotal {
	out := make([]TypeTotal, 0, len(types))
	for _, t := range types {
		out = append(out, TypeTotal{BikeType: t, Total: p.ColumnTotal(t)})
	}
	return out
}
