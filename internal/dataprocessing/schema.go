package dataprocessing

import (
	"fmt"
	"strings"

	apperrors "bikereport/internal/errors"
	"bikereport/pkg/contracts/domain"
)

// TableKind identifies one of the two source tables
type TableKind string

const (
	TableRegistry TableKind = "registry"
	TableDispatch TableKind = "dispatch"
)

// RawTable is a table as read from a source: one header row plus data rows
type RawTable struct {
	Header []string
	Rows   [][]string
}

// registryKeyColumns are the registry positions that feed the join. Their
// headers must match one of the aliases before the positional rename.
var registryKeyColumns = []struct {
	pos     int
	aliases []string
}{
	{1, []string{"partner"}},
	{2, []string{"unit"}},
	{8, []string{"order", "orderid", "order#", "rentalagreementid"}},
	{10, []string{"bikes", "bikecount", "bike#", "numberofbikes"}},
	{11, []string{"type", "biketype"}},
}

var dispatchAliases = map[string][]string{
	domain.DispatchColRentalAgreementID: {"rentalagreementid", "rentalagreement", "orderid"},
	domain.DispatchColDispatch:          {"dispatch", "dispatchdate", "date"},
	domain.DispatchColService:           {"service"},
	domain.DispatchColOfficeNote:        {"officenote", "officenotes"},
	domain.DispatchColDriverNote:        {"drivernote", "drivernotes"},
	domain.DispatchColCustomer:          {"customer", "origin"},
}

// normalizeHeader folds case and drops separators so "Office Note",
// "office_note" and "OfficeNote" compare equal.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(h)) {
		switch r {
		case ' ', '_', '-', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func matchesAlias(header string, aliases []string) bool {
	n := normalizeHeader(header)
	for _, a := range aliases {
		if n == a {
			return true
		}
	}
	return false
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ParseRegistry validates the registry header and maps rows onto
// RegistryEntry by position. The column count must match RegistryColumns
// and the join columns must carry recognizable headers.
func ParseRegistry(t *RawTable) ([]domain.RegistryEntry, error) {
	if t == nil || len(t.Header) == 0 {
		return nil, apperrors.NewSchemaError(string(TableRegistry), "registry table has no header row")
	}

	header := trimTrailingEmpty(t.Header)
	if len(header) != len(domain.RegistryColumns) {
		return nil, apperrors.NewSchemaError(string(TableRegistry),
			fmt.Sprintf("registry table has %d columns, expected %d", len(header), len(domain.RegistryColumns))).
			WithContext("columns", header)
	}

	for _, key := range registryKeyColumns {
		pos := key.pos
		if !matchesAlias(header[pos], key.aliases) {
			return nil, apperrors.NewSchemaError(string(TableRegistry),
				fmt.Sprintf("registry column %d is %q, expected %s", pos+1, header[pos], domain.RegistryColumns[pos])).
				WithContext("column", domain.RegistryColumns[pos])
		}
	}

	entries := make([]domain.RegistryEntry, 0, len(t.Rows))
	for i, row := range t.Rows {
		if isBlankRow(row) {
			continue
		}
		if len(trimTrailingEmpty(row)) > len(header) {
			return nil, apperrors.NewSchemaError(string(TableRegistry),
				fmt.Sprintf("registry row %d has %d cells, expected at most %d", i+2, len(row), len(header)))
		}
		entries = append(entries, domain.RegistryEntry{
			Geo:        cell(row, 0),
			Partner:    cell(row, 1),
			Unit:       cell(row, 2),
			UnitNote:   cell(row, 3),
			VendorCode: cell(row, 4),
			Name:       cell(row, 5),
			Area:       cell(row, 6),
			Address:    cell(row, 7),
			OrderID:    normalizeKey(cell(row, 8)),
			Billing:    cell(row, 9),
			BikesRaw:   cell(row, 10),
			BikeType:   cell(row, 11),
			Locks:      cell(row, 12),
			Storage:    cell(row, 13),
			StartDate:  cell(row, 14),
			EndDate:    cell(row, 15),
		})
	}
	return entries, nil
}

// ParseDispatches locates the dispatch columns by header name. Every column in
// domain.DispatchColumns is required; Customer is optional.
func ParseDispatches(t *RawTable) ([]domain.DispatchRow, error) {
	if t == nil || len(t.Header) == 0 {
		return nil, apperrors.NewSchemaError(string(TableDispatch), "dispatch table has no header row")
	}

	index := make(map[string]int, len(dispatchAliases))
	for i, h := range t.Header {
		for col, aliases := range dispatchAliases {
			if _, seen := index[col]; seen {
				continue
			}
			if matchesAlias(h, aliases) {
				index[col] = i
				break
			}
		}
	}

	var missing []string
	for _, col := range domain.DispatchColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewSchemaError(string(TableDispatch),
			fmt.Sprintf("dispatch table is missing column(s) %s", strings.Join(missing, ", "))).
			WithContext("missing", missing)
	}

	customer, hasCustomer := index[domain.DispatchColCustomer]
	if !hasCustomer {
		customer = -1
	}

	rows := make([]domain.DispatchRow, 0, len(t.Rows))
	for _, row := range t.Rows {
		if isBlankRow(row) {
			continue
		}
		rows = append(rows, domain.DispatchRow{
			RentalAgreementID: normalizeKey(cell(row, index[domain.DispatchColRentalAgreementID])),
			Dispatch:          cell(row, index[domain.DispatchColDispatch]),
			Service:           cell(row, index[domain.DispatchColService]),
			OfficeNote:        cell(row, index[domain.DispatchColOfficeNote]),
			DriverNote:        cell(row, index[domain.DispatchColDriverNote]),
			Customer:          cell(row, customer),
		})
	}
	return rows, nil
}

// normalizeKey strips a trailing ".0" that spreadsheet exports add to integer
// IDs so "1001.0" joins with "1001".
func normalizeKey(k string) string {
	return strings.TrimSuffix(strings.TrimSpace(k), ".0")
}

func trimTrailingEmpty(row []string) []string {
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1]) == "" {
		end--
	}
	return row[:end]
}
