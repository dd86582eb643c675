package exporter

import "strconv"

// formatCount formats a pivot value. Counts and touches are whole numbers,
// so no decimals are written for them.
func formatCount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatCell formats an optional pivot cell; absent cells are empty
func formatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return formatCount(*v)
}
