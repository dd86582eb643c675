package dataprocessing

import (
	"bikereport/pkg/contracts/domain"
)

// DispatchesFor projects the records of one bike type onto the dispatch
// listing columns, keeping input order.
func DispatchesFor(records []domain.ServiceRecord, bikeType string) []domain.DispatchView {
	out := make([]domain.DispatchView, 0)
	for _, rec := range records {
		if rec.BikeType != bikeType {
			continue
		}
		out = append(out, domain.DispatchView{
			Service:    rec.Service,
			OfficeNote: rec.OfficeNote,
			DriverNote: rec.DriverNote,
			Date:       rec.DateString(),
			Partner:    rec.Partner,
			Unit:       rec.Unit,
			Order:      rec.OrderID,
		})
	}
	return out
}

// DefaultBikeType returns the first bike type seen in records, or ""
func DefaultBikeType(records []domain.ServiceRecord) string {
	for _, rec := range records {
		if rec.BikeType != "" {
			return rec.BikeType
		}
	}
	return ""
}

// DistinctBikeTypes lists bike types in first-seen order
func DistinctBikeTypes(records []domain.ServiceRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, rec := range records {
		if rec.BikeType != "" && !seen[rec.BikeType] {
			seen[rec.BikeType] = true
			out = append(out, rec.BikeType)
		}
	}
	return out
}
