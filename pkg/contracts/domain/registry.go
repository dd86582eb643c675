package domain

// RegistryColumns is the column order of the bike-program registry export.
// Loaders rename source headers onto these names after validating them.
var RegistryColumns = []string{
	"geo", "partner", "unit", "unitNote", "vendorCode", "name", "area", "address",
	"order", "billing", "bikes", "type", "locks", "storage", "startDate", "endDate",
}

// RegistryEntry represents one property enrolled in the house bike program
type RegistryEntry struct {
	Geo        string `json:"geo,omitempty"`
	Partner    string `json:"partner" validate:"required"`
	Unit       string `json:"unit" validate:"required"`
	UnitNote   string `json:"unit_note,omitempty"`
	VendorCode string `json:"vendor_code,omitempty"`
	Name       string `json:"name,omitempty"`
	Area       string `json:"area,omitempty"`
	Address    string `json:"address,omitempty"`
	OrderID    string `json:"order_id" validate:"required"`
	Billing    string `json:"billing,omitempty"`
	BikesRaw   string `json:"bikes"`
	BikeType   string `json:"type" validate:"required"`
	Locks      string `json:"locks,omitempty"`
	Storage    string `json:"storage,omitempty"`
	StartDate  string `json:"start_date,omitempty"`
	EndDate    string `json:"end_date,omitempty"`
}

// HasJoinFields reports whether the fields used for enrichment are all present
func (e RegistryEntry) HasJoinFields() bool {
	return e.Partner != "" && e.BikeType != "" && e.Unit != "" && e.OrderID != "" && e.BikesRaw != ""
}
