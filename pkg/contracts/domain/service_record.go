package domain

import (
	"time"
)

// DateLayout is the calendar-date format used for report dates
const DateLayout = "2006-01-02"

// ServiceRecord is one row of the joined registry/dispatch table.
// Records are produced by the joiner and only gain derived fields afterwards.
type ServiceRecord struct {
	Partner      string    `json:"partner"`
	BikeType     string    `json:"type"`
	Unit         string    `json:"unit"`
	OrderID      string    `json:"order"`
	Date         time.Time `json:"date"`
	Service      string    `json:"service"`
	OfficeNote   string    `json:"office_note"`
	DriverNote   string    `json:"driver_note"`
	Customer     string    `json:"customer,omitempty"`
	BikeCount    *int      `json:"bike_count,omitempty"`
	BikeCountRaw string    `json:"-"`

	// Enriched is false for dispatch-only rows with no registry match
	Enriched bool `json:"enriched"`

	// Derived fields
	Touched           int  `json:"touched"`
	HasIncludeKeyword bool `json:"has_include_keyword"`
	HasExcludeKeyword bool `json:"has_exclude_keyword"`
}

// DateString returns the record date formatted as YYYY-MM-DD
func (r ServiceRecord) DateString() string {
	return r.Date.Format(DateLayout)
}

// DispatchViewHeaders are the display names of the type-scoped dispatch listing
var DispatchViewHeaders = []string{"Service", "Office Note", "Driver Note", "Date", "Partner", "Unit", "Order"}

// DispatchView is the projected row shown in the dispatch listing
type DispatchView struct {
	Service    string `json:"Service"`
	OfficeNote string `json:"Office Note"`
	DriverNote string `json:"Driver Note"`
	Date       string `json:"Date"`
	Partner    string `json:"Partner"`
	Unit       string `json:"Unit"`
	Order      string `json:"Order"`
}

// Values returns the row in DispatchViewHeaders order
func (v DispatchView) Values() []string {
	return []string{v.Service, v.OfficeNote, v.DriverNote, v.Date, v.Partner, v.Unit, v.Order}
}
