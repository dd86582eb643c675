package dataprocessing

// Warning kinds
const (
	WarningDuplicateKey        = "duplicate_join_key"
	WarningNonNumericBikeCount = "non_numeric_bike_count"
)

// Warning is a recoverable data problem found while building a report
type Warning struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	OrderID string `json:"order_id,omitempty"`
}

// SectionError records a report section that could not be computed
type SectionError struct {
	Section string `json:"section"`
	Message string `json:"message"`
}
