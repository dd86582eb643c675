package domain

// Dispatch table column names as exported by the dispatch-activity feed
const (
	DispatchColRentalAgreementID = "RentalAgreementID"
	DispatchColDispatch          = "Dispatch"
	DispatchColService           = "Service"
	DispatchColOfficeNote        = "OfficeNote"
	DispatchColDriverNote        = "DriverNote"
	DispatchColCustomer          = "Customer"
)

// DispatchColumns lists the columns every dispatch export must carry
var DispatchColumns = []string{
	DispatchColRentalAgreementID,
	DispatchColDispatch,
	DispatchColService,
	DispatchColOfficeNote,
	DispatchColDriverNote,
}

// DispatchRow is one field-service event tied to a rental agreement, as read
// from the source file. Dispatch holds the raw timestamp text.
type DispatchRow struct {
	RentalAgreementID string `json:"rental_agreement_id"`
	Dispatch          string `json:"dispatch"`
	Service           string `json:"service"`
	OfficeNote        string `json:"office_note"`
	DriverNote        string `json:"driver_note"`
	Customer          string `json:"customer,omitempty"`
}
