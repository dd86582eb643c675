package testutil

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"bikereport/pkg/contracts/domain"
)

// RegistryHeader is the header row of the registry export
var RegistryHeader = []string{
	"GEO", "PARTNER", "UNIT", "UNIT NOTE", "VENDOR CODE", "NAME", "AREA", "ADDRESS",
	"ORDER", "BILLING", "BIKES", "TYPE", "LOCKS", "STORAGE", "START DATE", "END DATE",
}

// DispatchHeader is the header row of the dispatch activity export
var DispatchHeader = []string{"RentalAgreementID", "Dispatch", "Service", "OfficeNote", "DriverNote", "Customer"}

// Registry builds a registry entry with the join fields set
func Registry(order, partner, unit, bikeType, bikes string) domain.RegistryEntry {
	return domain.RegistryEntry{
		Geo:      "WEST",
		Partner:  partner,
		Unit:     unit,
		Name:     partner + " " + unit,
		OrderID:  order,
		BikesRaw: bikes,
		BikeType: bikeType,
	}
}

// Dispatch builds a dispatch row
func Dispatch(order, date, service, officeNote, driverNote string) domain.DispatchRow {
	return domain.DispatchRow{
		RentalAgreementID: order,
		Dispatch:          date,
		Service:           service,
		OfficeNote:        officeNote,
		DriverNote:        driverNote,
	}
}

// ScenarioRegistry is a small registry covering all four tracked bike types.
// Order 1003 carries a non-numeric bike count.
func ScenarioRegistry() []domain.RegistryEntry {
	return []domain.RegistryEntry{
		Registry("1001", "Seaside Rentals", "101", "Yellow 360 YOLO", "3"),
		Registry("1002", "Gulf Stays", "22B", "Generic New Wave", "4"),
		Registry("1003", "Dune House", "7", "Vacayzen New Wave", "two"),
		Registry("1004", "Palm Court", "12", "2022 Vacayzen TAXI", "2"),
	}
}

// ScenarioDispatches exercises exclusion, date bounds, keywords and
// unmatched orders against ScenarioRegistry.
func ScenarioDispatches() []domain.DispatchRow {
	return []domain.DispatchRow{
		Dispatch("1001", "2023-03-01 09:15:00", "BIKE CHECK", "checked chain", ""),
		Dispatch("1001", "2023-03-02", "DELIVERY", "n/a", ""),
		Dispatch("1002", "4/10/2023", "SERVICE", "flat tire on bike 2", "replaced tube"),
		Dispatch("1002", "2023-04-11", "BIKE CHECK - ROUTINE", "all good", ""),
		Dispatch("1003", "2023-05-05", "BIKE CHECK", "pedal loose", "tightened"),
		Dispatch("1004", "2023-06-01", "GART PICKUP", "chain", ""),
		Dispatch("1005", "2023-06-02", "SERVICE", "handlebar", ""),
		Dispatch("1004", "2022-12-31", "SERVICE", "chain", ""),
	}
}

// RegistryRecords renders entries as registry CSV rows
func RegistryRecords(entries []domain.RegistryEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Geo, e.Partner, e.Unit, e.UnitNote, e.VendorCode, e.Name, e.Area, e.Address,
			e.OrderID, e.Billing, e.BikesRaw, e.BikeType, e.Locks, e.Storage, e.StartDate, e.EndDate,
		})
	}
	return rows
}

// DispatchRecords renders rows as dispatch CSV rows
func DispatchRecords(dispatches []domain.DispatchRow) [][]string {
	rows := make([][]string, 0, len(dispatches))
	for _, d := range dispatches {
		rows = append(rows, []string{d.RentalAgreementID, d.Dispatch, d.Service, d.OfficeNote, d.DriverNote, d.Customer})
	}
	return rows
}

// WriteCSV writes header and rows to dir/name and returns the path
func WriteCSV(dir, name string, header []string, rows [][]string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create fixture dir: %w", err)
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create fixture: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return "", err
	}
	if err := w.WriteAll(rows); err != nil {
		return "", err
	}
	return path, nil
}

// WriteScenarioCSV writes the scenario tables as registry.csv and dispatch.csv
func WriteScenarioCSV(dir string) (registryPath, dispatchPath string, err error) {
	registryPath, err = WriteCSV(dir, "registry.csv", RegistryHeader, RegistryRecords(ScenarioRegistry()))
	if err != nil {
		return "", "", err
	}
	dispatchPath, err = WriteCSV(dir, "dispatch.csv", DispatchHeader, DispatchRecords(ScenarioDispatches()))
	if err != nil {
		return "", "", err
	}
	return registryPath, dispatchPath, nil
}
