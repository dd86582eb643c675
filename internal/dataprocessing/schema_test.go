package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "bikereport/internal/errors"
	"bikereport/internal/shared/testutil"
)

func TestParseRegistry(t *testing.T) {
	table := &RawTable{
		Header: testutil.RegistryHeader,
		Rows:   testutil.RegistryRecords(testutil.ScenarioRegistry()),
	}

	entries, err := ParseRegistry(table)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, "Seaside Rentals", entries[0].Partner)
	assert.Equal(t, "1001", entries[0].OrderID)
	assert.Equal(t, "Yellow 360 YOLO", entries[0].BikeType)
	assert.Equal(t, "3", entries[0].BikesRaw)
	assert.Equal(t, "WEST", entries[0].Geo)
}

func TestParseRegistry_SchemaErrors(t *testing.T) {
	shortHeader := append([]string(nil), testutil.RegistryHeader[:15]...)

	swapped := append([]string(nil), testutil.RegistryHeader...)
	swapped[10], swapped[11] = swapped[11], swapped[10]

	tests := []struct {
		name  string
		table *RawTable
	}{
		{"nil table", nil},
		{"empty header", &RawTable{}},
		{"column count", &RawTable{Header: shortHeader}},
		{"misplaced join column", &RawTable{Header: swapped}},
		{"row too wide", &RawTable{
			Header: testutil.RegistryHeader,
			Rows:   [][]string{append(make([]string, 16), "extra")},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRegistry(tt.table)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSchema))
		})
	}
}

func TestParseRegistry_TolerantHeaders(t *testing.T) {
	header := append([]string(nil), testutil.RegistryHeader...)
	header[8] = "Order ID"
	header[10] = "bike_count"
	header[11] = "Bike Type"
	header = append(header, "", "")

	entries, err := ParseRegistry(&RawTable{
		Header: header,
		Rows: [][]string{
			{"", "P", "U", "", "", "", "", "", "1001.0", "", "2", "Generic New Wave"},
			{"", "", "", ""},
		},
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "1001", entries[0].OrderID)
	assert.Empty(t, entries[0].EndDate)
}

func TestParseDispatches(t *testing.T) {
	table := &RawTable{
		Header: []string{"Customer", "Office Note", "Service", "Dispatch", "Driver Note", "RentalAgreementID", "Ignored"},
		Rows: [][]string{
			{"Web", "chain off", "SERVICE", "2023-03-01", "fixed", "1001", "x"},
			{"", "", "", "", "", "", ""},
			{"", "short row"},
		},
	}

	rows, err := ParseDispatches(table)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "1001", rows[0].RentalAgreementID)
	assert.Equal(t, "chain off", rows[0].OfficeNote)
	assert.Equal(t, "fixed", rows[0].DriverNote)
	assert.Equal(t, "Web", rows[0].Customer)
	assert.Equal(t, "short row", rows[1].OfficeNote)
	assert.Empty(t, rows[1].Service)
}

func TestParseDispatches_MissingColumns(t *testing.T) {
	_, err := ParseDispatches(&RawTable{Header: []string{"RentalAgreementID", "Dispatch", "Service"}})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSchema))
	assert.Contains(t, err.Error(), "OfficeNote")
	assert.Contains(t, err.Error(), "DriverNote")
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "officenote", normalizeHeader("Office Note"))
	assert.Equal(t, "officenote", normalizeHeader(" office_note "))
	assert.Equal(t, "rentalagreementid", normalizeHeader("\ufeffRentalAgreementID"))
}
