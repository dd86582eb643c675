package dataprocessing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"google.golang.org/api/option"

	"bikereport/internal/config"
	apperrors "bikereport/internal/errors"
	"bikereport/internal/shared/testutil"
)

func TestCSVSource(t *testing.T) {
	regPath, dispPath, err := testutil.WriteScenarioCSV(t.TempDir())
	require.NoError(t, err)

	src := NewCSVSource(regPath, dispPath)
	ctx := context.Background()

	registry, err := LoadRegistry(ctx, src)
	require.NoError(t, err)
	assert.Len(t, registry, 4)

	dispatches, err := LoadDispatches(ctx, src)
	require.NoError(t, err)
	assert.Len(t, dispatches, 8)
	assert.Equal(t, "csv", src.Name())
}

func TestCSVSource_MissingFile(t *testing.T) {
	src := NewCSVSource(filepath.Join(t.TempDir(), "nope.csv"), "")
	_, err := LoadRegistry(context.Background(), src)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
}

func TestCSVSource_CancelledContext(t *testing.T) {
	regPath, dispPath, err := testutil.WriteScenarioCSV(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewCSVSource(regPath, dispPath).ReadTable(ctx, TableRegistry)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadCSV_StripsBOM(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("\ufeffRentalAgreementID,Dispatch\n1001,2023-01-01\n1002\n"))
	require.NoError(t, err)
	assert.Equal(t, "RentalAgreementID", table.Header[0])
	assert.Len(t, table.Rows, 2)
}

func writeWorkbook(t *testing.T, path, sheet string, header []string, rows [][]string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
		require.NoError(t, f.DeleteSheet("Sheet1"))
	}

	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cellRef, &r))
	}
	require.NoError(t, f.SaveAs(path))
}

func TestXLSXSource(t *testing.T) {
	dir := t.TempDir()
	regPath := filepath.Join(dir, "registry.xlsx")
	dispPath := filepath.Join(dir, "dispatch.xlsx")

	writeWorkbook(t, regPath, "Properties", testutil.RegistryHeader, testutil.RegistryRecords(testutil.ScenarioRegistry()))
	writeWorkbook(t, dispPath, "Sheet1", testutil.DispatchHeader, testutil.DispatchRecords(testutil.ScenarioDispatches()))

	src := NewXLSXSource(regPath, "Properties", dispPath, "DispatchActivities")
	ctx := context.Background()

	registry, err := LoadRegistry(ctx, src)
	require.NoError(t, err)
	require.Len(t, registry, 4)
	assert.Equal(t, "Gulf Stays", registry[1].Partner)

	dispatches, err := LoadDispatches(ctx, src)
	require.NoError(t, err)
	assert.Len(t, dispatches, 8)
}

func TestSheetsSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		values := [][]interface{}{}
		header := testutil.DispatchHeader
		rows := testutil.DispatchRecords(testutil.ScenarioDispatches())
		if strings.Contains(r.URL.Path, "Properties") {
			header = testutil.RegistryHeader
			rows = testutil.RegistryRecords(testutil.ScenarioRegistry())
		}
		for _, row := range append([][]string{header}, rows...) {
			cells := make([]interface{}, len(row))
			for i, c := range row {
				cells[i] = c
			}
			values = append(values, cells)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"range":          "Properties!A1:P5",
			"majorDimension": "ROWS",
			"values":         values,
		})
	}))
	defer server.Close()

	ctx := context.Background()
	src, err := NewSheetsSource(ctx, "sheet-id", "Properties", "DispatchActivities", "",
		option.WithEndpoint(server.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(server.Client()))
	require.NoError(t, err)

	registry, err := LoadRegistry(ctx, src)
	require.NoError(t, err)
	assert.Len(t, registry, 4)

	dispatches, err := LoadDispatches(ctx, src)
	require.NoError(t, err)
	assert.Len(t, dispatches, 8)
}

func TestNewSheetsSource_RequiresID(t *testing.T) {
	_, err := NewSheetsSource(context.Background(), "", "a", "b", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestValuesToTable(t *testing.T) {
	table := valuesToTable([][]interface{}{
		{"RentalAgreementID", "Bikes"},
		{float64(1001), nil},
	})
	assert.Equal(t, []string{"RentalAgreementID", "Bikes"}, table.Header)
	assert.Equal(t, [][]string{{"1001", ""}}, table.Rows)
}

func TestNewSource(t *testing.T) {
	paths := config.NewPaths(t.TempDir(), config.PathsConfig{DataDir: "data"})
	ctx := context.Background()

	src, err := NewSource(ctx, config.SourcesConfig{Kind: config.SourceCSV, RegistryFile: "r.csv", DispatchFile: "d.csv"}, paths)
	require.NoError(t, err)
	assert.Equal(t, "csv", src.Name())

	src, err = NewSource(ctx, config.SourcesConfig{Kind: config.SourceXLSX, RegistryFile: "r.xlsx", DispatchFile: "d.xlsx"}, paths)
	require.NoError(t, err)
	assert.Equal(t, "xlsx", src.Name())

	_, err = NewSource(ctx, config.SourcesConfig{Kind: "ftp"}, paths)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}
