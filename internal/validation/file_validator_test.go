package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikereport/internal/config"
	apperrors "bikereport/internal/errors"
	"bikereport/internal/shared/testutil"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("test"), 0644))
	return path
}

func TestFileValidator_ValidateFile(t *testing.T) {
	dir := t.TempDir()
	logger, logs := testutil.NewTestLogger(t)
	v := NewFileValidator(logger)

	assert.NoError(t, v.ValidateFile(writeFile(t, dir, "a.csv")))

	err := v.ValidateFile(filepath.Join(dir, "missing.csv"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSource))
	assert.Contains(t, err.Error(), "does not exist")
	assert.True(t, logs.ContainsMessage("File does not exist"))

	err = v.ValidateFile(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestFileValidator_ValidateExcelFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name          string
		file          string
		wantErr       bool
		errorContains string
	}{
		{name: "xlsx", file: "registry.xlsx"},
		{name: "upper case extension", file: "REGISTRY.XLSX"},
		{name: "csv", file: "registry.csv", wantErr: true, errorContains: "not an Excel workbook"},
		{name: "lock file", file: "~$registry.xlsx", wantErr: true, errorContains: "temporary Excel file"},
	}

	v := NewFileValidator(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateExcelFile(writeFile(t, dir, tt.file))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFileValidator_ValidateCSVFile(t *testing.T) {
	dir := t.TempDir()
	v := NewFileValidator(nil)

	assert.NoError(t, v.ValidateCSVFile(writeFile(t, dir, "dispatch.csv")))

	err := v.ValidateCSVFile(writeFile(t, dir, "dispatch.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a CSV file")
}

func TestFileValidator_ValidateSources(t *testing.T) {
	dir := t.TempDir()
	paths := config.NewPaths(dir, config.PathsConfig{DataDir: "data"})
	require.NoError(t, paths.EnsureDirectories())
	registry, dispatch, err := testutil.WriteScenarioCSV(paths.DataDir)
	require.NoError(t, err)

	v := NewFileValidator(nil)

	csvCfg := config.SourcesConfig{Kind: config.SourceCSV, RegistryFile: filepath.Base(registry), DispatchFile: filepath.Base(dispatch)}
	assert.NoError(t, v.ValidateSources(csvCfg, paths))

	missing := csvCfg
	missing.DispatchFile = "none.csv"
	assert.True(t, apperrors.IsType(v.ValidateSources(missing, paths), apperrors.ErrTypeSource))

	xlsxCfg := csvCfg
	xlsxCfg.Kind = config.SourceXLSX
	assert.Error(t, v.ValidateSources(xlsxCfg, paths))

	sheets := config.SourcesConfig{Kind: config.SourceSheets}
	assert.True(t, apperrors.IsType(v.ValidateSources(sheets, paths), apperrors.ErrTypeConfig))
	sheets.SpreadsheetID = "abc"
	assert.NoError(t, v.ValidateSources(sheets, paths))

	assert.True(t, apperrors.IsType(v.ValidateSources(config.SourcesConfig{Kind: "ftp"}, paths), apperrors.ErrTypeConfig))
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports", "2023")
	v := NewFileValidator(nil)

	require.NoError(t, v.ValidateOutputDirectory(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	_, err = os.Stat(filepath.Join(dir, ".write_test"))
	assert.True(t, os.IsNotExist(err))
}
