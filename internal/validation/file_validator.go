package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"bikereport/internal/config"
	apperrors "bikereport/internal/errors"
)

// FileValidator checks the source files and output directories used by the
// web service and the CLI before any table is read.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger.With(slog.String("component", "file_validator")),
	}
}

// ValidateSources checks that the configured source can be opened.
// Sheets sources only need a spreadsheet ID; the files are remote.
func (v *FileValidator) ValidateSources(cfg config.SourcesConfig, paths *config.Paths) error {
	resolve := func(name string) string {
		if paths == nil {
			return name
		}
		return paths.GetDataPath(name)
	}

	switch cfg.Kind {
	case config.SourceCSV, "":
		if err := v.ValidateCSVFile(resolve(cfg.RegistryFile)); err != nil {
			return err
		}
		return v.ValidateCSVFile(resolve(cfg.DispatchFile))
	case config.SourceXLSX:
		if err := v.ValidateExcelFile(resolve(cfg.RegistryFile)); err != nil {
			return err
		}
		return v.ValidateExcelFile(resolve(cfg.DispatchFile))
	case config.SourceSheets:
		if strings.TrimSpace(cfg.SpreadsheetID) == "" {
			return apperrors.NewConfigError("sheets source requires a spreadsheet ID", nil)
		}
		if cfg.CredentialsFile != "" {
			return v.ValidateFile(cfg.CredentialsFile)
		}
		return nil
	default:
		return apperrors.NewConfigError(fmt.Sprintf("unknown source kind %q", cfg.Kind), nil)
	}
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	// Verify it's writable by creating a test file
	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return apperrors.NewSourceError(fmt.Sprintf("file %s does not exist", path), err).
			WithContext("file", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewSourceError(fmt.Sprintf("failed to stat file %s", path), err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return apperrors.NewSourceError(fmt.Sprintf("%s is a directory, not a file", path), nil)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewSourceError(fmt.Sprintf("file %s is not readable", path), err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateExcelFile checks if a file is a readable workbook
func (v *FileValidator) ValidateExcelFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" && ext != ".xlsm" {
		v.logger.Error("File is not an Excel workbook",
			slog.String("file", path),
			slog.String("extension", ext))
		return apperrors.NewSourceError(fmt.Sprintf("file %s is not an Excel workbook (extension: %s)", path, ext), nil)
	}

	// Lock files left behind by an open Excel session
	if strings.HasPrefix(filepath.Base(path), "~$") {
		v.logger.Warn("Skipping temporary Excel file",
			slog.String("file", path))
		return apperrors.NewSourceError(fmt.Sprintf("file %s is a temporary Excel file", path), nil)
	}

	return nil
}

// ValidateCSVFile checks if a file is a readable CSV file
func (v *FileValidator) ValidateCSVFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" {
		v.logger.Error("File is not a CSV file",
			slog.String("file", path),
			slog.String("extension", ext))
		return apperrors.NewSourceError(fmt.Sprintf("file %s is not a CSV file (extension: %s)", path, ext), nil)
	}

	return nil
}
