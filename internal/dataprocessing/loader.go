package dataprocessing

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"bikereport/internal/config"
	apperrors "bikereport/internal/errors"
	"bikereport/pkg/contracts/domain"
)

// Source reads the raw registry and dispatch tables from external storage
type Source interface {
	Name() string
	ReadTable(ctx context.Context, kind TableKind) (*RawTable, error)
}

// LoadRegistry reads and validates the registry table from src
func LoadRegistry(ctx context.Context, src Source) ([]domain.RegistryEntry, error) {
	t, err := src.ReadTable(ctx, TableRegistry)
	if err != nil {
		return nil, err
	}
	return ParseRegistry(t)
}

// LoadDispatches reads and validates the dispatch table from src
func LoadDispatches(ctx context.Context, src Source) ([]domain.DispatchRow, error) {
	t, err := src.ReadTable(ctx, TableDispatch)
	if err != nil {
		return nil, err
	}
	return ParseDispatches(t)
}

// NewSource builds the Source selected by cfg.Kind. Relative file names are
// resolved against the data directory.
func NewSource(ctx context.Context, cfg config.SourcesConfig, paths *config.Paths) (Source, error) {
	resolve := func(name string) string {
		if paths == nil {
			return name
		}
		return paths.GetDataPath(name)
	}

	switch cfg.Kind {
	case config.SourceCSV, "":
		return NewCSVSource(resolve(cfg.RegistryFile), resolve(cfg.DispatchFile)), nil
	case config.SourceXLSX:
		return NewXLSXSource(resolve(cfg.RegistryFile), cfg.RegistrySheet, resolve(cfg.DispatchFile), cfg.DispatchSheet), nil
	case config.SourceSheets:
		return NewSheetsSource(ctx, cfg.SpreadsheetID, cfg.RegistrySheet, cfg.DispatchSheet, cfg.CredentialsFile)
	default:
		return nil, apperrors.NewConfigError(fmt.Sprintf("unknown source kind %q", cfg.Kind), nil)
	}
}

// CSVSource reads both tables from local delimited text files
type CSVSource struct {
	registryPath string
	dispatchPath string
}

// NewCSVSource creates a CSV source for the two table files
func NewCSVSource(registryPath, dispatchPath string) *CSVSource {
	return &CSVSource{registryPath: registryPath, dispatchPath: dispatchPath}
}

// Name implements Source
func (s *CSVSource) Name() string { return "csv" }

// ReadTable implements Source
func (s *CSVSource) ReadTable(ctx context.Context, kind TableKind) (*RawTable, error) {
	path := s.registryPath
	if kind == TableDispatch {
		path = s.dispatchPath
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("open %s table", kind), err).WithContext("path", path)
	}
	defer f.Close()

	t, err := ReadCSV(f)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("read %s table", kind), err).WithContext("path", path)
	}
	return t, nil
}

// ReadCSV reads a header row and data rows from r. A leading UTF-8 BOM is
// ignored and rows may have differing lengths.
func ReadCSV(r io.Reader) (*RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &RawTable{}, nil
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return &RawTable{Header: header, Rows: records[1:]}, nil
}
