package dataprocessing

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	apperrors "bikereport/internal/errors"
)

// SheetsSource reads both tables from tabs of one Google spreadsheet
type SheetsSource struct {
	service       *sheets.Service
	spreadsheetID string
	registryRange string
	dispatchRange string
}

// NewSheetsSource creates a Sheets client. With an empty credentials file the
// client falls back to application default credentials.
func NewSheetsSource(ctx context.Context, spreadsheetID, registrySheet, dispatchSheet, credentialsFile string, opts ...option.ClientOption) (*SheetsSource, error) {
	if spreadsheetID == "" {
		return nil, apperrors.NewConfigError("sheets source requires a spreadsheet ID", nil)
	}

	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	opts = append(opts, option.WithScopes(sheets.SpreadsheetsReadonlyScope))

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, apperrors.NewSourceError("failed to create sheets service", err)
	}

	return &SheetsSource{
		service:       service,
		spreadsheetID: spreadsheetID,
		registryRange: registrySheet,
		dispatchRange: dispatchSheet,
	}, nil
}

// Name implements Source
func (s *SheetsSource) Name() string { return "sheets" }

// ReadTable implements Source
func (s *SheetsSource) ReadTable(ctx context.Context, kind TableKind) (*RawTable, error) {
	readRange := s.registryRange
	if kind == TableDispatch {
		readRange = s.dispatchRange
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, apperrors.NewSourceError(fmt.Sprintf("failed to read %s range %q", kind, readRange), err)
	}
	return valuesToTable(resp.Values), nil
}

func valuesToTable(values [][]interface{}) *RawTable {
	rows := make([][]string, len(values))
	for i, row := range values {
		rows[i] = make([]string, len(row))
		for j, v := range row {
			if v == nil {
				continue
			}
			rows[i][j] = fmt.Sprint(v)
		}
	}
	return rowsToTable(rows)
}
