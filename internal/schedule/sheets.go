package schedule

import (
	"context"
	"errors"
	"strings"

	"github.com/confly-app/apiserver/config"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsSource reads schedule rows from a Google Sheets range.
type SheetsSource struct {
	svc           *sheets.Service
	spreadsheetID string
	readRange     string
}

// NewSheetsSource constructs a Sheets-backed source from config.
func NewSheetsSource(ctx context.Context, cfg config.ScheduleConfig) (*SheetsSource, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("schedule spreadsheet id is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &SheetsSource{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		readRange:     cfg.ReadRange,
	}, nil
}

// Fetch reads the configured range and returns its raw rows.
func (s *SheetsSource) Fetch(ctx context.Context) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}
