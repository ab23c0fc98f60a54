// Package sheets exports reports to a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cashbook/internal/report"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is used when Config.SheetName is empty.
const DefaultSheetName = "Report"

// Config selects the target spreadsheet and the service account used to
// write to it. CredentialsJSON wins over CredentialsFile.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ReportWriter = (*Client)(nil)

// NewClient creates a client authenticated with the configured service
// account. Extra options are passed to the Sheets service.
func NewClient(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	credentialsJSON, err := loadCredentials(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts = append([]goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, opts...)
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", cfg.SpreadsheetID)
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	if strings.TrimSpace(sheetName) == "" {
		sheetName = DefaultSheetName
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

func loadCredentials(ctx context.Context, cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		slog.DebugContext(ctx, "Using inline JSON credentials")
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.DebugContext(ctx, "Read credentials file", "path", cfg.CredentialsFile, "size", len(data))
		return data, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
}

// ExportReport overwrites the sheet from A1 with the report table and a
// total row, and returns the updated range.
func (c *Client) ExportReport(ctx context.Context, rep report.IncomeExpenseReport) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A1", c.sheetName)
	vr := &gsheet.ValueRange{Values: reportValues(rep)}

	resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}

	slog.InfoContext(ctx, "Report exported to Google Sheets",
		"range", resp.UpdatedRange,
		"rows", resp.UpdatedRows)
	return resp.UpdatedRange, nil
}

func reportValues(rep report.IncomeExpenseReport) [][]any {
	values := make([][]any, 0, len(rep.IncomeSeries.Points)+2)
	values = append(values, toRow(report.CSVHeader))
	for _, row := range report.Table(rep) {
		values = append(values, toRow(row))
	}
	s := rep.Summary
	values = append(values, []any{"Total", s.Currency, s.Income.String(), s.Expenses.String(), s.Net.String()})
	return values
}

func toRow(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
