package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cashbook/internal/report"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func testReport() report.IncomeExpenseReport {
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return report.IncomeExpenseReport{
		IncomeSeries: report.TimeSeriesData{Name: "Income", Points: []report.TimeSeriesPoint{
			{Timestamp: jan, Value: decimal.NewFromInt(5000), Label: "2025-01"},
		}},
		ExpenseSeries: report.TimeSeriesData{Name: "Expenses", Points: []report.TimeSeriesPoint{
			{Timestamp: jan, Value: decimal.NewFromInt(1200), Label: "2025-01"},
		}},
		Summary: report.PeriodSummary{
			Income:   decimal.NewFromInt(5000),
			Expenses: decimal.NewFromInt(1200),
			Net:      decimal.NewFromInt(3800),
			Currency: "EUR",
		},
		Period:    report.Monthly,
		StartDate: jan,
		EndDate:   jan.AddDate(0, 1, -1),
	}
}

func TestExportReport(t *testing.T) {
	var gotMethod, gotPath, gotOption string
	var gotBody gsheet.ValueRange
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotOption = r.URL.Query().Get("valueInputOption")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(gsheet.UpdateValuesResponse{
			SpreadsheetId: "sheet-1",
			UpdatedRange:  "Report!A1:E3",
			UpdatedRows:   3,
		})
	}))
	defer srv.Close()

	ctx := context.Background()
	svc, err := gsheet.NewService(ctx,
		goption.WithHTTPClient(srv.Client()),
		goption.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	c := NewWithService(svc, "sheet-1", "")

	ref, err := c.ExportReport(ctx, testReport())
	if err != nil {
		t.Fatalf("ExportReport: %v", err)
	}
	if ref != "Report!A1:E3" {
		t.Errorf("unexpected ref %q", ref)
	}
	if gotMethod != http.MethodPut {
		t.Errorf("expected PUT, got %s", gotMethod)
	}
	if !strings.HasPrefix(gotPath, "/v4/spreadsheets/sheet-1/values/") || !strings.Contains(gotPath, "Report!A1") {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotOption != "USER_ENTERED" {
		t.Errorf("unexpected valueInputOption %q", gotOption)
	}
	if len(gotBody.Values) != 3 {
		t.Fatalf("expected header, one row and total, got %v", gotBody.Values)
	}
	if gotBody.Values[0][0] != "Period" || gotBody.Values[1][1] != "2025-01" || gotBody.Values[2][4] != "3800" {
		t.Errorf("unexpected values %v", gotBody.Values)
	}
}

func TestExportReportAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 403, "message": "denied"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	svc, err := gsheet.NewService(context.Background(),
		goption.WithHTTPClient(srv.Client()),
		goption.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if _, err := NewWithService(svc, "sheet-1", "Data").ExportReport(context.Background(), testReport()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewClientValidation(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, Config{}); err == nil {
		t.Error("expected error for missing spreadsheet id")
	}
	if _, err := NewClient(ctx, Config{SpreadsheetID: "x"}); err == nil || !strings.Contains(err.Error(), "credentials") {
		t.Errorf("expected credentials error, got %v", err)
	}
	if _, err := NewClient(ctx, Config{SpreadsheetID: "x", CredentialsFile: "/does/not/exist.json"}); err == nil {
		t.Error("expected error for unreadable credentials file")
	}
}

func TestUninitializedClient(t *testing.T) {
	c := &Client{spreadsheetID: "x", sheetName: "Report"}
	if _, err := c.ExportReport(context.Background(), testReport()); err == nil {
		t.Fatal("expected error without a service")
	}
}
