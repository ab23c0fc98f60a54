package sheets

import (
	"context"

	"cashbook/internal/report"
)

// ReportWriter publishes a computed report somewhere outside the ledger and
// returns a reference to where it landed.
type ReportWriter interface {
	ExportReport(ctx context.Context, rep report.IncomeExpenseReport) (ref string, err error)
}
