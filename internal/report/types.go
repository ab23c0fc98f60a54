package report

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimeSeriesPoint is the total of one bucket. Timestamp is the bucket start.
type TimeSeriesPoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Value     decimal.Decimal `json:"value"`
	Label     string          `json:"label"`
}

// TimeSeriesData is a named series of points in chronological order.
type TimeSeriesData struct {
	Name   string            `json:"name"`
	Points []TimeSeriesPoint `json:"points"`
}

// PeriodSummary totals a whole report. Net is always Income - Expenses.
type PeriodSummary struct {
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal `json:"net"`
	Currency string          `json:"currency,omitempty"`
}

// IncomeExpenseReport holds an income and an expense series over the same
// buckets plus their summary.
type IncomeExpenseReport struct {
	IncomeSeries  TimeSeriesData `json:"income_series"`
	ExpenseSeries TimeSeriesData `json:"expense_series"`
	Summary       PeriodSummary  `json:"summary"`
	Period        Period         `json:"period"`
	StartDate     time.Time      `json:"start_date"`
	EndDate       time.Time      `json:"end_date"`
	Tags          []string       `json:"tags,omitempty"`
	Currency      string         `json:"currency,omitempty"`
}

// Row is one bucket of a report with both series side by side.
type Row struct {
	Label    string
	Date     time.Time
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Net      decimal.Decimal
}

// Rows zips the two series into table rows.
func (r IncomeExpenseReport) Rows() []Row {
	rows := make([]Row, len(r.IncomeSeries.Points))
	for i, p := range r.IncomeSeries.Points {
		exp := decimal.Zero
		if i < len(r.ExpenseSeries.Points) {
			exp = r.ExpenseSeries.Points[i].Value
		}
		rows[i] = Row{
			Label:    p.Label,
			Date:     p.Timestamp,
			Income:   p.Value,
			Expenses: exp,
			Net:      p.Value.Sub(exp),
		}
	}
	return rows
}

// TagSummary totals the entries carrying one tag. Percentage is relative to
// the total of every entry in the report, so tags overlapping on the same
// entries may add up to more than 100.
type TagSummary struct {
	Tag        string          `json:"tag"`
	Amount     decimal.Decimal `json:"amount"`
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"`
}
