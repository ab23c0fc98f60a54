package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"cashbook/internal/core"

	"gopkg.in/yaml.v3"
)

// Format is an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts csv, json and yaml/yml in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", core.ErrValidation, s)
}

// CSVHeader is the first row of a CSV report export.
var CSVHeader = []string{"Period", "Date", "Income", "Expenses", "Net"}

// Export writes rep to w in the given format.
func Export(w io.Writer, rep IncomeExpenseReport, format Format) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, append([][]string{CSVHeader}, Table(rep)...))
	case FormatJSON:
		return writeJSON(w, rep)
	case FormatYAML:
		return writeYAML(w, newReportDocument(rep))
	}
	return fmt.Errorf("%w: unknown export format %q", core.ErrValidation, format)
}

// Table renders the rows of rep as strings, one bucket per row, without the
// header.
func Table(rep IncomeExpenseReport) [][]string {
	digits := displayDigits(rep.Summary.Currency)
	rows := rep.Rows()
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{
			string(rep.Period),
			r.Label,
			r.Income.StringFixed(digits),
			r.Expenses.StringFixed(digits),
			r.Net.StringFixed(digits),
		}
	}
	return out
}

// TagCSVHeader is the first row of a CSV tag export.
var TagCSVHeader = []string{"Tag", "Amount", "Count", "Percentage"}

// ExportTags writes tag summaries to w in the given format.
func ExportTags(w io.Writer, tags []TagSummary, format Format) error {
	switch format {
	case FormatCSV:
		rows := [][]string{TagCSVHeader}
		for _, t := range tags {
			rows = append(rows, []string{
				t.Tag,
				t.Amount.StringFixed(2),
				strconv.Itoa(t.Count),
				strconv.FormatFloat(t.Percentage, 'f', 2, 64),
			})
		}
		return writeCSV(w, rows)
	case FormatJSON:
		if tags == nil {
			tags = []TagSummary{}
		}
		return writeJSON(w, tags)
	case FormatYAML:
		docs := make([]tagDocument, len(tags))
		for i, t := range tags {
			docs[i] = tagDocument{
				Tag:        t.Tag,
				Amount:     t.Amount.String(),
				Count:      t.Count,
				Percentage: t.Percentage,
			}
		}
		return writeYAML(w, docs)
	}
	return fmt.Errorf("%w: unknown export format %q", core.ErrValidation, format)
}

func displayDigits(code string) int32 {
	if code == "" {
		return 2
	}
	return core.CurrencyFraction(code)
}

func writeCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write yaml: %w", err)
	}
	return enc.Close()
}

// yaml.v3 would encode decimals as structs, so documents carry strings.
type reportDocument struct {
	Period    string          `yaml:"period"`
	StartDate string          `yaml:"start_date"`
	EndDate   string          `yaml:"end_date"`
	Currency  string          `yaml:"currency,omitempty"`
	Tags      []string        `yaml:"tags,omitempty"`
	Summary   summaryDocument `yaml:"summary"`
	Income    []pointDocument `yaml:"income"`
	Expenses  []pointDocument `yaml:"expenses"`
}

type summaryDocument struct {
	Income   string `yaml:"income"`
	Expenses string `yaml:"expenses"`
	Net      string `yaml:"net"`
	Currency string `yaml:"currency,omitempty"`
}

type pointDocument struct {
	Label string `yaml:"label"`
	Date  string `yaml:"date"`
	Value string `yaml:"value"`
}

type tagDocument struct {
	Tag        string  `yaml:"tag"`
	Amount     string  `yaml:"amount"`
	Count      int     `yaml:"count"`
	Percentage float64 `yaml:"percentage"`
}

func newReportDocument(rep IncomeExpenseReport) reportDocument {
	points := func(s TimeSeriesData) []pointDocument {
		out := make([]pointDocument, len(s.Points))
		for i, p := range s.Points {
			out[i] = pointDocument{Label: p.Label, Date: p.Timestamp.Format(time.DateOnly), Value: p.Value.String()}
		}
		return out
	}
	return reportDocument{
		Period:    string(rep.Period),
		StartDate: rep.StartDate.Format(time.DateOnly),
		EndDate:   rep.EndDate.Format(time.DateOnly),
		Currency:  rep.Currency,
		Tags:      rep.Tags,
		Summary: summaryDocument{
			Income:   rep.Summary.Income.String(),
			Expenses: rep.Summary.Expenses.String(),
			Net:      rep.Summary.Net.String(),
			Currency: rep.Summary.Currency,
		},
		Income:   points(rep.IncomeSeries),
		Expenses: points(rep.ExpenseSeries),
	}
}
