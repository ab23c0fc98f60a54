// Package report turns ledger entries into time-bucketed income and expense
// series and per-tag breakdowns.
//
// Bucketing follows the strategy pattern: every Period has a Bucketer that
// knows where its calendar buckets start and how they are labelled.
package report

import (
	"fmt"
	"strings"
	"time"

	"cashbook/internal/core"
)

// Period is the granularity of a report.
type Period string

const (
	Daily     Period = "Daily"
	Weekly    Period = "Weekly"
	Monthly   Period = "Monthly"
	Quarterly Period = "Quarterly"
	Yearly    Period = "Yearly"
)

func (p Period) String() string { return string(p) }

// ParsePeriod accepts the period names and their short forms, in any case.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "day":
		return Daily, nil
	case "weekly", "week":
		return Weekly, nil
	case "monthly", "month":
		return Monthly, nil
	case "quarterly", "quarter":
		return Quarterly, nil
	case "yearly", "year", "annual":
		return Yearly, nil
	}
	return "", fmt.Errorf("%w: unknown period %q", core.ErrValidation, s)
}

// Bucketer is the strategy interface for one period granularity. All times
// are handled in UTC.
type Bucketer interface {
	// Start returns the start of the bucket containing t.
	Start(t time.Time) time.Time
	// Next returns the start of the bucket after the one starting at start.
	Next(start time.Time) time.Time
	// Label names the bucket starting at start.
	Label(start time.Time) string
}

// DailyBucketer buckets by calendar day.
type DailyBucketer struct{}

func (DailyBucketer) Start(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (DailyBucketer) Next(start time.Time) time.Time { return start.AddDate(0, 0, 1) }

func (DailyBucketer) Label(start time.Time) string { return start.Format("2006-01-02") }

// WeeklyBucketer buckets by ISO week, Monday to Sunday.
type WeeklyBucketer struct{}

func (WeeklyBucketer) Start(t time.Time) time.Time {
	day := DailyBucketer{}.Start(t)
	// Monday is 0
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func (WeeklyBucketer) Next(start time.Time) time.Time { return start.AddDate(0, 0, 7) }

// Label uses the ISO week-numbering year, so 2024-12-30 is in 2025-W01.
func (WeeklyBucketer) Label(start time.Time) string {
	year, week := start.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// MonthlyBucketer buckets by calendar month.
type MonthlyBucketer struct{}

func (MonthlyBucketer) Start(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func (MonthlyBucketer) Next(start time.Time) time.Time { return start.AddDate(0, 1, 0) }

func (MonthlyBucketer) Label(start time.Time) string { return start.Format("2006-01") }

// QuarterlyBucketer buckets by calendar quarter starting in January.
type QuarterlyBucketer struct{}

func (QuarterlyBucketer) Start(t time.Time) time.Time {
	t = t.UTC()
	first := time.Month((int(t.Month())-1)/3*3 + 1)
	return time.Date(t.Year(), first, 1, 0, 0, 0, 0, time.UTC)
}

func (QuarterlyBucketer) Next(start time.Time) time.Time { return start.AddDate(0, 3, 0) }

func (QuarterlyBucketer) Label(start time.Time) string {
	return fmt.Sprintf("%04d-Q%d", start.Year(), (int(start.Month())-1)/3+1)
}

// YearlyBucketer buckets by calendar year.
type YearlyBucketer struct{}

func (YearlyBucketer) Start(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}

func (YearlyBucketer) Next(start time.Time) time.Time { return start.AddDate(1, 0, 0) }

func (YearlyBucketer) Label(start time.Time) string { return fmt.Sprintf("%04d", start.Year()) }

// periodStrategies maps periods to their bucketers.
var periodStrategies = map[Period]Bucketer{
	Daily:     DailyBucketer{},
	Weekly:    WeeklyBucketer{},
	Monthly:   MonthlyBucketer{},
	Quarterly: QuarterlyBucketer{},
	Yearly:    YearlyBucketer{},
}

// GetBucketer returns the bucketer for p.
func GetBucketer(p Period) (Bucketer, error) {
	b, ok := periodStrategies[p]
	if !ok {
		return nil, fmt.Errorf("%w: unknown period %q", core.ErrValidation, p)
	}
	return b, nil
}

// Buckets returns the start of every bucket from the one containing start to
// the one containing end, in order.
func Buckets(b Bucketer, start, end time.Time) []time.Time {
	var out []time.Time
	last := b.Start(end)
	for cur := b.Start(start); !cur.After(last); cur = b.Next(cur) {
		out = append(out, cur)
	}
	return out
}
