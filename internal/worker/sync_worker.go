// Package worker keeps derived views of the ledger up to date in response to
// entry events.
package worker

import (
	"context"
	"fmt"
	"time"

	"cashbook/internal/amqp"
	"cashbook/internal/log"
	"cashbook/internal/report"
	"cashbook/internal/sheets"
)

// ReportSource computes the report that gets synchronized.
type ReportSource interface {
	IncomeExpenseReport(ctx context.Context, req report.Request) (report.IncomeExpenseReport, error)
}

// SyncConfig selects what the synchronized report contains.
type SyncConfig struct {
	// Period defaults to report.Monthly.
	Period report.Period
	// Currency converts every amount when set.
	Currency string
	// Now defaults to time.Now.
	Now func() time.Time
}

// SyncWorker rewrites the year-to-date report in a spreadsheet whenever the
// ledger changes.
type SyncWorker struct {
	reports  ReportSource
	sheets   sheets.ReportWriter
	period   report.Period
	currency string
	now      func() time.Time
	logger   *log.Logger
}

func NewSyncWorker(reports ReportSource, writer sheets.ReportWriter, cfg SyncConfig, logger *log.Logger) *SyncWorker {
	if cfg.Period == "" {
		cfg.Period = report.Monthly
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{
		reports:  reports,
		sheets:   writer,
		period:   cfg.Period,
		currency: cfg.Currency,
		now:      cfg.Now,
		logger:   logger.WithComponent(log.ComponentSheets),
	}
}

// HandleEntryEvent processes a single entry event from AMQP. Every action
// leads to a full rewrite, so the event only matters for logging.
func (w *SyncWorker) HandleEntryEvent(ctx context.Context, ev amqp.EntryEvent) error {
	w.logger.InfoContext(ctx, "Processing entry event",
		"action", ev.Action,
		log.FieldEntryID, ev.EntryID)

	if _, err := w.Sync(ctx); err != nil {
		return fmt.Errorf("sync report after %s %s: %w", ev.Action, ev.EntryID, err)
	}
	return nil
}

// StartupSync writes the report once so that changes made while the worker
// was down are reflected.
func (w *SyncWorker) StartupSync(ctx context.Context) error {
	ref, err := w.Sync(ctx)
	if err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup sync completed", "range", ref)
	return nil
}

// Sync computes the report from January 1st to the end of today and writes
// it out, returning where it landed.
func (w *SyncWorker) Sync(ctx context.Context) (string, error) {
	start, end := yearToDate(w.now())
	rep, err := w.reports.IncomeExpenseReport(ctx, report.Request{
		Start:    start,
		End:      end,
		Period:   w.period,
		Currency: w.currency,
	})
	if err != nil {
		return "", fmt.Errorf("generate report: %w", err)
	}

	ref, err := w.sheets.ExportReport(ctx, rep)
	if err != nil {
		return "", fmt.Errorf("export report: %w", err)
	}

	w.logger.InfoContext(ctx, "Successfully synced report",
		"range", ref,
		log.FieldPeriod, w.period,
		"buckets", len(rep.IncomeSeries.Points))
	return ref, nil
}

// yearToDate returns January 1st of now's year and the last instant of
// now's day, both UTC.
func yearToDate(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}
