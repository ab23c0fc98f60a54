package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cashbook/internal/amqp"
	"cashbook/internal/cli"
	"cashbook/internal/core"
	"cashbook/internal/log"
	"cashbook/internal/report"
	"cashbook/internal/worker"
)

// reportRange resolves the inclusive range of a report. The end defaults to
// the end of today and the start to January 1st of the end's year.
func reportRange(from, to string, now time.Time) (time.Time, time.Time, error) {
	end, err := parseDate(to, true)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.IsZero() {
		end, _ = parseDate(now.UTC().Format(dayLayout), true)
	}
	start, err := parseDate(from, false)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start.IsZero() {
		start = time.Date(end.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return start, end, nil
}

// output returns stdout or the named file, and a func closing it.
func output(a *app, path string) (io.Writer, func() error, error) {
	if path == "" {
		return a.out, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, f.Close, nil
}

type reportCmd struct {
	From     string   `help:"First day included (YYYY-MM-DD). Defaults to January 1st of the last day's year."`
	To       string   `help:"Last day included (YYYY-MM-DD). Defaults to today."`
	Period   string   `short:"p" default:"monthly" help:"daily, weekly, monthly, quarterly or yearly."`
	Tags     []string `short:"t" help:"Only entries carrying all of these tags."`
	Currency string   `short:"c" help:"Convert every amount to this currency."`
	Format   string   `short:"f" default:"csv" help:"csv, json or yaml."`
	Output   string   `short:"o" help:"Write to this file instead of stdout."`
	Sheets   bool     `help:"Also write the report to the configured Google spreadsheet."`
}

func (c *reportCmd) Run(a *app) error {
	period, err := report.ParsePeriod(c.Period)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	start, end, err := reportRange(c.From, c.To, time.Now())
	if err != nil {
		return err
	}

	l, err := a.ledger()
	if err != nil {
		return err
	}
	gen := cli.NewReportGenerator(a.cfg, l, a.converter(), a.logger())
	rep, err := gen.IncomeExpenseReport(a.ctx, report.Request{
		Start:    start,
		End:      end,
		Period:   period,
		Tags:     c.Tags,
		Currency: c.Currency,
	})
	if err != nil {
		return err
	}

	w, closeOut, err := output(a, c.Output)
	if err != nil {
		return err
	}
	if err := report.Export(w, rep, format); err != nil {
		closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return err
	}

	if c.Sheets {
		client, err := cli.NewSheetsClient(a.ctx, a.cfg)
		if err != nil {
			return err
		}
		rng, err := client.ExportReport(a.ctx, rep)
		if err != nil {
			return err
		}
		a.logger().Info("Report written to spreadsheet", "range", rng)
	}
	return nil
}

type tagsCmd struct {
	From     string   `help:"First day included (YYYY-MM-DD)."`
	To       string   `help:"Last day included (YYYY-MM-DD)."`
	Type     string   `help:"income or expense; both when empty."`
	Tags     []string `short:"t" help:"Only entries carrying all of these tags."`
	Currency string   `short:"c" help:"Convert every amount to this currency."`
	Format   string   `short:"f" default:"csv" help:"csv, json or yaml."`
	Names    bool     `help:"Only print the tags in use."`
}

func (c *tagsCmd) Run(a *app) error {
	l, err := a.ledger()
	if err != nil {
		return err
	}
	if c.Names {
		names, err := l.TagNames(a.ctx)
		if err != nil {
			return err
		}
		for _, n := range names {
			printf(a, "%s\n", n)
		}
		return nil
	}

	format, err := report.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	typ, err := parseType(c.Type)
	if err != nil {
		return err
	}
	start, err := parseDate(c.From, false)
	if err != nil {
		return err
	}
	end, err := parseDate(c.To, true)
	if err != nil {
		return err
	}

	gen := cli.NewReportGenerator(a.cfg, l, a.converter(), a.logger())
	tags, err := gen.TagReport(a.ctx, report.TagRequest{
		Start:    start,
		End:      end,
		Type:     typ,
		Tags:     c.Tags,
		Currency: c.Currency,
	})
	if err != nil {
		return err
	}
	return report.ExportTags(a.out, tags, format)
}

type rateCmd struct {
	From   string `arg help:"Currency to convert from."`
	To     string `arg help:"Currency to convert to."`
	Amount string `arg optional help:"Amount to convert. Prints the rate when omitted."`
}

func (c *rateCmd) Run(a *app) error {
	conv := a.converter()
	if c.Amount == "" {
		from, err := core.NormalizeCurrencyCode(c.From)
		if err != nil {
			return err
		}
		to, err := core.NormalizeCurrencyCode(c.To)
		if err != nil {
			return err
		}
		rate, err := conv.GetExchangeRate(a.ctx, from, to)
		if err != nil {
			return err
		}
		printf(a, "1 %s = %g %s\n", from, rate, to)
		return nil
	}

	value, err := core.ParseAmount(c.Amount)
	if err != nil {
		return err
	}
	amount, err := core.NewAmount(value, c.From)
	if err != nil {
		return err
	}
	converted, err := conv.Convert(a.ctx, amount, c.To)
	if err != nil {
		return err
	}
	printf(a, "%s = %s\n", amount, converted)
	return nil
}

type eventsCmd struct {
	SyncSheets bool   `name:"sync-sheets" help:"Rewrite the year-to-date report in the configured spreadsheet on every event."`
	Period     string `short:"p" default:"monthly" help:"Period of the synchronized report."`
	Currency   string `short:"c" help:"Convert the synchronized report to this currency."`
}

func (c *eventsCmd) Run(a *app) error {
	if !a.cfg.AMQPEnabled() {
		return fmt.Errorf("entry events are not configured: set AMQP_URL")
	}

	handle := func(ctx context.Context, ev amqp.EntryEvent) error { return nil }
	if c.SyncSheets {
		sync, err := c.syncWorker(a)
		if err != nil {
			return err
		}
		if err := sync.StartupSync(a.ctx); err != nil {
			a.logger().Warn("Startup sync failed", log.FieldError, err)
		}
		handle = sync.HandleEntryEvent
	}

	client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer client.Close()

	logger := a.logger().WithComponent(log.ComponentAMQP)
	logger.Info("Waiting for entry events", "queue", a.cfg.AMQPQueue, "sync_sheets", c.SyncSheets)
	err = client.ConsumeEntryEvents(a.ctx, func(ev amqp.EntryEvent) error {
		if err := printEvent(a.out, ev); err != nil {
			return err
		}
		return handle(a.ctx, ev)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *eventsCmd) syncWorker(a *app) (*worker.SyncWorker, error) {
	period, err := report.ParsePeriod(c.Period)
	if err != nil {
		return nil, err
	}
	client, err := cli.NewSheetsClient(a.ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	l, err := a.ledger()
	if err != nil {
		return nil, err
	}
	gen := cli.NewReportGenerator(a.cfg, l, a.converter(), a.logger())
	return worker.NewSyncWorker(gen, client, worker.SyncConfig{Period: period, Currency: c.Currency}, a.logger()), nil
}

func printEvent(w io.Writer, ev amqp.EntryEvent) error {
	body, err := ev.ToJSON()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", body)
	return err
}
