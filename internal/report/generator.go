package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/log"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the number of conversions in flight.
const DefaultConcurrency = 4

// Lister is the read side of the ledger used by reports.
type Lister interface {
	List(ctx context.Context, f core.EntryFilter) ([]core.LedgerEntry, error)
}

// Converter normalizes amounts to a target currency.
type Converter interface {
	ConvertAmount(ctx context.Context, value decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// Generator computes reports. It keeps no state between calls.
type Generator struct {
	lister      Lister
	converter   Converter
	concurrency int
	logger      *log.Logger
}

type Option func(*Generator)

// WithConcurrency sets how many entries are converted at once. Values below
// one are ignored.
func WithConcurrency(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.concurrency = n
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGenerator creates a generator. converter may be nil, in which case
// requests naming a target currency fail.
func NewGenerator(lister Lister, converter Converter, opts ...Option) *Generator {
	g := &Generator{
		lister:      lister,
		converter:   converter,
		concurrency: DefaultConcurrency,
		logger:      log.Discard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.WithComponent(log.ComponentReport)
	return g
}

// Request describes an income/expense report. Start and End are inclusive.
// Without a Currency every matching entry must share one currency; amounts are
// never summed across currencies unconverted.
type Request struct {
	Start    time.Time
	End      time.Time
	Period   Period
	Tags     []string
	Currency string
}

// TagRequest describes a per-tag breakdown. A nil Type includes both types;
// zero Start or End leaves that side open. Currency follows the same rule as
// in Request.
type TagRequest struct {
	Start    time.Time
	End      time.Time
	Type     *core.EntryType
	Tags     []string
	Currency string
}

// IncomeExpenseReport buckets the matching entries and sums income and
// expenses per bucket. A single failed conversion fails the whole report.
func (g *Generator) IncomeExpenseReport(ctx context.Context, req Request) (IncomeExpenseReport, error) {
	if !req.Start.Before(req.End) {
		return IncomeExpenseReport{}, fmt.Errorf("%w: start %s is not before end %s",
			core.ErrInvalidDateRange, req.Start.Format(time.DateOnly), req.End.Format(time.DateOnly))
	}
	bucketer, err := GetBucketer(req.Period)
	if err != nil {
		return IncomeExpenseReport{}, err
	}
	target, err := g.targetCurrency(req.Currency)
	if err != nil {
		return IncomeExpenseReport{}, err
	}

	f := core.DateRange(req.Start, req.End)
	f.Tags = req.Tags
	entries, err := g.lister.List(ctx, f)
	if err != nil {
		return IncomeExpenseReport{}, fmt.Errorf("list entries: %w", err)
	}
	summaryCurrency, err := reportCurrency(entries, target)
	if err != nil {
		return IncomeExpenseReport{}, err
	}
	amounts, err := g.convertAll(ctx, entries, target)
	if err != nil {
		return IncomeExpenseReport{}, err
	}

	rep := IncomeExpenseReport{
		IncomeSeries:  TimeSeriesData{Name: "Income", Points: []TimeSeriesPoint{}},
		ExpenseSeries: TimeSeriesData{Name: "Expenses", Points: []TimeSeriesPoint{}},
		Period:        req.Period,
		StartDate:     req.Start.UTC(),
		EndDate:       req.End.UTC(),
		Tags:          normalizedTags(req.Tags),
		Currency:      target,
	}
	rep.Summary = PeriodSummary{
		Income:   decimal.Zero,
		Expenses: decimal.Zero,
		Net:      decimal.Zero,
		Currency: summaryCurrency,
	}
	if len(entries) == 0 {
		return rep, nil
	}

	starts := Buckets(bucketer, req.Start, req.End)
	index := make(map[time.Time]int, len(starts))
	income := make([]decimal.Decimal, len(starts))
	expenses := make([]decimal.Decimal, len(starts))
	for i, s := range starts {
		index[s] = i
		income[i] = decimal.Zero
		expenses[i] = decimal.Zero
	}

	for i, e := range entries {
		b, ok := index[bucketer.Start(e.Date)]
		if !ok {
			continue
		}
		switch e.Type {
		case core.Income:
			income[b] = income[b].Add(amounts[i])
			rep.Summary.Income = rep.Summary.Income.Add(amounts[i])
		case core.Expense:
			expenses[b] = expenses[b].Add(amounts[i])
			rep.Summary.Expenses = rep.Summary.Expenses.Add(amounts[i])
		}
	}
	rep.Summary.Net = rep.Summary.Income.Sub(rep.Summary.Expenses)

	for i, s := range starts {
		label := bucketer.Label(s)
		rep.IncomeSeries.Points = append(rep.IncomeSeries.Points, TimeSeriesPoint{Timestamp: s, Value: income[i], Label: label})
		rep.ExpenseSeries.Points = append(rep.ExpenseSeries.Points, TimeSeriesPoint{Timestamp: s, Value: expenses[i], Label: label})
	}

	g.logger.DebugContext(ctx, "Income/expense report computed",
		log.FieldPeriod, req.Period,
		"entries", len(entries),
		"buckets", len(starts))
	return rep, nil
}

// TagReport sums matching entries per tag. An entry counts towards every tag
// it carries. Results are ordered by amount, largest first, then by name.
func (g *Generator) TagReport(ctx context.Context, req TagRequest) ([]TagSummary, error) {
	if !req.Start.IsZero() && !req.End.IsZero() && !req.Start.Before(req.End) {
		return nil, fmt.Errorf("%w: start %s is not before end %s",
			core.ErrInvalidDateRange, req.Start.Format(time.DateOnly), req.End.Format(time.DateOnly))
	}
	target, err := g.targetCurrency(req.Currency)
	if err != nil {
		return nil, err
	}

	f := core.EntryFilter{Type: req.Type, Tags: req.Tags}
	if !req.Start.IsZero() {
		f.Start = &req.Start
	}
	if !req.End.IsZero() {
		f.End = &req.End
	}
	entries, err := g.lister.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	if _, err := reportCurrency(entries, target); err != nil {
		return nil, err
	}
	amounts, err := g.convertAll(ctx, entries, target)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	byTag := map[string]*TagSummary{}
	for i, e := range entries {
		total = total.Add(amounts[i])
		for _, t := range e.Tags {
			s, ok := byTag[t.Name()]
			if !ok {
				s = &TagSummary{Tag: t.Name(), Amount: decimal.Zero}
				byTag[t.Name()] = s
			}
			s.Amount = s.Amount.Add(amounts[i])
			s.Count++
		}
	}

	out := make([]TagSummary, 0, len(byTag))
	for _, s := range byTag {
		if total.IsPositive() {
			s.Percentage = s.Amount.Div(total).Mul(decimal.NewFromInt(100)).InexactFloat64()
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Tag < out[j].Tag
	})
	return out, nil
}

func (g *Generator) targetCurrency(code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", nil
	}
	target, err := core.NormalizeCurrencyCode(code)
	if err != nil {
		return "", err
	}
	if g.converter == nil {
		return "", fmt.Errorf("%w: converting to %s needs a currency converter", core.ErrValidation, target)
	}
	return target, nil
}

// convertAll returns the amount of every entry in target, or the raw amounts
// when target is empty.
func (g *Generator) convertAll(ctx context.Context, entries []core.LedgerEntry, target string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(entries))
	if target == "" {
		for i, e := range entries {
			out[i] = e.Amount
		}
		return out, nil
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i, e := range entries {
		i, e := i, e
		eg.Go(func() error {
			v, err := g.converter.ConvertAmount(ctx, e.Amount, e.Currency, target)
			if err != nil {
				return fmt.Errorf("convert entry %s: %w", e.ID, err)
			}
			out[i] = v
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		g.logger.ErrorContext(ctx, "Conversion failed, report aborted",
			log.NewFields().WithOperation(log.OpConvert).WithError(err).ToSlice()...)
		return nil, err
	}
	return out, nil
}

// reportCurrency is target when converting, else the currency shared by every
// entry. Entries in more than one currency need a target.
func reportCurrency(entries []core.LedgerEntry, target string) (string, error) {
	if target != "" {
		return target, nil
	}
	code := ""
	for _, e := range entries {
		if code == "" {
			code = e.Currency
		} else if e.Currency != code {
			return "", fmt.Errorf("%w: entries mix %s and %s, a target currency is required",
				core.ErrValidation, code, e.Currency)
		}
	}
	return code, nil
}

func normalizedTags(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	tags, err := core.NewTags(raw...)
	if err != nil {
		return raw
	}
	return core.TagNames(tags)
}
