package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"cashbook/internal/core"
)

const dayLayout = "2006-01-02"

// parseDate accepts YYYY-MM-DD or RFC 3339. An empty string is the zero time.
// With endOfDay a bare day means its last instant, so inclusive ranges cover
// the whole day.
func parseDate(s string, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dayLayout, s); err == nil {
		if endOfDay {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD or RFC 3339", core.ErrValidation, s)
	}
	return t.UTC(), nil
}

func parseType(s string) (*core.EntryType, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := core.ParseEntryType(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type addCmd struct {
	Type        string   `arg help:"income or expense."`
	Name        string   `arg help:"What the entry is for."`
	Amount      string   `arg help:"Positive amount; dot or comma as decimal separator."`
	Currency    string   `short:"c" default:"EUR" help:"ISO 4217 currency code."`
	Date        string   `help:"Entry date as YYYY-MM-DD or RFC 3339. Defaults to now."`
	Tags        []string `short:"t" help:"Comma-separated tags."`
	Description string   `short:"d" help:"Free-form note."`
}

func (c *addCmd) Run(a *app) error {
	typ, err := core.ParseEntryType(c.Type)
	if err != nil {
		return err
	}
	amount, err := core.ParseAmount(c.Amount)
	if err != nil {
		return err
	}
	date, err := parseDate(c.Date, false)
	if err != nil {
		return err
	}
	e, err := core.NewEntry(core.EntryOptions{
		Name:        c.Name,
		Currency:    c.Currency,
		Amount:      amount,
		Date:        date,
		Description: c.Description,
		Tags:        c.Tags,
		Type:        typ,
	})
	if err != nil {
		return err
	}

	l, err := a.ledger()
	if err != nil {
		return err
	}
	saved, err := l.Add(a.ctx, e)
	if err != nil {
		return err
	}
	printf(a, "%s\n", saved.ID)
	return nil
}

type updateCmd struct {
	ID          string   `arg help:"Entry ID."`
	Name        string   `help:"New name."`
	Amount      string   `help:"New amount."`
	Currency    string   `short:"c" help:"New currency code."`
	Date        string   `help:"New date as YYYY-MM-DD or RFC 3339."`
	Tags        []string `short:"t" help:"Replace the tags with these."`
	ClearTags   bool     `name:"clear-tags" help:"Remove every tag."`
	Description string   `short:"d" help:"New note."`
}

func (c *updateCmd) Run(a *app) error {
	l, err := a.ledger()
	if err != nil {
		return err
	}
	current, err := l.Get(a.ctx, c.ID)
	if err != nil {
		return err
	}

	var amount, date = current.Amount, current.Date
	if c.Amount != "" {
		if amount, err = core.ParseAmount(c.Amount); err != nil {
			return err
		}
	}
	if c.Date != "" {
		if date, err = parseDate(c.Date, false); err != nil {
			return err
		}
	}

	next, err := current.Rebuild(func(o *core.EntryOptions) {
		o.Amount = amount
		o.Date = date
		if c.Name != "" {
			o.Name = c.Name
		}
		if c.Currency != "" {
			o.Currency = c.Currency
		}
		if c.Description != "" {
			o.Description = c.Description
		}
		switch {
		case c.ClearTags:
			o.Tags = nil
		case len(c.Tags) > 0:
			o.Tags = c.Tags
		}
	})
	if err != nil {
		return err
	}

	saved, err := l.Update(a.ctx, next)
	if err != nil {
		return err
	}
	return writeEntry(a.out, saved)
}

type rmCmd struct {
	ID string `arg help:"Entry ID."`
}

func (c *rmCmd) Run(a *app) error {
	l, err := a.ledger()
	if err != nil {
		return err
	}
	if err := l.Delete(a.ctx, c.ID); err != nil {
		return err
	}
	printf(a, "deleted %s\n", c.ID)
	return nil
}

type showCmd struct {
	ID string `arg help:"Entry ID."`
}

func (c *showCmd) Run(a *app) error {
	l, err := a.ledger()
	if err != nil {
		return err
	}
	e, err := l.Get(a.ctx, c.ID)
	if err != nil {
		return err
	}
	return writeEntry(a.out, e)
}

// FilterFlags are shared by commands that select entries.
type FilterFlags struct {
	From     string   `help:"First day included (YYYY-MM-DD)."`
	To       string   `help:"Last day included (YYYY-MM-DD)."`
	Type     string   `help:"income or expense."`
	Currency string   `short:"c" help:"Only entries in this currency."`
	Tags     []string `short:"t" help:"Only entries carrying all of these tags."`
}

func (f FilterFlags) filter() (core.EntryFilter, error) {
	var out core.EntryFilter
	from, err := parseDate(f.From, false)
	if err != nil {
		return out, err
	}
	to, err := parseDate(f.To, true)
	if err != nil {
		return out, err
	}
	if !from.IsZero() {
		out.Start = &from
	}
	if !to.IsZero() {
		out.End = &to
	}
	if out.Type, err = parseType(f.Type); err != nil {
		return out, err
	}
	out.Currency = f.Currency
	out.Tags = f.Tags
	return out, nil
}

type listCmd struct {
	Filter FilterFlags `embed`

	Limit  int `help:"Show at most this many entries." default:"0"`
	Offset int `help:"Skip this many entries." default:"0"`
}

func (c *listCmd) Run(a *app) error {
	f, err := c.Filter.filter()
	if err != nil {
		return err
	}
	f.Limit, f.Offset = c.Limit, c.Offset

	l, err := a.ledger()
	if err != nil {
		return err
	}
	entries, err := l.List(a.ctx, f)
	if err != nil {
		return err
	}
	total, err := l.Count(a.ctx, f)
	if err != nil {
		return err
	}
	if err := writeEntries(a.out, entries); err != nil {
		return err
	}
	printf(a, "%d of %d entries\n", len(entries), total)
	return nil
}

func writeEntries(w io.Writer, entries []core.LedgerEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTYPE\tAMOUNT\tNAME\tTAGS\tID")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Date.Format(dayLayout),
			e.Type,
			e.Money(),
			e.Name,
			strings.Join(core.TagNames(e.Tags), ","),
			e.ID)
	}
	return tw.Flush()
}

func writeEntry(w io.Writer, e core.LedgerEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", e.ID)
	fmt.Fprintf(tw, "Date\t%s\n", e.Date.Format(time.RFC3339))
	fmt.Fprintf(tw, "Type\t%s\n", e.Type)
	fmt.Fprintf(tw, "Name\t%s\n", e.Name)
	fmt.Fprintf(tw, "Amount\t%s\n", e.Money())
	if e.Description != "" {
		fmt.Fprintf(tw, "Description\t%s\n", e.Description)
	}
	fmt.Fprintf(tw, "Tags\t%s\n", strings.Join(core.TagNames(e.Tags), ", "))
	fmt.Fprintf(tw, "Created\t%s\n", e.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "Updated\t%s\n", e.UpdatedAt.Format(time.RFC3339))
	return tw.Flush()
}
