// Package storagetest holds the behavioural suite every storage.Repository
// implementation must pass.
package storagetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty repository. Cleanup is the caller's job via
// t.Cleanup.
type Factory func(t *testing.T) storage.Repository

var base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Day returns midnight UTC n days after 2025-01-01.
func Day(n int) time.Time { return base.AddDate(0, 0, n) }

// Entry builds a valid entry or fails the test.
func Entry(t *testing.T, name string, typ core.EntryType, amount string, date time.Time, tags ...string) core.LedgerEntry {
	t.Helper()
	e, err := core.NewEntry(core.EntryOptions{
		Name:     name,
		Currency: "USD",
		Amount:   decimal.RequireFromString(amount),
		Type:     typ,
		Date:     date,
		Tags:     tags,
		Now:      func() time.Time { return date },
	})
	require.NoError(t, err)
	return e
}

// Run executes the whole suite against repositories built by newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, newRepo(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newRepo(t)) })
	t.Run("DuplicateCreate", func(t *testing.T) { testDuplicateCreate(t, newRepo(t)) })
	t.Run("UpdateReplacesTags", func(t *testing.T) { testUpdateReplacesTags(t, newRepo(t)) })
	t.Run("DeleteCascades", func(t *testing.T) { testDeleteCascades(t, newRepo(t)) })
	t.Run("TagScenario", func(t *testing.T) { testTagScenario(t, newRepo(t)) })
	t.Run("TagAndSemantics", func(t *testing.T) { testTagAndSemantics(t, newRepo(t)) })
	t.Run("Filters", func(t *testing.T) { testFilters(t, newRepo(t)) })
	t.Run("Pagination", func(t *testing.T) { testPagination(t, newRepo(t)) })
	t.Run("InvalidFilter", func(t *testing.T) { testInvalidFilter(t, newRepo(t)) })
	t.Run("TagNames", func(t *testing.T) { testTagNames(t, newRepo(t)) })
}

func testRoundTrip(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	created := time.Date(2025, 2, 3, 4, 5, 6, 789000000, time.UTC)
	e, err := core.NewEntry(core.EntryOptions{
		Name:        "Groceries",
		Currency:    "eur",
		Amount:      decimal.RequireFromString("42.10"),
		Description: "weekly shop",
		Tags:        []string{"Food", "home", "food"},
		Type:        core.Expense,
		Date:        time.Date(2025, 2, 1, 18, 30, 0, 0, time.FixedZone("CET", 3600)),
		Now:         func() time.Time { return created },
	})
	require.NoError(t, err)

	require.NoError(t, repo.Create(ctx, e))

	got, err := repo.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, e.Equal(got), "round trip changed entry:\nwant %+v\ngot  %+v", e, got)
	assert.Equal(t, []string{"food", "home"}, core.TagNames(got.Tags))
	assert.True(t, got.CreatedAt.Equal(created))
	assert.True(t, got.UpdatedAt.Equal(created))

	plain := Entry(t, "Coffee", core.Expense, "3", Day(3))
	require.NoError(t, repo.Create(ctx, plain))
	got, err = repo.Get(ctx, plain.ID)
	require.NoError(t, err)
	assert.True(t, plain.Equal(got))
	assert.Empty(t, got.Tags)
	assert.Empty(t, got.Description)
}

func testNotFound(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)

	ghost := Entry(t, "Ghost", core.Income, "1", Day(0))
	assert.ErrorIs(t, repo.Update(ctx, ghost), core.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, ghost.ID), core.ErrNotFound)

	n, err := repo.Count(ctx, core.EntryFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testDuplicateCreate(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	e := Entry(t, "Salary", core.Income, "5000", Day(1), "salary")
	require.NoError(t, repo.Create(ctx, e))

	before, err := repo.Count(ctx, core.EntryFilter{})
	require.NoError(t, err)

	dup, err := e.Rebuild(func(o *core.EntryOptions) { o.Tags = []string{"other"} })
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Create(ctx, dup), core.ErrDatabase)

	after, err := repo.Count(ctx, core.EntryFilter{})
	require.NoError(t, err)
	assert.Equal(t, before, after)

	got, err := repo.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"salary"}, core.TagNames(got.Tags), "failed create must not touch existing tags")

	n, err := repo.Count(ctx, core.EntryFilter{Tags: []string{"other"}})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testUpdateReplacesTags(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	e := Entry(t, "Rent", core.Expense, "1200", Day(4), "housing", "fixed")
	require.NoError(t, repo.Create(ctx, e))

	first, err := e.Rebuild(func(o *core.EntryOptions) {
		o.Tags = []string{"fixed", "monthly"}
		o.Amount = decimal.RequireFromString("1250.50")
		o.Description = "new lease"
		o.Now = func() time.Time { return Day(5) }
	})
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, first))

	second, err := first.Rebuild(func(o *core.EntryOptions) {
		o.Tags = []string{"landlord"}
		o.Name = "Rent (Feb)"
		o.Now = func() time.Time { return Day(6) }
	})
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, second))

	got, err := repo.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"landlord"}, core.TagNames(got.Tags))
	assert.Equal(t, "Rent (Feb)", got.Name)
	assert.Equal(t, "new lease", got.Description)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("1250.5")))
	assert.True(t, got.UpdatedAt.Equal(Day(6)))
	assert.True(t, got.CreatedAt.Equal(e.CreatedAt))
	assert.Equal(t, core.Expense, got.Type)

	n, err := repo.Count(ctx, core.EntryFilter{Tags: []string{"housing"}})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testDeleteCascades(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	e := Entry(t, "Gym", core.Expense, "30", Day(2), "health")
	keep := Entry(t, "Doctor", core.Expense, "80", Day(3), "health")
	require.NoError(t, repo.Create(ctx, e))
	require.NoError(t, repo.Create(ctx, keep))

	require.NoError(t, repo.Delete(ctx, e.ID))

	_, err := repo.Get(ctx, e.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	got, err := repo.List(ctx, core.EntryFilter{Tags: []string{"health"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, keep.ID, got[0].ID)

	// re-creating with the same id works once the old row and links are gone
	require.NoError(t, repo.Create(ctx, e))
	got2, err := repo.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"health"}, core.TagNames(got2.Tags))
}

func testTagScenario(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	salary := Entry(t, "Salary", core.Income, "5000", Day(0), "salary")
	rent := Entry(t, "Rent", core.Expense, "1200", Day(1), "housing")
	require.NoError(t, repo.Create(ctx, salary))
	require.NoError(t, repo.Create(ctx, rent))

	f := core.EntryFilter{Tags: []string{"housing"}}
	got, err := repo.List(ctx, f)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rent.ID, got[0].ID)

	n, err := repo.Count(ctx, f)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func testTagAndSemantics(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	ab := Entry(t, "ab", core.Expense, "1", Day(0), "a", "b")
	a := Entry(t, "a", core.Expense, "1", Day(1), "a")
	b := Entry(t, "b", core.Expense, "1", Day(2), "b")
	abc := Entry(t, "abc", core.Expense, "1", Day(3), "a", "b", "c")
	none := Entry(t, "none", core.Expense, "1", Day(4))
	for _, e := range []core.LedgerEntry{ab, a, b, abc, none} {
		require.NoError(t, repo.Create(ctx, e))
	}

	ids := func(f core.EntryFilter) []string {
		t.Helper()
		got, err := repo.List(ctx, f)
		require.NoError(t, err)
		out := make([]string, len(got))
		for i, e := range got {
			out[i] = e.Name
			assert.True(t, core.HasAllTags(e.Tags, mustTags(t, f.Tags)), "entry %s lacks %v", e.Name, f.Tags)
		}
		return out
	}

	assert.Equal(t, []string{"abc", "ab"}, ids(core.EntryFilter{Tags: []string{"a", "b"}}))
	assert.Equal(t, []string{"abc", "ab"}, ids(core.EntryFilter{Tags: []string{"A", "b", "a"}}), "duplicates must not change the required count")
	assert.Equal(t, []string{"abc", "a", "ab"}, ids(core.EntryFilter{Tags: []string{"a"}}))
	assert.Equal(t, []string{"abc"}, ids(core.EntryFilter{Tags: []string{"a", "b", "c"}}))
	assert.Empty(t, ids(core.EntryFilter{Tags: []string{"a", "zzz"}}))
	assert.Len(t, ids(core.EntryFilter{}), 5)

	// dropping a required tag never shrinks the result
	for _, pair := range [][2][]string{
		{{"a", "b", "c"}, {"a", "b"}},
		{{"a", "b"}, {"b"}},
		{{"b"}, nil},
	} {
		narrow, err := repo.Count(ctx, core.EntryFilter{Tags: pair[0]})
		require.NoError(t, err)
		wide, err := repo.Count(ctx, core.EntryFilter{Tags: pair[1]})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, wide, narrow, fmt.Sprintf("%v vs %v", pair[1], pair[0]))
	}
}

func testFilters(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	jan := Entry(t, "jan", core.Income, "10", Day(0))
	mid := Entry(t, "mid", core.Expense, "20", Day(10))
	eur, err := core.NewEntry(core.EntryOptions{
		Name: "eur", Currency: "EUR", Amount: decimal.NewFromInt(5), Type: core.Expense,
		Date: Day(20), Now: func() time.Time { return Day(20) },
	})
	require.NoError(t, err)
	for _, e := range []core.LedgerEntry{jan, mid, eur} {
		require.NoError(t, repo.Create(ctx, e))
	}

	names := func(f core.EntryFilter) []string {
		t.Helper()
		got, err := repo.List(ctx, f)
		require.NoError(t, err)
		n, err := repo.Count(ctx, f)
		require.NoError(t, err)
		assert.EqualValues(t, len(got), n)
		out := make([]string, len(got))
		for i, e := range got {
			out[i] = e.Name
		}
		return out
	}

	assert.Equal(t, []string{"eur", "mid", "jan"}, names(core.EntryFilter{}))
	assert.Equal(t, []string{"mid", "jan"}, names(core.DateRange(Day(0), Day(10))), "bounds are inclusive")
	assert.Equal(t, []string{"mid"}, names(core.DateRange(Day(1), Day(19))))
	start := Day(10)
	assert.Equal(t, []string{"eur", "mid"}, names(core.EntryFilter{Start: &start}))
	end := Day(9)
	assert.Equal(t, []string{"jan"}, names(core.EntryFilter{End: &end}))
	assert.Equal(t, []string{"jan"}, names(core.EntryFilter{Type: core.TypePtr(core.Income)}))
	assert.Equal(t, []string{"eur", "mid"}, names(core.EntryFilter{Type: core.TypePtr(core.Expense)}))
	assert.Equal(t, []string{"eur"}, names(core.EntryFilter{Currency: "eur"}))
	assert.Equal(t, []string{"mid"}, names(core.EntryFilter{Currency: "USD", Type: core.TypePtr(core.Expense)}))
}

func testPagination(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, Entry(t, fmt.Sprintf("e%d", i), core.Expense, "1", Day(i))))
	}

	names := func(f core.EntryFilter) []string {
		t.Helper()
		got, err := repo.List(ctx, f)
		require.NoError(t, err)
		out := make([]string, len(got))
		for i, e := range got {
			out[i] = e.Name
		}
		return out
	}

	assert.Equal(t, []string{"e4", "e3"}, names(core.EntryFilter{Limit: 2}))
	assert.Equal(t, []string{"e2", "e1"}, names(core.EntryFilter{Limit: 2, Offset: 2}))
	assert.Equal(t, []string{"e1", "e0"}, names(core.EntryFilter{Offset: 3}), "offset applies without a limit")
	assert.Empty(t, names(core.EntryFilter{Offset: 10}))

	n, err := repo.Count(ctx, core.EntryFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 5, n, "count ignores pagination")
}

func testInvalidFilter(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	_, err := repo.List(ctx, core.EntryFilter{Tags: []string{"not a tag"}})
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = repo.Count(ctx, core.EntryFilter{Currency: "???"})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func testTagNames(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	names, err := repo.TagNames(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	rent := Entry(t, "Rent", core.Expense, "1200", Day(1), "housing", "fixed")
	require.NoError(t, repo.Create(ctx, rent))
	require.NoError(t, repo.Create(ctx, Entry(t, "Salary", core.Income, "5000", Day(2), "salary", "fixed")))

	names, err = repo.TagNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fixed", "housing", "salary"}, names)

	require.NoError(t, repo.Delete(ctx, rent.ID))
	names, err = repo.TagNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fixed", "salary"}, names, "tags of deleted entries are not listed")
}

func mustTags(t *testing.T, names []string) []core.Tag {
	t.Helper()
	tags, err := core.NewTags(names...)
	require.NoError(t, err)
	return tags
}
