package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cashbook/internal/core"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so that lexical order of the stored text equals
// chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// tagBatchSize keeps tag lookups under SQLite's bound-parameter limit.
const tagBatchSize = 500

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// SQLiteRepository is the embedded-database Repository. A single mutex is held
// for the whole of every call, so at most one transaction runs at a time.
type SQLiteRepository struct {
	mu      sync.Mutex
	db      *sql.DB
	path    string
	queries *Queries
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := ValidateSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("validate schema: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		path:    dbPath,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (r *SQLiteRepository) Path() string { return r.path }

// SchemaVersion returns the version marker of the open database.
func (r *SQLiteRepository) SchemaVersion(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, _, err := SchemaVersion(ctx, r.db)
	return v, err
}

func (r *SQLiteRepository) withTx(ctx context.Context, op string, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.DatabaseError(op+": begin", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "operation", op, "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return core.DatabaseError(op+": commit", err)
	}
	return nil
}

// Create inserts e and links its tags in one transaction.
func (r *SQLiteRepository) Create(ctx context.Context, e core.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.withTx(ctx, "create entry", func(q *Queries) error {
		if err := q.InsertEntry(ctx, toRow(e)); err != nil {
			return core.DatabaseError("insert entry", err)
		}
		return replaceTags(ctx, q, e)
	})
	if err != nil {
		return err
	}

	slog.DebugContext(ctx, "Entry saved to SQLite",
		"id", e.ID,
		"type", e.Type,
		"amount", e.Amount.String(),
		"currency", e.Currency,
		"tags", len(e.Tags))
	return nil
}

// Get returns the entry with id including its tags ordered by name.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, err := r.queries.GetEntry(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LedgerEntry{}, core.NotFoundError(id)
	}
	if err != nil {
		return core.LedgerEntry{}, core.DatabaseError("get entry", err)
	}
	tags, err := r.queries.TagNamesByEntry(ctx, []string{id})
	if err != nil {
		return core.LedgerEntry{}, core.DatabaseError("get entry tags", err)
	}
	return fromRow(row, tags[id])
}

// Update overwrites the mutable fields of an existing entry and replaces its
// whole tag set.
func (r *SQLiteRepository) Update(ctx context.Context, e core.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.withTx(ctx, "update entry", func(q *Queries) error {
		n, err := q.UpdateEntry(ctx, toRow(e))
		if err != nil {
			return core.DatabaseError("update entry", err)
		}
		if n == 0 {
			return core.NotFoundError(e.ID)
		}
		return replaceTags(ctx, q, e)
	})
	if err != nil {
		return err
	}

	slog.DebugContext(ctx, "Entry updated in SQLite", "id", e.ID, "tags", len(e.Tags))
	return nil
}

// Delete removes the entry; its tag links go with it through the cascade.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.withTx(ctx, "delete entry", func(q *Queries) error {
		n, err := q.DeleteEntry(ctx, id)
		if err != nil {
			return core.DatabaseError("delete entry", err)
		}
		if n == 0 {
			return core.NotFoundError(id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.DebugContext(ctx, "Entry deleted from SQLite", "id", id)
	return nil
}

// List returns the entries matching f, newest first.
func (r *SQLiteRepository) List(ctx context.Context, f core.EntryFilter) ([]core.LedgerEntry, error) {
	f, err := f.Normalize()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.queries.ListEntries(ctx, f)
	if err != nil {
		return nil, core.DatabaseError("list entries", err)
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	tags := make(map[string][]string, len(rows))
	for start := 0; start < len(ids); start += tagBatchSize {
		end := min(start+tagBatchSize, len(ids))
		batch, err := r.queries.TagNamesByEntry(ctx, ids[start:end])
		if err != nil {
			return nil, core.DatabaseError("list entry tags", err)
		}
		for id, names := range batch {
			tags[id] = names
		}
	}

	out := make([]core.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		e, err := fromRow(row, tags[row.ID])
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Count returns how many entries match f; pagination is ignored.
func (r *SQLiteRepository) Count(ctx context.Context, f core.EntryFilter) (int64, error) {
	f, err := f.Normalize()
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.queries.CountEntries(ctx, f)
	if err != nil {
		return 0, core.DatabaseError("count entries", err)
	}
	return n, nil
}

// TagNames returns every tag attached to a stored entry, sorted.
func (r *SQLiteRepository) TagNames(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	names, err := r.queries.TagNames(ctx)
	if err != nil {
		return nil, core.DatabaseError("list tags", err)
	}
	return names, nil
}

// replaceTags removes every link of e and re-links its current tag set.
func replaceTags(ctx context.Context, q *Queries, e core.LedgerEntry) error {
	if err := q.DeleteEntryTags(ctx, e.ID); err != nil {
		return core.DatabaseError("clear entry tags", err)
	}
	for _, t := range e.Tags {
		tagID, err := q.UpsertTag(ctx, t.Name())
		if err != nil {
			return core.DatabaseError("upsert tag "+t.Name(), err)
		}
		if err := q.LinkTag(ctx, e.ID, tagID); err != nil {
			return core.DatabaseError("link tag "+t.Name(), err)
		}
	}
	return nil
}

func toRow(e core.LedgerEntry) Entry {
	return Entry{
		ID:          e.ID,
		Date:        formatTime(e.Date),
		Name:        e.Name,
		Currency:    e.Currency,
		Amount:      e.Amount.String(),
		Description: sql.NullString{String: e.Description, Valid: e.Description != ""},
		EntryType:   string(e.Type),
		CreatedAt:   formatTime(e.CreatedAt),
		UpdatedAt:   formatTime(e.UpdatedAt),
	}
}

func fromRow(row Entry, tagNames []string) (core.LedgerEntry, error) {
	corrupt := func(field string, err error) error {
		return core.DatabaseError(fmt.Sprintf("decode entry %s: %s", row.ID, field), err)
	}

	date, err := parseTime(row.Date)
	if err != nil {
		return core.LedgerEntry{}, corrupt("date", err)
	}
	createdAt, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.LedgerEntry{}, corrupt("created_at", err)
	}
	updatedAt, err := parseTime(row.UpdatedAt)
	if err != nil {
		return core.LedgerEntry{}, corrupt("updated_at", err)
	}
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.LedgerEntry{}, corrupt("amount", err)
	}
	tags, err := core.NewTags(tagNames...)
	if err != nil {
		return core.LedgerEntry{}, corrupt("tags", err)
	}

	return core.LedgerEntry{
		ID:          row.ID,
		Date:        date,
		Name:        row.Name,
		Currency:    row.Currency,
		Amount:      amount,
		Description: row.Description.String,
		Tags:        tags,
		Type:        core.EntryType(row.EntryType),
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}
