package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"cashbook/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the SQL used by SQLiteRepository.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Entry is a row of the entries table.
type Entry struct {
	ID          string
	Date        string
	Name        string
	Currency    string
	Amount      string
	Description sql.NullString
	EntryType   string
	CreatedAt   string
	UpdatedAt   string
}

const entryColumns = `e.id, e.date, e.name, e.currency, e.amount, e.description, e.entry_type, e.created_at, e.updated_at`

func scanEntry(row interface{ Scan(...any) error }) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.Date, &e.Name, &e.Currency, &e.Amount, &e.Description, &e.EntryType, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

const insertEntry = `INSERT INTO entries (id, date, name, currency, amount, description, entry_type, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertEntry(ctx context.Context, e Entry) error {
	_, err := q.db.ExecContext(ctx, insertEntry,
		e.ID, e.Date, e.Name, e.Currency, e.Amount, e.Description, e.EntryType, e.CreatedAt, e.UpdatedAt)
	return err
}

// entry_type is deliberately absent: the type of an entry never changes.
const updateEntry = `UPDATE entries
SET date = ?, name = ?, currency = ?, amount = ?, description = ?, updated_at = ?
WHERE id = ?`

// UpdateEntry returns the number of rows changed.
func (q *Queries) UpdateEntry(ctx context.Context, e Entry) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateEntry,
		e.Date, e.Name, e.Currency, e.Amount, e.Description, e.UpdatedAt, e.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteEntry returns the number of rows removed.
func (q *Queries) DeleteEntry(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) GetEntry(ctx context.Context, id string) (Entry, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries e WHERE e.id = ?`, id)
	return scanEntry(row)
}

// ListEntries returns the rows matching f, newest first, paginated.
func (q *Queries) ListEntries(ctx context.Context, f core.EntryFilter) ([]Entry, error) {
	where, args := entryFilterClause(f)
	query := `SELECT ` + entryColumns + ` FROM entries e` + where +
		` ORDER BY e.date DESC, e.created_at DESC, e.id`
	if f.Limit > 0 || f.Offset > 0 {
		limit := int64(math.MaxInt64)
		if f.Limit > 0 {
			limit = int64(f.Limit)
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, f.Offset)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountEntries counts the rows matching f, ignoring pagination.
func (q *Queries) CountEntries(ctx context.Context, f core.EntryFilter) (int64, error) {
	where, args := entryFilterClause(f)
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries e`+where, args...).Scan(&n)
	return n, err
}

// entryFilterClause builds the WHERE clause for a normalized filter. An entry
// passes the tag predicate only when the number of distinct requested names
// linked to it equals the number requested.
func entryFilterClause(f core.EntryFilter) (string, []any) {
	var where []string
	var args []any

	if f.Start != nil {
		where = append(where, "e.date >= ?")
		args = append(args, formatTime(*f.Start))
	}
	if f.End != nil {
		where = append(where, "e.date <= ?")
		args = append(args, formatTime(*f.End))
	}
	if f.Type != nil {
		where = append(where, "e.entry_type = ?")
		args = append(args, string(*f.Type))
	}
	if f.Currency != "" {
		where = append(where, "e.currency = ?")
		args = append(args, f.Currency)
	}
	if len(f.Tags) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(f.Tags)), ", ")
		where = append(where, fmt.Sprintf(`e.id IN (
	SELECT et.entry_id FROM entry_tags et
	JOIN tags t ON t.id = et.tag_id
	WHERE t.name IN (%s)
	GROUP BY et.entry_id
	HAVING COUNT(DISTINCT t.name) = ?)`, placeholders))
		for _, name := range f.Tags {
			args = append(args, name)
		}
		args = append(args, len(f.Tags))
	}

	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// UpsertTag returns the id of the tag called name, creating it if needed.
func (q *Queries) UpsertTag(ctx context.Context, name string) (int64, error) {
	if _, err := q.db.ExecContext(ctx, `INSERT INTO tags (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
		return 0, err
	}
	var id int64
	err := q.db.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, name).Scan(&id)
	return id, err
}

func (q *Queries) DeleteEntryTags(ctx context.Context, entryID string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM entry_tags WHERE entry_id = ?`, entryID)
	return err
}

func (q *Queries) LinkTag(ctx context.Context, entryID string, tagID int64) error {
	_, err := q.db.ExecContext(ctx, `INSERT OR IGNORE INTO entry_tags (entry_id, tag_id) VALUES (?, ?)`, entryID, tagID)
	return err
}

// TagNamesByEntry returns the tag names of each listed entry, sorted by name.
func (q *Queries) TagNamesByEntry(ctx context.Context, entryIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(entryIDs))
	if len(entryIDs) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(entryIDs)), ", ")
	args := make([]any, len(entryIDs))
	for i, id := range entryIDs {
		args[i] = id
	}
	rows, err := q.db.QueryContext(ctx, `SELECT et.entry_id, t.name FROM entry_tags et
JOIN tags t ON t.id = et.tag_id
WHERE et.entry_id IN (`+placeholders+`)
ORDER BY et.entry_id, t.name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var entryID, name string
		if err := rows.Scan(&entryID, &name); err != nil {
			return nil, err
		}
		out[entryID] = append(out[entryID], name)
	}
	return out, rows.Err()
}

// TagNames returns the names of tags linked to at least one entry, in order.
func (q *Queries) TagNames(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT DISTINCT t.name FROM tags t
JOIN entry_tags et ON et.tag_id = t.id
ORDER BY t.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
