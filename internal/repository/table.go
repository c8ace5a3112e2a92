package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// Both MySQL and SQLite take '?' placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// Fields maps column names to the values a request supplied. Absent keys are
// left untouched by Update.
type Fields map[string]any

type rowScanner interface {
	Scan(dest ...any) error
}

// Table implements fetch/insert/update/delete for one record kind. The
// first column must be the integer primary key "id".
type Table[T any] struct {
	db       *sql.DB
	name     string
	columns  []string
	writable map[string]bool
	scan     func(rowScanner, *T) error

	// optional hooks that may rewrite fields before they reach the store
	beforeInsert func(Fields) error
	beforeUpdate func(Fields) error
}

func newTable[T any](db *sql.DB, name string, columns []string, scan func(rowScanner, *T) error) *Table[T] {
	w := make(map[string]bool, len(columns))
	for _, c := range columns[1:] {
		w[c] = true
	}
	return &Table[T]{db: db, name: name, columns: columns, writable: w, scan: scan}
}

// Name returns the table name.
func (t *Table[T]) Name() string { return t.name }

// Fetch returns the row with the given id or ErrNotFound.
func (t *Table[T]) Fetch(ctx context.Context, id uint64) (T, error) {
	return t.fetchOne(ctx, sq.Eq{"id": id})
}

func (t *Table[T]) fetchOne(ctx context.Context, where sq.Eq) (T, error) {
	var v T
	query, args, err := psql.Select(t.columns...).From(t.name).Where(where).Limit(1).ToSql()
	if err != nil {
		return v, fmt.Errorf("build select %s: %w", t.name, err)
	}
	if err := t.scan(t.db.QueryRowContext(ctx, query, args...), &v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return v, ErrNotFound
		}
		return v, fmt.Errorf("select %s: %w", t.name, err)
	}
	return v, nil
}

// FetchAll returns every row in primary-key order. The result is never nil.
func (t *Table[T]) FetchAll(ctx context.Context) ([]T, error) {
	query, args, err := psql.Select(t.columns...).From(t.name).OrderBy("id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select %s: %w", t.name, err)
	}
	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", t.name, err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		var v T
		if err := t.scan(rows, &v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", t.name, err)
	}
	return out, nil
}

// Insert stores a new row built from fields and returns its id. The caller's
// map is not modified.
func (t *Table[T]) Insert(ctx context.Context, fields Fields) (uint64, error) {
	f := fields.clone()
	if t.beforeInsert != nil {
		if err := t.beforeInsert(f); err != nil {
			return 0, err
		}
	}
	if len(f) == 0 {
		return 0, ErrMissingField
	}
	if err := t.checkColumns(f); err != nil {
		return 0, err
	}
	query, args, err := psql.Insert(t.name).SetMap(f).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert %s: %w", t.name, err)
	}
	res, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", t.name, classify(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", t.name, err)
	}
	return uint64(id), nil
}

// Update overwrites the supplied columns of row id. It returns ErrNotFound
// when the row does not exist; an empty field set is a no-op on an existing
// row.
//
// The existence check is the UPDATE's own match count, so a row deleted
// concurrently is reported as missing. MySQL connections are opened with
// clientFoundRows so unchanged rows still count as matched.
func (t *Table[T]) Update(ctx context.Context, id uint64, fields Fields) error {
	f := fields.clone()
	if t.beforeUpdate != nil {
		if err := t.beforeUpdate(f); err != nil {
			return err
		}
	}
	if len(f) == 0 {
		return t.exists(ctx, id)
	}
	if err := t.checkColumns(f); err != nil {
		return err
	}
	query, args, err := psql.Update(t.name).SetMap(f).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build update %s: %w", t.name, err)
	}
	res, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s %d: %w", t.name, id, classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s %d: %w", t.name, id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes row id. Deleting a missing row is not an error.
func (t *Table[T]) Delete(ctx context.Context, id uint64) error {
	query, args, err := psql.Delete(t.name).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete %s: %w", t.name, err)
	}
	if _, err := t.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete %s %d: %w", t.name, id, classify(err))
	}
	return nil
}

func (t *Table[T]) exists(ctx context.Context, id uint64) error {
	query, args, err := psql.Select("1").From(t.name).Where(sq.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return fmt.Errorf("build exists %s: %w", t.name, err)
	}
	var one int
	if err := t.db.QueryRowContext(ctx, query, args...).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("exists %s %d: %w", t.name, id, err)
	}
	return nil
}

func (t *Table[T]) checkColumns(f Fields) error {
	for k := range f {
		if !t.writable[k] {
			return fmt.Errorf("%s: unknown column %q", t.name, k)
		}
	}
	return nil
}

func (f Fields) clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
