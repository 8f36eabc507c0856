// Package pgstore implements the record store on PostgreSQL. All
// collections share the documents table; each record's fields are one JSONB
// value.
package pgstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/records/internal/platform/store"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// Store is a store.Store backed by a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an open pool. The documents table must exist (see migrations).
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Collection(name string) store.Collection {
	return &collection{db: s.pool, name: name}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Close(context.Context) error {
	s.pool.Close()
	return nil
}

type collection struct {
	db   queryable
	name string
}

const docCols = `id, data, created_at, updated_at`

func scanRecord(row pgx.Row) (*store.Record, error) {
	var (
		r    store.Record
		data []byte
	)
	if err := row.Scan(&r.ID, &data, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	fields, err := decodeFields(data)
	if err != nil {
		return nil, err
	}
	r.Fields = fields
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return &r, nil
}

func decodeFields(data []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(data) == 0 {
		return fields, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return fields, nil
}

func encodeFields(fields map[string]any) ([]byte, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

func (c *collection) Insert(ctx context.Context, fields map[string]any) (*store.Record, error) {
	data, err := encodeFields(fields)
	if err != nil {
		return nil, err
	}
	now := store.Now()
	r, err := scanRecord(c.db.QueryRow(ctx, `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING `+docCols,
		c.name, store.NewID(), data, now))
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", c.name, err)
	}
	return r, nil
}

func (c *collection) FindByID(ctx context.Context, id string) (*store.Record, error) {
	r, err := scanRecord(c.db.QueryRow(ctx,
		`SELECT `+docCols+` FROM documents WHERE collection = $1 AND id = $2`, c.name, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s/%s: %w", c.name, id, err)
	}
	return r, nil
}

func (c *collection) Find(ctx context.Context, f store.Filter) ([]*store.Record, error) {
	where, args := buildWhere(f, 2)
	query := `SELECT ` + docCols + ` FROM documents WHERE collection = $1` + where + ` ORDER BY seq`

	rows, err := c.db.Query(ctx, query, append([]any{c.name}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", c.name, err)
	}
	defer rows.Close()

	items := make([]*store.Record, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", c.name, err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", c.name, err)
	}
	return items, nil
}

func (c *collection) UpdateByID(ctx context.Context, id string, partial map[string]any) (*store.Record, error) {
	data, err := encodeFields(partial)
	if err != nil {
		return nil, err
	}
	r, err := scanRecord(c.db.QueryRow(ctx, `
		UPDATE documents SET data = data || $3::jsonb, updated_at = $4
		WHERE collection = $1 AND id = $2
		RETURNING `+docCols,
		c.name, id, data, store.Now()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", c.name, id, err)
	}
	return r, nil
}

func (c *collection) DeleteByID(ctx context.Context, id string) error {
	if _, err := c.db.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, c.name, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", c.name, id, err)
	}
	return nil
}

func (c *collection) Count(ctx context.Context, f store.Filter) (int64, error) {
	where, args := buildWhere(f, 2)
	var n int64
	err := c.db.QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE collection = $1`+where,
		append([]any{c.name}, args...)...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.name, err)
	}
	return n, nil
}

// SumBy groups on the text value of groupField; documents where sumField is
// not numeric contribute nothing.
func (c *collection) SumBy(ctx context.Context, groupField, sumField string) ([]store.GroupTotal, error) {
	rows, err := c.db.Query(ctx, `
		SELECT data->>$2::text AS key,
		       COALESCE(SUM(CASE WHEN jsonb_typeof(data->$3::text) = 'number'
		                         THEN (data->>$3::text)::numeric END), 0)::float8 AS total
		FROM documents
		WHERE collection = $1
		GROUP BY 1
		ORDER BY 1`,
		c.name, groupField, sumField)
	if err != nil {
		return nil, fmt.Errorf("sum %s by %s: %w", sumField, groupField, err)
	}
	defer rows.Close()

	out := make([]store.GroupTotal, 0)
	for rows.Next() {
		var (
			key   *string
			total float64
		)
		if err := rows.Scan(&key, &total); err != nil {
			return nil, fmt.Errorf("scan group total: %w", err)
		}
		gt := store.GroupTotal{Total: total}
		if key != nil {
			gt.Key = *key
		}
		out = append(out, gt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group totals: %w", err)
	}
	return out, nil
}
