package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
)

// Table stores records of one type as JSON documents keyed by StoreKey.
type Table[T driven.Keyed] struct {
	store *Store
	name  string
}

var _ driven.Collection[*domain.Connector] = (*Table[*domain.Connector])(nil)

func newTable[T driven.Keyed](store *Store, name string) *Table[T] {
	return &Table[T]{store: store, name: name}
}

// Get retrieves a record by key.
func (t *Table[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T
	db, err := t.store.handle()
	if err != nil {
		return zero, err
	}

	query := db.rebind(fmt.Sprintf(`SELECT data FROM %s WHERE key = ?`, t.name))

	var data string
	err = db.QueryRowContext(ctx, query, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, domain.ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("get %s %s: %w", t.name, key, err)
	}
	return t.decode(data)
}

// GetAll returns every record in insertion order.
func (t *Table[T]) GetAll(ctx context.Context) ([]T, error) {
	db, err := t.store.handle()
	if err != nil {
		return nil, err
	}
	return t.list(ctx, db)
}

// querier is satisfied by both *DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (t *Table[T]) list(ctx context.Context, q querier) ([]T, error) {
	query := fmt.Sprintf(`SELECT data FROM %s ORDER BY created_at, key`, t.name)
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.name, err)
	}
	defer rows.Close()

	var records []T
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		record, err := t.decode(data)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", t.name, err)
	}
	return records, nil
}

// Put inserts or replaces the record.
func (t *Table[T]) Put(ctx context.Context, record T) error {
	db, err := t.store.handle()
	if err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode %s: %w", t.name, err)
	}

	now := t.store.clock().UnixNano()
	query := db.rebind(fmt.Sprintf(`
		INSERT INTO %s (key, data, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, t.name))

	if _, err := db.ExecContext(ctx, query, record.StoreKey(), string(data), now, now); err != nil {
		return fmt.Errorf("put %s %s: %w", t.name, record.StoreKey(), err)
	}
	return nil
}

// Delete removes a record. A missing key is not an error.
func (t *Table[T]) Delete(ctx context.Context, key string) error {
	db, err := t.store.handle()
	if err != nil {
		return err
	}

	query := db.rebind(fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, t.name))
	if _, err := db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("delete %s %s: %w", t.name, key, err)
	}
	return nil
}

func (t *Table[T]) decode(data string) (T, error) {
	var record T
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return record, fmt.Errorf("decode %s: %w", t.name, err)
	}
	return record, nil
}
