package objects

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophdrive/internal/dbx"
)

const setManyAttempts = 3

// PostgresStore is a Bucket over the objects table. SetIfAbsent is an
// INSERT ... ON CONFLICT DO NOTHING and Take a DELETE ... RETURNING.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM objects WHERE key=$1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to select object: %w", err)
	}
	return value, true, nil
}

func upsert(ctx context.Context, db dbx.DBTX, key string, value []byte) error {
	query := `
		INSERT INTO objects (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	if _, err := db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	return upsert(ctx, s.db, key, value)
}

func (s *PostgresStore) SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO objects (key, value) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`, key, value)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM objects WHERE key=$1`, key); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (s *PostgresStore) Take(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `DELETE FROM objects WHERE key=$1 RETURNING value`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to take object: %w", err)
	}
	return value, true, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *PostgresStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM objects WHERE key LIKE $1 ESCAPE '\' ORDER BY key COLLATE "C"`, likeEscaper.Replace(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// SetMany writes kvs in one transaction, replaying it on deadlocks.
func (s *PostgresStore) SetMany(ctx context.Context, kvs []KV) error {
	return dbx.WithRetryTx(ctx, s.db, setManyAttempts, func(ctx context.Context, tx dbx.DBTX) error {
		for _, kv := range kvs {
			if err := upsert(ctx, tx, kv.Key, kv.Value); err != nil {
				return err
			}
		}
		return nil
	})
}
