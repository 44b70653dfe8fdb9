// Package postgreskv implements kv.KV on a single Postgres table using the
// pgx stdlib driver. It is the driver for the cloud build targets.
package postgreskv

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/listsync/listsync/server/internal/kv"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
    k      TEXT NOT NULL,
    member TEXT NOT NULL DEFAULT '',
    kind   TEXT NOT NULL,
    score  BIGINT NOT NULL DEFAULT 0,
    val    TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (k, member)
);
CREATE INDEX IF NOT EXISTS kv_key_kind ON kv (k, kind);
`

// Store implements kv.KV over one kv table, one statement per primitive.
type Store struct {
	db *sql.DB
}

var _ kv.KV = (*Store)(nil)

// Open opens a Postgres connection using the pgx stdlib driver, verifies
// connectivity, and ensures the kv table exists.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewWithDB(db)
}

// NewWithDB wires the store onto an existing connection (used by tests).
func NewWithDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("postgreskv schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) ZAdd(ctx context.Context, key, member string, score int64) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO kv (k, member, kind, score) VALUES ($1, $2, 'zset', $3)
        ON CONFLICT (k, member) DO UPDATE SET kind='zset', score=EXCLUDED.score
    `, key, member, score)
	return err
}

func (s *Store) ZRange(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT member FROM kv WHERE k=$1 AND kind='zset' ORDER BY score ASC
    `, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) ZRem(ctx context.Context, key, member string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE k=$1 AND member=$2 AND kind='zset'`, key, member)
	return err
}

func (s *Store) ZMaxScore(ctx context.Context, key string) (int64, bool, error) {
	var max sql.NullInt64
	row := s.db.QueryRowContext(ctx, `SELECT MAX(score) FROM kv WHERE k=$1 AND kind='zset'`, key)
	if err := row.Scan(&max); err != nil {
		return 0, false, err
	}
	if !max.Valid {
		return 0, false, nil
	}
	return max.Int64, true, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	row := s.db.QueryRowContext(ctx, `SELECT val FROM kv WHERE k=$1 AND member='' AND kind='str'`, key)
	if err := row.Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO kv (k, member, kind, val) VALUES ($1, '', 'str', $2)
        ON CONFLICT (k, member) DO UPDATE SET kind='str', val=EXCLUDED.val
    `, key, value)
	return err
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT member FROM kv WHERE k=$1 AND kind='set' ORDER BY member ASC
    `, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) SetReplace(ctx context.Context, key string, members []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE k=$1 AND kind='set'`, key); err != nil {
		return err
	}
	for _, m := range members {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO kv (k, member, kind) VALUES ($1, $2, 'set')
            ON CONFLICT (k, member) DO UPDATE SET kind='set'
        `, key, m); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	var v int64
	row := s.db.QueryRowContext(ctx, `
        INSERT INTO kv (k, member, kind, val) VALUES ($1, '', 'str', '1')
        ON CONFLICT (k, member) DO UPDATE SET val = (kv.val::BIGINT + 1)::TEXT
        RETURNING val::BIGINT
    `, key)
	if err := row.Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE k=$1`, k); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error { return s.db.Close() }
