// Package sqlitekv implements kv.KV on a single SQLite table. It is the
// default driver for the local build target.
package sqlitekv

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/listsync/listsync/server/internal/kv"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
    k      TEXT NOT NULL,
    member TEXT NOT NULL DEFAULT '',
    kind   TEXT NOT NULL,
    score  INTEGER NOT NULL DEFAULT 0,
    val    TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (k, member)
);
CREATE INDEX IF NOT EXISTS kv_key_kind ON kv (k, kind);
`

// Store implements kv.KV over one kv table. Every primitive is a single
// statement (SetReplace uses a short per-key transaction), so atomicity is
// per key and never spans keys.
type Store struct {
	db *sql.DB
}

var _ kv.KV = (*Store)(nil)

// Open opens (or creates) the SQLite database at path, enables WAL journal
// mode, and ensures the kv table exists.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitekv schema: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wires the store onto an existing connection (used by tests).
func NewWithDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("sqlitekv schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) ZAdd(ctx context.Context, key, member string, score int64) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO kv (k, member, kind, score) VALUES (?, ?, 'zset', ?)
        ON CONFLICT (k, member) DO UPDATE SET kind='zset', score=excluded.score
    `, key, member, score)
	return err
}

func (s *Store) ZRange(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT member FROM kv WHERE k=? AND kind='zset' ORDER BY score ASC
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
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE k=? AND member=? AND kind='zset'`, key, member)
	return err
}

func (s *Store) ZMaxScore(ctx context.Context, key string) (int64, bool, error) {
	var max sql.NullInt64
	row := s.db.QueryRowContext(ctx, `SELECT MAX(score) FROM kv WHERE k=? AND kind='zset'`, key)
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
	row := s.db.QueryRowContext(ctx, `SELECT val FROM kv WHERE k=? AND member='' AND kind='str'`, key)
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
        INSERT INTO kv (k, member, kind, val) VALUES (?, '', 'str', ?)
        ON CONFLICT (k, member) DO UPDATE SET kind='str', val=excluded.val
    `, key, value)
	return err
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT member FROM kv WHERE k=? AND kind='set' ORDER BY member ASC
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

	if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE k=? AND kind='set'`, key); err != nil {
		return err
	}
	for _, m := range members {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO kv (k, member, kind) VALUES (?, ?, 'set')
            ON CONFLICT (k, member) DO UPDATE SET kind='set'
        `, key, m); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	var v string
	row := s.db.QueryRowContext(ctx, `
        INSERT INTO kv (k, member, kind, val) VALUES (?, '', 'str', '1')
        ON CONFLICT (k, member) DO UPDATE SET val = CAST(CAST(val AS INTEGER) + 1 AS TEXT)
        RETURNING val
    `, key)
	if err := row.Scan(&v); err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE k=?`, k); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error { return s.db.Close() }
