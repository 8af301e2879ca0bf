package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/tracegen/core/distribution"
	"github.com/YuminosukeSato/tracegen/pkg/errors"
	"github.com/jmoiron/sqlx"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// sqliteFileName is the database file inside the store directory.
const sqliteFileName = "distributions.db"

const sqliteSchema = `CREATE TABLE IF NOT EXISTS distributions (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	payload TEXT NOT NULL
)`

// SQLStore keeps one row per group in a single SQLite file. The row payload
// is the JSON form of the distribution.
type SQLStore struct {
	db   *sqlx.DB
	path string
}

type sqlRow struct {
	Seq     int64  `db:"seq"`
	ID      string `db:"id"`
	Payload string `db:"payload"`
}

// OpenSQLStore opens distributions.db in dir.
func OpenSQLStore(dir string, create bool) (*SQLStore, error) {
	path := filepath.Join(dir, sqliteFileName)
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.NewStoreError("sqlite", "stat database", err)
		}
		if !create {
			return nil, errors.NewMissingArtifactError("distribution database", path)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.NewStoreError("sqlite", "create directory", err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, errors.NewStoreError("sqlite", "open", err)
	}
	// database/sql pools connections; a single writer avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errors.NewStoreError("sqlite", "create table", err)
	}
	return &SQLStore{db: db, path: path}, nil
}

// Put inserts d or replaces the row with the same id, keeping its position.
func (s *SQLStore) Put(ctx context.Context, d *distribution.Distribution) error {
	if err := checkID(d.ID); err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(toRecord(d))
	if err != nil {
		return errors.NewStoreError("sqlite", "encode "+d.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO distributions (id, payload) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload`,
		d.ID, string(payload))
	if err != nil {
		return errors.NewStoreError("sqlite", "upsert "+d.ID, err)
	}
	return nil
}

// Get loads the row of group id.
func (s *SQLStore) Get(ctx context.Context, id string) (*distribution.Distribution, error) {
	var row sqlRow
	err := s.db.GetContext(ctx, &row, `SELECT seq, id, payload FROM distributions WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(errors.ErrNotFound, "group %s", id)
		}
		return nil, errors.NewStoreError("sqlite", "select "+id, err)
	}
	var r record
	if err := json.Unmarshal([]byte(row.Payload), &r); err != nil {
		return nil, errors.NewStoreError("sqlite", "decode "+id, err)
	}
	return r.distribution()
}

// IDs returns group ids in insertion order.
func (s *SQLStore) IDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, `SELECT id FROM distributions ORDER BY seq`); err != nil {
		return nil, errors.NewStoreError("sqlite", "list ids", err)
	}
	return ids, nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
