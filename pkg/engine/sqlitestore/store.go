// Package sqlitestore keeps engine records in a SQLite database.
//
// Every record is one row keyed by namespace, database, table and the
// encoded record id. The record itself is stored as CBOR.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver

	"github.com/surrealkit/surrealdb.go/pkg/engine"
	"github.com/surrealkit/surrealdb.go/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	ns TEXT NOT NULL,
	db TEXT NOT NULL,
	tb TEXT NOT NULL,
	id BLOB NOT NULL,
	content BLOB NOT NULL,
	PRIMARY KEY (ns, db, tb, id)
)
`

const getSql = `
SELECT content FROM records
WHERE ns = $1 AND db = $2 AND tb = $3 AND id = $4
`

const putSql = `
INSERT INTO records (ns, db, tb, id, content)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (ns, db, tb, id)
DO UPDATE SET content = excluded.content
`

const deleteSql = `
DELETE FROM records
WHERE ns = $1 AND db = $2 AND tb = $3 AND id = $4
`

const scanSql = `
SELECT content FROM records
WHERE ns = $1 AND db = $2 AND tb = $3
`

const tablesSql = `
SELECT DISTINCT tb FROM records
WHERE ns = $1 AND db = $2
ORDER BY tb
`

// Store implements engine.Store on SQLite.
type Store struct {
	db    *sqlx.DB
	codec models.CborCodec
}

var _ engine.Store = (*Store)(nil)

// Open connects to the SQLite database at dsn and creates the schema.
// Use ":memory:" for a private in-memory database.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	tx, err := db.Beginx()
	if err != nil {
		db.Close()
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) decode(content []byte) (map[string]any, error) {
	var rec map[string]any
	if err := s.codec.Unmarshal(content, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) Get(ctx context.Context, ks engine.Keyspace, table string, id any) (map[string]any, bool, error) {
	key, err := engine.IDKey(id)
	if err != nil {
		return nil, false, err
	}

	var content []byte
	err = s.db.GetContext(ctx, &content, getSql, ks.NS, ks.DB, table, []byte(key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	rec, err := s.decode(content)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, ks engine.Keyspace, table string, id any, record map[string]any) error {
	key, err := engine.IDKey(id)
	if err != nil {
		return err
	}
	content, err := s.codec.Marshal(record)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, putSql, ks.NS, ks.DB, table, []byte(key), content)
	return err
}

func (s *Store) Delete(ctx context.Context, ks engine.Keyspace, table string, id any) error {
	key, err := engine.IDKey(id)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, deleteSql, ks.NS, ks.DB, table, []byte(key))
	return err
}

func (s *Store) Scan(ctx context.Context, ks engine.Keyspace, table string) ([]map[string]any, error) {
	var contents [][]byte
	if err := s.db.SelectContext(ctx, &contents, scanSql, ks.NS, ks.DB, table); err != nil {
		return nil, err
	}

	records := make([]map[string]any, 0, len(contents))
	for _, content := range contents {
		rec, err := s.decode(content)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return engine.CompareValues(records[i]["id"], records[j]["id"]) < 0
	})
	return records, nil
}

func (s *Store) Tables(ctx context.Context, ks engine.Keyspace) ([]string, error) {
	var tables []string
	if err := s.db.SelectContext(ctx, &tables, tablesSql, ks.NS, ks.DB); err != nil {
		return nil, err
	}
	return tables, nil
}

func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM records")
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}
