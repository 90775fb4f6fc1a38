// Package sqlite implements a core.ObjectStore that mirrors every registered
// immutable object into a SQLite database. Live lookups are served from
// memory; the objects table is the durable trace, with the primary key
// enforcing write-once semantics at the storage layer as well.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hupe1980/botmesh/core"
	"github.com/hupe1980/botmesh/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS objects (
	uuid       TEXT PRIMARY KEY,
	type       TEXT NOT NULL,
	record     TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

// Store is a write-through SQLite backend over the in-memory store. Mutable
// state (latest-message pointers, response caches) is process-local
// bookkeeping and is intentionally not persisted.
type Store struct {
	*store.InMemory

	db *sql.DB
}

// Open creates a Store backed by the database at path (any mattn/go-sqlite3
// DSN works, ":memory:" included). Existing rows are replayed in insertion
// order: each record is decoded and re-registered under its UUID. Secondary
// indexes are not rebuilt from the database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}

	s := &Store{InMemory: store.NewInMemory(), db: db}
	if err := s.replay(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) replay() error {
	rows, err := s.db.Query(`SELECT uuid, record FROM objects ORDER BY created_at, uuid`)
	if err != nil {
		return fmt.Errorf("query sqlite objects: %w", err)
	}
	defer rows.Close()

	ctx := context.Background()
	for rows.Next() {
		var rawUUID, rawRecord string
		if err := rows.Scan(&rawUUID, &rawRecord); err != nil {
			return fmt.Errorf("scan sqlite object row: %w", err)
		}
		id, err := uuid.Parse(rawUUID)
		if err != nil {
			return fmt.Errorf("sqlite object row without valid uuid: %w", err)
		}
		var record store.Record
		if err := json.Unmarshal([]byte(rawRecord), &record); err != nil {
			return fmt.Errorf("decode sqlite object record %s: %w", id, err)
		}
		if err := s.InMemory.RegisterImmutable(ctx, id, record); err != nil {
			return fmt.Errorf("replay sqlite object record %s: %w", id, err)
		}
	}
	return rows.Err()
}

// RegisterImmutable registers the value in memory and, for identity (UUID)
// keys, inserts its JSON record into the objects table.
func (s *Store) RegisterImmutable(ctx context.Context, key core.ObjectKey, value any) error {
	if err := s.InMemory.RegisterImmutable(ctx, key, value); err != nil {
		return err
	}
	id, isIdentity := key.(uuid.UUID)
	if !isIdentity {
		return nil
	}

	record, err := store.EncodeRecord(ctx, value)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal sqlite object record: %w", err)
	}
	recordType, _ := record["_type"].(string)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO objects (uuid, type, record, created_at) VALUES (?, ?, ?, ?)`,
		id.String(), recordType, string(raw), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert sqlite object record: %w", err)
	}
	return nil
}
