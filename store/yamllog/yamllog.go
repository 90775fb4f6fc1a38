// Package yamllog implements a core.ObjectStore that mirrors every
// registered immutable object into an append-only YAML log, one document per
// object separated by "---". The log is written for humans first: each
// document carries a "_type" discriminator and denormalized previews of
// related objects, so a conversation can be reconstructed by reading the
// file top to bottom.
package yamllog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/botmesh/core"
	"github.com/hupe1980/botmesh/store"
)

// Store is a write-through YAML-log backend over the in-memory store. Live
// lookups are served from memory; the log is the durable trace. Mutable
// state (latest-message pointers, response caches) is process-local
// bookkeeping and is intentionally not persisted.
type Store struct {
	*store.InMemory

	mu       sync.Mutex
	path     string
	nonEmpty bool
}

// Open creates a Store backed by the log file at path. An existing non-empty
// log is replayed first: every document is decoded into a store.Record and
// re-registered under its UUID, in file order. Secondary indexes are not
// rebuilt from the log; replayed records serve provenance lookups, not bot
// resolution.
func Open(path string) (*Store, error) {
	s := &Store{InMemory: store.NewInMemory(), path: path}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("stat yaml log: %w", err)
	case info.Size() == 0:
		return s, nil
	}

	if err := s.replay(); err != nil {
		return nil, err
	}
	s.nonEmpty = true
	return s, nil
}

func (s *Store) replay() error {
	file, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open yaml log: %w", err)
	}
	defer file.Close()

	ctx := context.Background()
	decoder := yaml.NewDecoder(file)
	for {
		var record store.Record
		if err := decoder.Decode(&record); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode yaml log record: %w", err)
		}
		rawUUID, _ := record["uuid"].(string)
		id, err := uuid.Parse(rawUUID)
		if err != nil {
			return fmt.Errorf("yaml log record without valid uuid: %w", err)
		}
		if err := s.InMemory.RegisterImmutable(ctx, id, record); err != nil {
			return fmt.Errorf("replay yaml log record %s: %w", id, err)
		}
	}
}

// RegisterImmutable registers the value in memory and, for identity (UUID)
// keys, appends its record to the log. Secondary index keys are not logged;
// they would duplicate the documents of the objects they point at.
func (s *Store) RegisterImmutable(ctx context.Context, key core.ObjectKey, value any) error {
	if err := s.InMemory.RegisterImmutable(ctx, key, value); err != nil {
		return err
	}
	if _, isIdentity := key.(uuid.UUID); !isIdentity {
		return nil
	}
	record, err := store.EncodeRecord(ctx, value)
	if err != nil {
		return err
	}
	return s.appendRecord(record)
}

func (s *Store) appendRecord(record store.Record) error {
	raw, err := yaml.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal yaml log record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open yaml log for append: %w", err)
	}
	defer file.Close()

	if s.nonEmpty {
		if _, err := file.WriteString("\n---\n\n"); err != nil {
			return fmt.Errorf("write yaml log separator: %w", err)
		}
	}
	if _, err := file.Write(raw); err != nil {
		return fmt.Errorf("write yaml log record: %w", err)
	}
	s.nonEmpty = true
	return nil
}
