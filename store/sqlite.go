/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package store persists the raw question and people texts of each player.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Seednode/oracle/deck"
)

// DB is a small key/value table in SQLite, scoped by owner.
type DB struct {
	db *sql.DB
}

// Open opens the database at path. An empty path or ":memory:" keeps
// everything in memory for the lifetime of the process.
func Open(path string) (*DB, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()

		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return &DB{db: db}, nil
}

func (s *DB) Close() error {
	return s.db.Close()
}

// Migrate creates the tables if they do not exist yet.
func (s *DB) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			owner TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (owner, key)
		)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Get returns the value stored for owner and key, and whether it exists.
func (s *DB) Get(ctx context.Context, owner, key string) (string, bool, error) {
	var value string

	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE owner = ? AND key = ?`, owner, key,
	).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	return value, true, nil
}

func (s *DB) Put(ctx context.Context, owner, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (owner, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (owner, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		owner, key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}

	return nil
}

// Texts is the pair of raw texts a player has typed.
type Texts struct {
	Questions string
	People    string

	// Whether each key was present at all.
	HasQuestions bool
	HasPeople    bool
}

// Load reads both texts for owner. Missing keys are reported, not errors.
func (s *DB) Load(ctx context.Context, owner string) (Texts, error) {
	var (
		t   Texts
		err error
	)

	t.Questions, t.HasQuestions, err = s.Get(ctx, owner, deck.QuestionsKey)
	if err != nil {
		return Texts{}, err
	}

	t.People, t.HasPeople, err = s.Get(ctx, owner, deck.PeopleKey)
	if err != nil {
		return Texts{}, err
	}

	return t, nil
}

// Save writes both texts for owner in one transaction.
func (s *DB) Save(ctx context.Context, owner, questions, people string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, kv := range [][2]string{{deck.QuestionsKey, questions}, {deck.PeopleKey, people}} {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO kv (owner, key, value, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT (owner, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			owner, kv[0], kv[1], now,
		)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", kv[0], err)
		}
	}

	return tx.Commit()
}
