// Package store caches fetched paper content in SQLite so repeated chat
// questions about a paper do not refetch it from NCBI.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/csheth/pubmedscout/internal/pubmed"
)

// ErrNotFound is returned by Get for an unknown PMID.
var ErrNotFound = errors.New("paper not cached")

// Entry is a cached paper with the time it was fetched.
type Entry struct {
	pubmed.Content
	FetchedAt time.Time
}

// Store is a SQLite-backed content cache.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path. An empty path or ":memory:"
// keeps the cache in memory for the life of the process.
func Open(path string) (*Store, error) {
	memory := path == "" || path == ":memory:"
	dsn := ":memory:"
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if memory {
		// Each connection to :memory: is a separate database; pin one.
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS papers (
		pmid TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		abstract TEXT NOT NULL,
		pmcid TEXT,
		full_text TEXT NOT NULL,
		has_full_text INTEGER NOT NULL,
		fetched_at TEXT NOT NULL
	)`)
	return err
}

// Get returns the cached content for pmid or ErrNotFound.
func (s *Store) Get(ctx context.Context, pmid string) (Entry, error) {
	var (
		e         Entry
		pmcid     sql.NullString
		hasFull   int
		fetchedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT pmid, title, abstract, pmcid, full_text, has_full_text, fetched_at FROM papers WHERE pmid = ?`,
		strings.TrimSpace(pmid),
	).Scan(&e.PMID, &e.Title, &e.Abstract, &pmcid, &e.FullText, &hasFull, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("querying paper %s: %w", pmid, err)
	}
	e.PMCID = pmcid.String
	e.HasFullText = hasFull != 0
	if e.FetchedAt, err = time.Parse(time.RFC3339Nano, fetchedAt); err != nil {
		return Entry{}, fmt.Errorf("parsing fetched_at for %s: %w", pmid, err)
	}
	return e, nil
}

// Put inserts or replaces the content for c.PMID.
func (s *Store) Put(ctx context.Context, c pubmed.Content) error {
	if strings.TrimSpace(c.PMID) == "" {
		return errors.New("content has no pmid")
	}
	hasFull := 0
	if c.HasFullText {
		hasFull = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO papers (pmid, title, abstract, pmcid, full_text, has_full_text, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(pmid) DO UPDATE SET
			title = excluded.title,
			abstract = excluded.abstract,
			pmcid = excluded.pmcid,
			full_text = excluded.full_text,
			has_full_text = excluded.has_full_text,
			fetched_at = excluded.fetched_at`,
		c.PMID, c.Title, c.Abstract, nullIfEmpty(c.PMCID), c.FullText, hasFull,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("storing paper %s: %w", c.PMID, err)
	}
	return nil
}

// Count reports how many papers are cached.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM papers`).Scan(&n)
	return n, err
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
