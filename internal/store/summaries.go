// Package store provides the persistence collaborators: the SQLite summary
// store, the file-backed chapter store, and the reference material
// provider.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lyndonlyu/loom/internal/assemble"
	"github.com/lyndonlyu/loom/internal/tier"
)

// ErrNotFound is returned for absent chapters, summaries, and batch runs.
// It wraps assemble.ErrNotFound so the assembler can recognize a missing
// previous chapter through this store and degrade gracefully.
var ErrNotFound = fmt.Errorf("store: %w", assemble.ErrNotFound)

// SummaryDB persists tier summaries and batch recompression records in
// SQLite. Put replaces atomically: a recompressed (chapter, tier) pair
// overwrites the previous row in a single statement, never merges.
type SummaryDB struct {
	db   *sql.DB
	path string
}

// OpenSummaryDB creates or opens the database at path with WAL mode,
// a 5 second busy timeout, and foreign keys enabled.
func OpenSummaryDB(path string) (*SummaryDB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}

	tables := []string{
		`CREATE TABLE IF NOT EXISTS summaries (
			chapter          INTEGER NOT NULL,
			tier             TEXT NOT NULL,
			payload          TEXT NOT NULL,
			estimated_tokens INTEGER NOT NULL,
			updated_at       TEXT NOT NULL,
			PRIMARY KEY (chapter, tier)
		)`,
		`CREATE TABLE IF NOT EXISTS batches (
			id           TEXT PRIMARY KEY,
			tier         TEXT NOT NULL,
			from_chapter INTEGER NOT NULL,
			to_chapter   INTEGER NOT NULL,
			status       TEXT NOT NULL DEFAULT 'RUNNING',
			started_at   TEXT NOT NULL,
			ended_at     TEXT NOT NULL DEFAULT ''
		)`,
	}
	for _, ddl := range tables {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: create table: %w", err)
		}
	}

	return &SummaryDB{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (d *SummaryDB) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *SummaryDB) Path() string {
	return d.path
}

// Put persists a summary, replacing any previous summary for the same
// (chapter, tier) pair.
func (d *SummaryDB) Put(s tier.Summary) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("store: marshal summary: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = d.db.Exec(
		`INSERT OR REPLACE INTO summaries (chapter, tier, payload, estimated_tokens, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		s.Chapter, s.Tier, string(payload), s.EstimatedTokens, now,
	)
	if err != nil {
		return fmt.Errorf("store: put summary: %w", err)
	}
	return nil
}

// Get retrieves the summary for a (chapter, tier) pair. Returns
// ErrNotFound if the pair has never been compressed.
func (d *SummaryDB) Get(chapter int, tierID string) (tier.Summary, error) {
	var payload string
	err := d.db.QueryRow(
		`SELECT payload FROM summaries WHERE chapter = ? AND tier = ?`,
		chapter, tierID,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tier.Summary{}, ErrNotFound
		}
		return tier.Summary{}, fmt.Errorf("store: get summary: %w", err)
	}

	var s tier.Summary
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return tier.Summary{}, fmt.Errorf("store: unmarshal summary: %w", err)
	}
	return s, nil
}

// List returns all summaries for a tier ordered by chapter.
func (d *SummaryDB) List(tierID string) ([]tier.Summary, error) {
	rows, err := d.db.Query(
		`SELECT payload FROM summaries WHERE tier = ? ORDER BY chapter`, tierID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list summaries: %w", err)
	}
	defer rows.Close()

	var out []tier.Summary
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("store: scan summary: %w", err)
		}
		var s tier.Summary
		if err := json.Unmarshal([]byte(payload), &s); err != nil {
			return nil, fmt.Errorf("store: unmarshal summary: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: rows summaries: %w", err)
	}
	return out, nil
}

// CountByTier returns the number of persisted summaries per tier.
func (d *SummaryDB) CountByTier() (map[string]int, error) {
	rows, err := d.db.Query(`SELECT tier, COUNT(*) FROM summaries GROUP BY tier`)
	if err != nil {
		return nil, fmt.Errorf("store: count summaries: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("store: scan count: %w", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: rows counts: %w", err)
	}
	return counts, nil
}
