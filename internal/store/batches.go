package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// BatchRecord tracks one milestone recompression run.
type BatchRecord struct {
	ID          string `json:"id"`
	Tier        string `json:"tier"`
	FromChapter int    `json:"from_chapter"`
	ToChapter   int    `json:"to_chapter"`
	Status      string `json:"status"` // RUNNING / COMPLETED / FAILED
	StartedAt   string `json:"started_at"`
	EndedAt     string `json:"ended_at"`
}

// InsertBatch inserts a new batch record with status RUNNING.
func (d *SummaryDB) InsertBatch(rec BatchRecord) error {
	if rec.StartedAt == "" {
		rec.StartedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if rec.Status == "" {
		rec.Status = "RUNNING"
	}
	_, err := d.db.Exec(
		`INSERT INTO batches (id, tier, from_chapter, to_chapter, status, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Tier, rec.FromChapter, rec.ToChapter, rec.Status, rec.StartedAt, rec.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("store: insert batch: %w", err)
	}
	return nil
}

// UpdateBatchStatus finalizes a batch record. COMPLETED and FAILED set the
// end timestamp.
func (d *SummaryDB) UpdateBatchStatus(id, status string) error {
	endedAt := ""
	if status == "COMPLETED" || status == "FAILED" {
		endedAt = time.Now().UTC().Format(time.RFC3339)
	}

	res, err := d.db.Exec(
		`UPDATE batches SET status = ?, ended_at = ? WHERE id = ?`,
		status, endedAt, id,
	)
	if err != nil {
		return fmt.Errorf("store: update batch: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetBatch retrieves a batch record by id.
func (d *SummaryDB) GetBatch(id string) (BatchRecord, error) {
	var r BatchRecord
	err := d.db.QueryRow(
		`SELECT id, tier, from_chapter, to_chapter, status, started_at, ended_at
		 FROM batches WHERE id = ?`, id,
	).Scan(&r.ID, &r.Tier, &r.FromChapter, &r.ToChapter, &r.Status, &r.StartedAt, &r.EndedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return BatchRecord{}, ErrNotFound
		}
		return BatchRecord{}, fmt.Errorf("store: get batch: %w", err)
	}
	return r, nil
}

// ListBatches returns the most recent batch records, newest first. A limit
// of 0 returns all records.
func (d *SummaryDB) ListBatches(limit int) ([]BatchRecord, error) {
	query := `SELECT id, tier, from_chapter, to_chapter, status, started_at, ended_at
		 FROM batches ORDER BY started_at DESC`

	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = d.db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = d.db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("store: list batches: %w", err)
	}
	defer rows.Close()

	var out []BatchRecord
	for rows.Next() {
		var r BatchRecord
		if err := rows.Scan(&r.ID, &r.Tier, &r.FromChapter, &r.ToChapter, &r.Status, &r.StartedAt, &r.EndedAt); err != nil {
			return nil, fmt.Errorf("store: scan batch: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: rows batches: %w", err)
	}
	return out, nil
}
