package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/nijaru/vidscribe/models"
	"github.com/sirupsen/logrus"
)

// Journal is an append-only log of finished requests. Transcripts are not
// stored and nothing in it is used to answer a request.
type Journal struct {
	db *sql.DB
}

func Open(dbPath string, maxConns int) (*Journal, error) {
	logrus.WithField("path", dbPath).Info("Initializing journal database")

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("error creating directory for database: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if maxConns <= 0 {
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		platform TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		stage TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		transcript_chars INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_requests_created_at ON requests(created_at)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating table: %w", err)
	}

	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) Record(ctx context.Context, rec models.Record) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO requests
		(id, url, platform, status, stage, model, source, transcript_chars, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("error preparing statement: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx,
		rec.ID, rec.URL, rec.Platform, string(rec.Status), rec.Stage, rec.Model, string(rec.Source),
		rec.TranscriptChars, rec.Error, rec.Duration.Milliseconds(), rec.CreatedAt.UTC(),
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("error executing statement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]models.Record, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT
		id, url, platform, status, stage, model, source, transcript_chars, error, duration_ms, created_at
		FROM requests ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	records := make([]models.Record, 0, limit)
	for rows.Next() {
		var (
			rec        models.Record
			status     string
			source     string
			durationMs int64
		)
		if err := rows.Scan(
			&rec.ID, &rec.URL, &rec.Platform, &status, &rec.Stage, &rec.Model, &source,
			&rec.TranscriptChars, &rec.Error, &durationMs, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		rec.Status = models.Status(status)
		rec.Source = models.Source(source)
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading rows: %w", err)
	}
	return records, nil
}

// Prune deletes records created before cutoff and reports how many went.
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, "DELETE FROM requests WHERE created_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("error executing delete statement: %w", err)
	}
	return res.RowsAffected()
}
