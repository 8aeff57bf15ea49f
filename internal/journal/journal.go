// Package journal records every answer submission and every finished
// sentence of the session in SQLite. The default DSN is in-memory, so the
// journal lives and dies with the process.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var schema = []string{`
	CREATE TABLE IF NOT EXISTS attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		answers TEXT NOT NULL,
		was_correct BOOLEAN NOT NULL,
		error_count INTEGER NOT NULL,
		at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`, `
	CREATE TABLE IF NOT EXISTS sentence_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		was_successful BOOLEAN NOT NULL,
		attempts INTEGER NOT NULL,
		total_duration_ms INTEGER NOT NULL,
		completed_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE INDEX IF NOT EXISTS attempts_title ON attempts (title);`,
}

// Attempt is one submission that reached the checker.
type Attempt struct {
	Title      string
	Answers    []string
	Correct    bool
	ErrorCount int
}

// Result closes one sentence, either solved or out of attempts.
type Result struct {
	Title      string
	Successful bool
	Attempts   int
	Duration   time.Duration
}

// TitleStat aggregates the attempts made on one title.
type TitleStat struct {
	Attempts int
	Correct  int
}

// Summary aggregates the whole session.
type Summary struct {
	Attempts  int
	Correct   int
	Solved    int
	Exhausted int
}

type Journal struct {
	db *sql.DB
}

// Open opens the journal and creates its tables.
func Open(dsn string) (*Journal, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create journal schema: %w", err)
		}
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) RecordAttempt(ctx context.Context, a Attempt) error {
	answers := a.Answers
	if answers == nil {
		answers = []string{}
	}
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = j.db.ExecContext(ctx,
		"INSERT INTO attempts (title, answers, was_correct, error_count) VALUES (?, ?, ?, ?)",
		a.Title, string(answersJSON), a.Correct, a.ErrorCount,
	)
	if err != nil {
		return fmt.Errorf("record attempt for %q: %w", a.Title, err)
	}
	return nil
}

func (j *Journal) RecordResult(ctx context.Context, r Result) error {
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO sentence_results (title, was_successful, attempts, total_duration_ms) VALUES (?, ?, ?, ?)",
		r.Title, r.Successful, r.Attempts, r.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record result for %q: %w", r.Title, err)
	}
	return nil
}

// Stats returns per-title attempt counts.
func (j *Journal) Stats(ctx context.Context) (map[string]TitleStat, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT
			title,
			COUNT(id),
			SUM(CASE WHEN was_correct = 1 THEN 1 ELSE 0 END)
		FROM attempts
		GROUP BY title`)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempt stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]TitleStat)
	for rows.Next() {
		var (
			title   string
			stat    TitleStat
			correct sql.NullInt64
		)
		if err := rows.Scan(&title, &stat.Attempts, &correct); err != nil {
			return nil, fmt.Errorf("failed to scan attempt stat row: %w", err)
		}
		stat.Correct = int(correct.Int64)
		stats[title] = stat
	}
	return stats, rows.Err()
}

// Summary returns session totals.
func (j *Journal) Summary(ctx context.Context) (Summary, error) {
	var (
		s       Summary
		correct sql.NullInt64
		solved  sql.NullInt64
		failed  sql.NullInt64
	)
	err := j.db.QueryRowContext(ctx,
		"SELECT COUNT(id), SUM(CASE WHEN was_correct = 1 THEN 1 ELSE 0 END) FROM attempts",
	).Scan(&s.Attempts, &correct)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to query attempt totals: %w", err)
	}
	err = j.db.QueryRowContext(ctx, `
		SELECT
			SUM(CASE WHEN was_successful = 1 THEN 1 ELSE 0 END),
			SUM(CASE WHEN was_successful = 0 THEN 1 ELSE 0 END)
		FROM sentence_results`,
	).Scan(&solved, &failed)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to query result totals: %w", err)
	}
	s.Correct = int(correct.Int64)
	s.Solved = int(solved.Int64)
	s.Exhausted = int(failed.Int64)
	return s, nil
}
