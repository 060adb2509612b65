// Package db provides the Postgres connection, schema migration, and the
// verification outcome history.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'

	"github.com/onnwee/habbo-verify/verify"
)

// Connect opens a pooled Postgres handle and checks it is reachable.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("db: empty DSN")
	}
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	database.SetMaxOpenConns(10)
	database.SetMaxIdleConns(5)
	database.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := database.PingContext(pingCtx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return database, nil
}

// Recorder stores finished verification sessions.
type Recorder struct {
	db *sql.DB
}

var _ verify.Recorder = (*Recorder)(nil)

// NewRecorder wraps an open, migrated database.
func NewRecorder(db *sql.DB) *Recorder { return &Recorder{db: db} }

// RecordOutcome inserts r. Recording the same session twice keeps the first row.
func (r *Recorder) RecordOutcome(ctx context.Context, rec verify.Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO verification_outcomes
			(session_id, user_id, guild_id, profile, resolved_name, outcome, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id) DO NOTHING`,
		rec.SessionID, rec.UserID, rec.GuildID, rec.Profile, rec.ResolvedName,
		rec.State.String(), rec.StartedAt, rec.FinishedAt)
	if err != nil {
		return fmt.Errorf("insert verification outcome: %w", err)
	}
	return nil
}

// LastProfile returns the profile of userID's most recent session, or "" when
// there is none.
func (r *Recorder) LastProfile(ctx context.Context, userID string) (string, error) {
	var profile string
	err := r.db.QueryRowContext(ctx, `
		SELECT profile FROM verification_outcomes
		WHERE user_id = $1
		ORDER BY finished_at DESC
		LIMIT 1`, userID).Scan(&profile)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query last profile: %w", err)
	}
	return profile, nil
}

// OutcomeCount is one row of Summary.
type OutcomeCount struct {
	Outcome string `json:"outcome"`
	Count   int64  `json:"count"`
}

// Summary counts outcomes since the given time, optionally for one guild.
func (r *Recorder) Summary(ctx context.Context, guildID string, since time.Time) ([]OutcomeCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT outcome, COUNT(*) FROM verification_outcomes
		WHERE finished_at >= $1 AND ($2 = '' OR guild_id = $2)
		GROUP BY outcome
		ORDER BY outcome`, since, guildID)
	if err != nil {
		return nil, fmt.Errorf("query outcome summary: %w", err)
	}
	defer rows.Close()

	var out []OutcomeCount
	for rows.Next() {
		var oc OutcomeCount
		if err := rows.Scan(&oc.Outcome, &oc.Count); err != nil {
			return nil, fmt.Errorf("scan outcome summary: %w", err)
		}
		out = append(out, oc)
	}
	return out, rows.Err()
}
