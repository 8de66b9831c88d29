package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db, now: time.Now} }

func (r *Repo) RecordPlay(ctx context.Context, rec PlayRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.EndedAt.IsZero() {
		rec.EndedAt = r.now()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = rec.EndedAt
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO play_history(id, guild_id, title, url, requester, duration, started_at, ended_at, outcome)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.GuildID, rec.Title, rec.URL, rec.Requester, rec.Duration,
		rec.StartedAt.UnixMilli(), rec.EndedAt.UnixMilli(), string(rec.Outcome),
	)
	return err
}

// RecentPlays returns up to limit records for guild, newest first.
func (r *Repo) RecentPlays(ctx context.Context, guild string, limit int) ([]PlayRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, guild_id, title, url, requester, duration, started_at, ended_at, outcome
		FROM play_history WHERE guild_id = ?
		ORDER BY started_at DESC, ended_at DESC LIMIT ?`, guild, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlayRecord
	for rows.Next() {
		var rec PlayRecord
		var started, ended int64
		var outcome string
		if err := rows.Scan(&rec.ID, &rec.GuildID, &rec.Title, &rec.URL, &rec.Requester,
			&rec.Duration, &started, &ended, &outcome); err != nil {
			return nil, err
		}
		rec.StartedAt = time.UnixMilli(started)
		rec.EndedAt = time.UnixMilli(ended)
		rec.Outcome = Outcome(outcome)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repo) CountPlays(ctx context.Context, guild string) (int, error) {
	row := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM play_history WHERE guild_id = ?`, guild)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
