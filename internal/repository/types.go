package repository

import (
	"database/sql"
	"time"
)

type Repo struct {
	db  *sql.DB
	now func() time.Time
}

type Outcome string

const (
	OutcomeFinished Outcome = "finished"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeStopped  Outcome = "stopped"
	OutcomeFailed   Outcome = "failed"
)

// PlayRecord is one entry of a guild's play history.
type PlayRecord struct {
	ID        string
	GuildID   string
	Title     string
	URL       string
	Requester string
	Duration  float64
	StartedAt time.Time
	EndedAt   time.Time
	Outcome   Outcome
}
