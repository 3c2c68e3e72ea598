package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS moderation_cases (
    guild_id  TEXT NOT NULL,
    user_id   TEXT NOT NULL,
    last_case BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (guild_id, user_id)
);

CREATE TABLE IF NOT EXISTS moderation_logs (
    guild_id     TEXT NOT NULL,
    user_id      TEXT NOT NULL,
    case_number  BIGINT NOT NULL,
    username     TEXT NOT NULL DEFAULT '',
    moderator_id TEXT NOT NULL,
    action_type  TEXT NOT NULL,
    reason       TEXT NOT NULL DEFAULT '',
    duration_ms  BIGINT NOT NULL DEFAULT 0,
    created_at   TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (guild_id, user_id, case_number)
);`

// Postgres is a LogStore backed by a PostgreSQL database. The case counter
// lives in its own table so pardoned case numbers are not reused.
type Postgres struct {
	db *sql.DB
}

func OpenPostgres(dbURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create schema")
	}
	return &Postgres{db: db}, nil
}

func (s *Postgres) Insert(ctx context.Context, rec *Record) (err error) {
	stamp(rec)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, tx.Rollback())
		}
	}()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO moderation_cases (guild_id, user_id, last_case)
		VALUES ($1, $2, 1)
		ON CONFLICT (guild_id, user_id) DO UPDATE SET last_case = moderation_cases.last_case + 1
		RETURNING last_case
	`, rec.GuildID, rec.UserID).Scan(&rec.CaseNumber)
	if err != nil {
		return errors.Wrap(err, "next case number")
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO moderation_logs
		    (guild_id, user_id, case_number, username, moderator_id, action_type, reason, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rec.GuildID, rec.UserID, rec.CaseNumber, rec.Username, rec.ModeratorID, rec.Action, rec.Reason,
		rec.Duration.Milliseconds(), rec.Timestamp)
	if err != nil {
		return errors.Wrap(err, "insert case")
	}
	return tx.Commit()
}

func (s *Postgres) Find(ctx context.Context, guildID, userID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT case_number, username, moderator_id, action_type, reason, duration_ms, created_at
		FROM moderation_logs
		WHERE guild_id = $1 AND user_id = $2
		ORDER BY case_number
	`, guildID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec := Record{GuildID: guildID, UserID: userID}
		var durationMS int64
		if err := rows.Scan(&rec.CaseNumber, &rec.Username, &rec.ModeratorID, &rec.Action,
			&rec.Reason, &durationMS, &rec.Timestamp); err != nil {
			return nil, err
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Postgres) Delete(ctx context.Context, guildID, userID string, caseNumber int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM moderation_logs
		WHERE guild_id = $1 AND user_id = $2 AND case_number = $3
	`, guildID, userID, caseNumber)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) Close() error {
	return s.db.Close()
}
