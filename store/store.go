// Package store keeps the moderation log: one record per action taken
// against a member, numbered by a per-member case counter.
package store

import (
	"context"
	"time"

	"CommunityBot/config"
	"CommunityBot/fault"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when a case does not exist.
var ErrNotFound = errors.New("case not found")

// Actions recorded by the moderation commands.
const (
	ActionWarn    = "Warn"
	ActionMute    = "Mute"
	ActionBan     = "Ban"
	ActionSoftban = "Softban"
	ActionKick    = "Kick"
)

// Record is one moderation action.
type Record struct {
	// CaseNumber is assigned by Insert. It increases per guild and member
	// and is never handed out twice, even after a pardon.
	CaseNumber  int64         `json:"case_number"`
	GuildID     string        `json:"guild_id"`
	UserID      string        `json:"user_id"`
	Username    string        `json:"username"`
	ModeratorID string        `json:"moderator_id"`
	Action      string        `json:"action_type"`
	Reason      string        `json:"reason"`
	Duration    time.Duration `json:"duration,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
}

// LogStore persists moderation records.
type LogStore interface {
	// Insert stores rec, filling in its CaseNumber and, if zero, Timestamp.
	Insert(ctx context.Context, rec *Record) error
	// Find returns the member's records ordered by case number.
	Find(ctx context.Context, guildID, userID string) ([]Record, error)
	// Delete removes one case, returning ErrNotFound if it does not exist.
	Delete(ctx context.Context, guildID, userID string, caseNumber int64) error
	Close() error
}

// Open returns the store selected by cfg.StoreDriver.
func Open(cfg *config.Config) (LogStore, error) {
	switch cfg.StoreDriver {
	case config.DriverBolt:
		return OpenBolt(cfg.BoltPath)
	case config.DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fault.Newf(fault.Config, "open store", "DATABASE_URL environment variable is required")
		}
		return OpenPostgres(cfg.DatabaseURL)
	default:
		return nil, fault.Newf(fault.Config, "open store", "unknown store driver %q", cfg.StoreDriver)
	}
}

func stamp(rec *Record) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
}
