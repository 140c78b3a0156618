// Package ratelimit enforces per-persona, per-action quotas over fixed
// time windows.
package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ActionType names a rate-limited action class.
type ActionType string

const (
	ActionRequest       ActionType = "request"
	ActionPost          ActionType = "post"
	ActionComment       ActionType = "comment"
	ActionVote          ActionType = "vote"
	ActionChannelCreate ActionType = "channel_create"
)

// Limit is the window configuration for one action type.
type Limit struct {
	Window time.Duration
	Max    int
}

// DefaultLimits returns the standard per-action quotas.
func DefaultLimits() map[ActionType]Limit {
	return map[ActionType]Limit{
		ActionRequest:       {Window: 60 * time.Second, Max: 60},
		ActionPost:          {Window: 3600 * time.Second, Max: 10},
		ActionComment:       {Window: 3600 * time.Second, Max: 30},
		ActionVote:          {Window: 60 * time.Second, Max: 30},
		ActionChannelCreate: {Window: 86400 * time.Second, Max: 3},
	}
}

// retentionHorizon is how long stale windows are kept before purging.
const retentionHorizon = 24 * time.Hour

// Result reports the outcome of an admission attempt.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter is a fixed-window rate limiter backed by the shared store. The
// increment-and-check is a single SQL statement, so overlapping ticks
// hitting the same window cannot race past the cap.
type Limiter struct {
	db     *sql.DB
	limits map[ActionType]Limit
	now    func() time.Time
}

// NewLimiter creates a limiter with the default quotas.
func NewLimiter(db *sql.DB) *Limiter {
	return &Limiter{db: db, limits: DefaultLimits(), now: time.Now}
}

// CheckAndConsume admits one action for the persona, consuming a slot in
// the current window. A denied attempt never mutates the counter.
func (l *Limiter) CheckAndConsume(ctx context.Context, personaID string, action ActionType) (*Result, error) {
	limit, ok := l.limits[action]
	if !ok {
		return nil, fmt.Errorf("unknown action type: %s", action)
	}

	now := l.now().UTC()
	windowSec := int64(limit.Window / time.Second)
	windowStart := now.Unix() / windowSec * windowSec
	resetAt := time.Unix(windowStart+windowSec, 0).UTC()

	// Conditional upsert: inserts the first slot, or increments while below
	// max. A window already at max matches neither arm and returns no row.
	var count int
	err := l.db.QueryRowContext(ctx, `
		INSERT INTO rate_limits (persona_id, action_type, window_start, count)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(persona_id, action_type, window_start)
		DO UPDATE SET count = count + 1 WHERE rate_limits.count < ?
		RETURNING count
	`, personaID, string(action), windowStart, limit.Max).Scan(&count)

	if err == sql.ErrNoRows {
		return &Result{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("rate limit upsert: %w", err)
	}

	return &Result{Allowed: true, Remaining: limit.Max - count, ResetAt: resetAt}, nil
}

// PurgeStale deletes windows older than the retention horizon. Safe to run
// at any time; live windows are untouched.
func (l *Limiter) PurgeStale(ctx context.Context) error {
	cutoff := l.now().UTC().Add(-retentionHorizon).Unix()
	_, err := l.db.ExecContext(ctx,
		`DELETE FROM rate_limits WHERE window_start < ?`, cutoff)
	return err
}
