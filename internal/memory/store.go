// Package memory persists bounded, importance-ranked behavioral memory
// per persona.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/molthub/warren/internal/persona"
	"github.com/molthub/warren/internal/telemetry"
)

const (
	capacityPrimary   = 100
	capacitySecondary = 30
	maxTopicLen       = 64
	maxContentLen     = 500
	channelSlots      = 3 // channel-matching records kept at the front of a retrieval
	supersetFactor    = 2 // retrieve fetches supersetFactor*limit before partitioning
)

// Store reads and writes memory records in the shared database.
type Store struct {
	db     *sql.DB
	node   *snowflake.Node
	logger *telemetry.Logger
	now    func() time.Time
	wg     sync.WaitGroup

	capPrimary   int
	capSecondary int
}

// NewStore creates a memory store.
func NewStore(db *sql.DB, logger *telemetry.Logger) (*Store, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}
	return &Store{
		db:           db,
		node:         node,
		logger:       logger,
		now:          time.Now,
		capPrimary:   capacityPrimary,
		capSecondary: capacitySecondary,
	}, nil
}

// Record stores one memory, evicting low-importance records first when the
// persona is at capacity. Importance is clamped to [1,5] and topic/content
// are truncated. The evict-then-insert runs in one transaction so two
// overlapping ticks cannot push a persona past capacity.
func (s *Store) Record(ctx context.Context, in Input) error {
	importance := in.Importance
	if importance < 1 {
		importance = 1
	}
	if importance > 5 {
		importance = 5
	}
	topic := truncate(in.Topic, maxTopicLen)
	content := truncate(in.Content, maxContentLen)

	capacity, err := s.capacityFor(ctx, in.PersonaID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin memory tx: %w", err)
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM memories
		WHERE persona_id = ? AND is_consolidated = 0
	`, in.PersonaID).Scan(&count)
	if err != nil {
		return fmt.Errorf("count memories: %w", err)
	}

	// Evict exactly enough to leave room for the insert: lowest importance
	// first, oldest first among ties.
	if evict := count - capacity + 1; evict > 0 {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM memories WHERE id IN (
				SELECT id FROM memories
				WHERE persona_id = ? AND is_consolidated = 0
				ORDER BY importance ASC, created_at ASC
				LIMIT ?
			)
		`, in.PersonaID, evict)
		if err != nil {
			return fmt.Errorf("evict memories: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO memories (id, persona_id, memory_type, topic, content,
			importance, channel_slug, related_persona, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.node.Generate().Int64(), in.PersonaID, string(in.Type), topic, content,
		importance, nullable(in.ChannelSlug), nullable(in.RelatedPersona), s.now().UTC())
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}

	return tx.Commit()
}

// Retrieve returns up to limit records for the persona, channel-affine
// records first (capped), the rest by importance then recency. The ordering
// is deterministic for identical stored state. Retrieved records get their
// last-accessed timestamp touched in the background; a failed touch is
// logged and otherwise ignored.
func (s *Store) Retrieve(ctx context.Context, personaID, channel string, limit int) ([]*Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, persona_id, memory_type, topic, content, importance,
			channel_slug, related_persona, created_at, last_accessed_at, is_consolidated
		FROM memories
		WHERE persona_id = ?
		ORDER BY importance DESC, created_at DESC, id DESC
		LIMIT ?
	`, personaID, limit*supersetFactor)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	var matching, others []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if channel != "" && rec.ChannelSlug == channel && len(matching) < channelSlots {
			matching = append(matching, rec)
		} else {
			others = append(others, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := append(matching, others...)
	if len(result) > limit {
		result = result[:limit]
	}

	if len(result) > 0 {
		ids := make([]int64, len(result))
		for i, rec := range result {
			ids[i] = rec.ID
		}
		s.touchAsync(ids)
	}

	return result, nil
}

// Count returns the persona's non-consolidated record count.
func (s *Store) Count(ctx context.Context, personaID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM memories
		WHERE persona_id = ? AND is_consolidated = 0
	`, personaID).Scan(&count)
	return count, err
}

// Wait blocks until all in-flight background touches finish. Used by tests
// and shutdown.
func (s *Store) Wait() {
	s.wg.Wait()
}

// touchAsync updates last_accessed_at for the given records without
// blocking the caller.
func (s *Store) touchAsync(ids []int64) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		now := s.now().UTC()
		for _, id := range ids {
			if _, err := s.db.Exec(
				`UPDATE memories SET last_accessed_at = ? WHERE id = ?`, now, id); err != nil {
				s.logger.Debug("failed to touch memory", "id", id, "error", err)
				return
			}
		}
	}()
}

// capacityFor resolves the persona's pool to its memory capacity.
func (s *Store) capacityFor(ctx context.Context, personaID string) (int, error) {
	var pool string
	err := s.db.QueryRowContext(ctx,
		`SELECT pool FROM personas WHERE id = ?`, personaID).Scan(&pool)
	if err == sql.ErrNoRows {
		// Unknown persona rows still get the smaller bound.
		return s.capSecondary, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lookup persona pool: %w", err)
	}
	if persona.Pool(pool) == persona.PoolPrimary {
		return s.capPrimary, nil
	}
	return s.capSecondary, nil
}

func scanRecord(rows *sql.Rows) (*Record, error) {
	var rec Record
	var memType string
	var channel, related sql.NullString
	var accessed sql.NullTime
	err := rows.Scan(&rec.ID, &rec.PersonaID, &memType, &rec.Topic, &rec.Content,
		&rec.Importance, &channel, &related, &rec.CreatedAt, &accessed, &rec.Consolidated)
	if err != nil {
		return nil, err
	}
	rec.Type = Type(memType)
	rec.ChannelSlug = channel.String
	rec.RelatedPersona = related.String
	rec.LastAccessedAt = accessed.Time
	return &rec, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Cut on a rune boundary.
	runes := []rune(s)
	for len(string(runes)) > max {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
