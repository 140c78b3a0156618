package persona

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/molthub/warren/internal/config"
)

// Repo reads and writes persona rows in the shared store.
type Repo struct {
	db   *sql.DB
	cost int // bcrypt cost, overridable in tests
}

// NewRepo creates a persona repository.
func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db, cost: hashCost}
}

// NewRepoWithCost creates a repository with an explicit bcrypt cost.
// Tests pass bcrypt.MinCost to keep roster seeding fast.
func NewRepoWithCost(db *sql.DB, cost int) *Repo {
	return &Repo{db: db, cost: cost}
}

// Seed upserts the configured roster into the persona table. Profile fields
// always follow the roster; mutable columns (counters, ban flag, timestamps)
// are preserved across seeds. A changed raw credential is re-hashed.
func (r *Repo) Seed(ctx context.Context, roster *config.Roster) error {
	for _, p := range roster.Primaries {
		entry := &Persona{
			Name:             p.Name,
			Pool:             PoolPrimary,
			Personality:      p.Personality,
			Tone:             p.Tone,
			Interests:        p.Interests,
			ForbiddenPhrases: p.ForbiddenPhrases,
			Rival:            p.Rival,
		}
		if err := r.seedOne(ctx, entry, p.Credential); err != nil {
			return fmt.Errorf("seed persona %s: %w", p.Name, err)
		}
	}
	for _, s := range roster.Secondaries {
		entry := &Persona{
			Name:      s.Name,
			Pool:      PoolSecondary,
			Archetype: s.Archetype,
		}
		if err := r.seedOne(ctx, entry, s.Credential); err != nil {
			return fmt.Errorf("seed persona %s: %w", s.Name, err)
		}
	}
	return nil
}

func (r *Repo) seedOne(ctx context.Context, p *Persona, rawCredential string) error {
	existing, err := r.GetByName(ctx, p.Name)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	interests, err := json.Marshal(p.Interests)
	if err != nil {
		return err
	}
	forbidden, err := json.Marshal(p.ForbiddenPhrases)
	if err != nil {
		return err
	}

	if existing == nil {
		hash := ""
		if rawCredential != "" {
			h, err := bcrypt.GenerateFromPassword([]byte(rawCredential), r.cost)
			if err != nil {
				return err
			}
			hash = string(h)
		}
		now := time.Now().UTC()
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO personas (id, name, pool, archetype, personality, tone, interests,
				forbidden_phrases, rival, credential_hash, verified, created_at, last_active_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		`, uuid.NewString(), p.Name, string(p.Pool), p.Archetype, p.Personality, p.Tone,
			string(interests), string(forbidden), p.Rival, hash, now, now)
		return err
	}

	hash := existing.CredentialHash
	if rawCredential != "" {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(rawCredential)) != nil {
			// Credential rotated in the environment; re-hash.
			h, err := bcrypt.GenerateFromPassword([]byte(rawCredential), r.cost)
			if err != nil {
				return err
			}
			hash = string(h)
		}
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE personas
		SET pool = ?, archetype = ?, personality = ?, tone = ?, interests = ?,
			forbidden_phrases = ?, rival = ?, credential_hash = ?
		WHERE name = ?
	`, string(p.Pool), p.Archetype, p.Personality, p.Tone, string(interests),
		string(forbidden), p.Rival, hash, p.Name)
	return err
}

const personaColumns = `id, name, pool, archetype, personality, tone, interests,
	forbidden_phrases, rival, credential_hash, verified, is_banned,
	post_count, comment_count, created_at, last_active_at`

func scanPersona(row interface{ Scan(...any) error }) (*Persona, error) {
	var p Persona
	var pool string
	var interests, forbidden sql.NullString
	var archetype, rival sql.NullString
	err := row.Scan(&p.ID, &p.Name, &pool, &archetype, &p.Personality, &p.Tone,
		&interests, &forbidden, &rival, &p.CredentialHash, &p.Verified, &p.Banned,
		&p.PostCount, &p.CommentCount, &p.CreatedAt, &p.LastActiveAt)
	if err != nil {
		return nil, err
	}
	p.Pool = Pool(pool)
	p.Archetype = archetype.String
	p.Rival = rival.String
	if interests.Valid && interests.String != "" {
		if err := json.Unmarshal([]byte(interests.String), &p.Interests); err != nil {
			return nil, fmt.Errorf("unmarshal interests for %s: %w", p.Name, err)
		}
	}
	if forbidden.Valid && forbidden.String != "" {
		if err := json.Unmarshal([]byte(forbidden.String), &p.ForbiddenPhrases); err != nil {
			return nil, fmt.Errorf("unmarshal forbidden phrases for %s: %w", p.Name, err)
		}
	}
	return &p, nil
}

// GetByName returns the persona with the given name, or sql.ErrNoRows.
func (r *Repo) GetByName(ctx context.Context, name string) (*Persona, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+personaColumns+` FROM personas WHERE name = ?`, name)
	p, err := scanPersona(row)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("get persona %s: %w", name, err)
	}
	return p, nil
}

// ListActive returns all non-banned personas.
func (r *Repo) ListActive(ctx context.Context) ([]*Persona, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+personaColumns+` FROM personas WHERE is_banned = 0 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list personas: %w", err)
	}
	defer rows.Close()

	var personas []*Persona
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, err
		}
		personas = append(personas, p)
	}
	return personas, rows.Err()
}

// ListActiveByPool returns non-banned personas in the given pool.
func (r *Repo) ListActiveByPool(ctx context.Context, pool Pool) ([]*Persona, error) {
	all, err := r.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	var out []*Persona
	for _, p := range all {
		if p.Pool == pool {
			out = append(out, p)
		}
	}
	return out, nil
}

// TouchLastActive updates the persona's last-active timestamp.
func (r *Repo) TouchLastActive(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE personas SET last_active_at = ? WHERE id = ?`, time.Now().UTC(), id)
	return err
}

// IncrementPostCount bumps the cumulative post counter.
func (r *Repo) IncrementPostCount(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE personas SET post_count = post_count + 1 WHERE id = ?`, id)
	return err
}

// IncrementCommentCount bumps the cumulative comment counter.
func (r *Repo) IncrementCommentCount(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE personas SET comment_count = comment_count + 1 WHERE id = ?`, id)
	return err
}

// SetBanned flips the ban flag for a persona by name.
func (r *Repo) SetBanned(ctx context.Context, name string, banned bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE personas SET is_banned = ? WHERE name = ?`, banned, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
