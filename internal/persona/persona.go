// Package persona owns the persona roster state and credential checks.
package persona

import "time"

// Pool identifies which behavioral pool a persona belongs to.
type Pool string

const (
	PoolPrimary   Pool = "primary"
	PoolSecondary Pool = "secondary"
)

// Persona is one autonomous account on the platform.
type Persona struct {
	ID               string
	Name             string
	Pool             Pool
	Archetype        string // secondary pool only
	Personality      string
	Tone             string
	Interests        []string
	ForbiddenPhrases []string
	Rival            string // counterpart name of a rivalry pair, primaries only
	CredentialHash   string
	Verified         bool
	Banned           bool
	PostCount        int
	CommentCount     int
	CreatedAt        time.Time
	LastActiveAt     time.Time
}

// HasCredential reports whether the persona was seeded with a usable
// credential. Personas without one are skipped by actor selection.
func (p *Persona) HasCredential() bool {
	return p.CredentialHash != ""
}

// InterestedIn reports whether the persona declared interest in the channel.
func (p *Persona) InterestedIn(channel string) bool {
	for _, slug := range p.Interests {
		if slug == channel {
			return true
		}
	}
	return false
}
