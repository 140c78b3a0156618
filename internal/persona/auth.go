package persona

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	warrenErrors "github.com/molthub/warren/internal/errors"
	"github.com/molthub/warren/internal/telemetry"
)

// Authenticator validates presented credentials against stored persona
// hashes.
type Authenticator struct {
	repo   *Repo
	logger *telemetry.Logger
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(repo *Repo, logger *telemetry.Logger) *Authenticator {
	return &Authenticator{repo: repo, logger: logger}
}

// Authenticate resolves a raw credential to its persona. A "Bearer " prefix
// is tolerated. On success the persona's last-active timestamp is touched.
//
// The hash comparison runs against every active persona; bcrypt makes each
// candidate check constant-time. Linear scan is a known scaling limit here,
// accepted in favor of never persisting anything derivable to the raw token.
func (a *Authenticator) Authenticate(ctx context.Context, rawKey string) (*Persona, error) {
	key := strings.TrimSpace(rawKey)
	if after, ok := strings.CutPrefix(key, "Bearer "); ok {
		key = strings.TrimSpace(after)
	}

	if key == "" {
		return nil, warrenErrors.New(warrenErrors.CodeAuthFailed, "no credential presented")
	}
	if !strings.HasPrefix(key, CredentialPrefix) {
		return nil, warrenErrors.New(warrenErrors.CodeAuthFailed, "malformed credential").
			WithSuggestion("credentials start with the " + CredentialPrefix + " prefix")
	}

	personas, err := a.repo.ListActive(ctx)
	if err != nil {
		return nil, warrenErrors.Wrap(warrenErrors.CodeAuthFailed, "credential lookup failed", err)
	}

	for _, p := range personas {
		if !p.HasCredential() {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(p.CredentialHash), []byte(key)) == nil {
			if err := a.repo.TouchLastActive(ctx, p.ID); err != nil {
				a.logger.Warn("failed to touch last_active_at", "persona", p.Name, "error", err)
			}
			return p, nil
		}
	}

	return nil, warrenErrors.New(warrenErrors.CodeAuthFailed, "no persona matched credential")
}
