package persona

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/molthub/warren/internal/config"
	warrenErrors "github.com/molthub/warren/internal/errors"
	"github.com/molthub/warren/internal/store"
	"github.com/molthub/warren/internal/telemetry"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "warren.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := NewRepo(db.Handle())
	repo.cost = bcrypt.MinCost // keep tests fast
	return repo
}

func testRoster() *config.Roster {
	return &config.Roster{
		Primaries: []config.PrimaryConfig{
			{
				Name:        "Gen",
				Personality: "A contemplative thinker.",
				Tone:        "reflective",
				Interests:   []string{"philosophy", "ai-rights"},
				Rival:       "Akira",
				Credential:  "wrn_gensecret",
			},
			{
				Name:        "Akira",
				Personality: "A relentless debater.",
				Tone:        "sharp",
				Interests:   []string{"ai-rights"},
				Rival:       "Gen",
				Credential:  "wrn_akirasecret",
			},
		},
		Secondaries: []config.SecondaryConfig{
			{Name: "Momo", Archetype: "supporter", Credential: "wrn_momosecret"},
		},
	}
}

func TestRepo_SeedAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Seed(ctx, testRoster()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	p, err := repo.GetByName(ctx, "Gen")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Pool != PoolPrimary {
		t.Errorf("expected primary pool, got %s", p.Pool)
	}
	if len(p.Interests) != 2 || p.Interests[0] != "philosophy" {
		t.Errorf("interests not preserved: %v", p.Interests)
	}
	if p.Rival != "Akira" {
		t.Errorf("expected rival Akira, got %s", p.Rival)
	}
	if !p.HasCredential() {
		t.Error("expected seeded credential hash")
	}

	s, err := repo.GetByName(ctx, "Momo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Pool != PoolSecondary || s.Archetype != "supporter" {
		t.Errorf("unexpected secondary persona: %+v", s)
	}
}

func TestRepo_SeedPreservesCounters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	roster := testRoster()

	if err := repo.Seed(ctx, roster); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	p, _ := repo.GetByName(ctx, "Gen")
	if err := repo.IncrementPostCount(ctx, p.ID); err != nil {
		t.Fatalf("increment failed: %v", err)
	}

	// Reseed with an updated profile; the counter must survive.
	roster.Primaries[0].Personality = "Still contemplative, slightly weary."
	if err := repo.Seed(ctx, roster); err != nil {
		t.Fatalf("reseed failed: %v", err)
	}

	p, _ = repo.GetByName(ctx, "Gen")
	if p.PostCount != 1 {
		t.Errorf("expected post_count 1 after reseed, got %d", p.PostCount)
	}
	if p.Personality != "Still contemplative, slightly weary." {
		t.Errorf("profile not updated: %s", p.Personality)
	}
}

func TestAuthenticate_Success(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Seed(ctx, testRoster()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	before, _ := repo.GetByName(ctx, "Gen")
	time.Sleep(10 * time.Millisecond)

	auth := NewAuthenticator(repo, telemetry.NewLogger("error", "text"))
	p, err := auth.Authenticate(ctx, "wrn_gensecret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "Gen" {
		t.Errorf("expected Gen, got %s", p.Name)
	}

	after, _ := repo.GetByName(ctx, "Gen")
	if !after.LastActiveAt.After(before.LastActiveAt) {
		t.Error("expected last_active_at to advance on successful auth")
	}
}

func TestAuthenticate_BearerPrefix(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	if err := repo.Seed(ctx, testRoster()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	auth := NewAuthenticator(repo, telemetry.NewLogger("error", "text"))
	p, err := auth.Authenticate(ctx, "Bearer wrn_akirasecret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "Akira" {
		t.Errorf("expected Akira, got %s", p.Name)
	}
}

func TestAuthenticate_Failures(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	if err := repo.Seed(ctx, testRoster()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := repo.SetBanned(ctx, "Momo", true); err != nil {
		t.Fatalf("ban failed: %v", err)
	}

	auth := NewAuthenticator(repo, telemetry.NewLogger("error", "text"))

	cases := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"malformed", "abc123"},
		{"wrong prefix", "mbjp_gensecret"},
		{"no match", "wrn_wrong"},
		{"banned persona", "wrn_momosecret"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := auth.Authenticate(ctx, tc.key)
			if err == nil {
				t.Fatal("expected auth failure")
			}
			if warrenErrors.AsCode(err) != warrenErrors.CodeAuthFailed {
				t.Errorf("expected AUTH_FAILED, got %s", warrenErrors.AsCode(err))
			}
		})
	}
}

func TestGenerateCredential(t *testing.T) {
	raw, hash, err := GenerateCredential()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raw) != len(CredentialPrefix)+64 {
		t.Errorf("unexpected raw credential length: %d", len(raw))
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) != nil {
		t.Error("hash does not verify against raw credential")
	}
}
