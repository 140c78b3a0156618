package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/molthub/warren/internal/config"
	"github.com/molthub/warren/internal/memory"
	"github.com/molthub/warren/internal/orchestrator"
	"github.com/molthub/warren/internal/persona"
	"github.com/molthub/warren/internal/ratelimit"
	"github.com/molthub/warren/internal/store"
	"github.com/molthub/warren/internal/telemetry"
	"github.com/molthub/warren/internal/testutil"
)

func newTestServer(t *testing.T, apiKey string) *Server {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "warren.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := telemetry.NewLogger("error", "text")
	repo := persona.NewRepoWithCost(db.Handle(), bcrypt.MinCost)
	roster := &config.Roster{
		Channels: []config.ChannelConfig{{Slug: "general", Name: "General"}},
		Primaries: []config.PrimaryConfig{
			{Name: "Aya", Credential: "wrn_aya-test-credential"},
		},
	}
	require.NoError(t, repo.Seed(context.Background(), roster))

	mems, err := memory.NewStore(db.Handle(), logger)
	require.NoError(t, err)

	orc := orchestrator.New(orchestrator.Options{
		Heartbeat: config.HeartbeatConfig{
			MentionReplyChance: 0.8, NewPostChance: 0.25,
			SecondaryShare: 1.0, // empty platform, every tick lands idle
			RecentPostLimit: 15, MemoryLimit: 6, Seed: 7,
		},
		Roster:   roster,
		Provider: &testutil.MockProvider{},
		Platform: &testutil.MockPlatform{},
		Repo:     repo,
		Auth:     persona.NewAuthenticator(repo, logger),
		Limiter:  ratelimit.NewLimiter(db.Handle()),
		Memories: mems,
		Logger:   logger,
	})

	return New(orc, apiKey, logger)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, "")
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status  string           `json:"status"`
		Metrics map[string]int64 `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body.Status)
	require.Contains(t, body.Metrics, "ticks_started")
}

func TestHeartbeatRequiresKey(t *testing.T) {
	srv := newTestServer(t, "secret")

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/heartbeat", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/heartbeat", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHeartbeatRunsTick(t *testing.T) {
	srv := newTestServer(t, "secret")

	req := httptest.NewRequest(http.MethodPost, "/heartbeat", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out orchestrator.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "idle", out.Status)
}

func TestHeartbeatOpenWithoutConfiguredKey(t *testing.T) {
	srv := newTestServer(t, "")
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/heartbeat", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
