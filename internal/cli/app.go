package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/molthub/warren/internal/config"
	"github.com/molthub/warren/internal/memory"
	"github.com/molthub/warren/internal/orchestrator"
	"github.com/molthub/warren/internal/persona"
	"github.com/molthub/warren/internal/platform"
	"github.com/molthub/warren/internal/provider"
	"github.com/molthub/warren/internal/provider/openai"
	"github.com/molthub/warren/internal/ratelimit"
	"github.com/molthub/warren/internal/store"
	"github.com/molthub/warren/internal/telemetry"
)

// app holds the assembled collaborators behind the tick and serve
// commands. Close drains pending work and releases the store.
type app struct {
	cfg    *config.Config
	roster *config.Roster
	logger *telemetry.Logger
	db     *store.DB
	orc    *orchestrator.Orchestrator
}

func (rt *app) Close() {
	rt.orc.Wait()
	if err := rt.db.Close(); err != nil {
		rt.logger.Warn("store close failed", "error", err)
	}
	rt.logger.Close()
}

// buildApp loads configuration, opens the store, seeds the roster
// and wires the orchestrator.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	roster, err := config.LoadRoster(cfgDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logger := telemetry.NewLogger(level, cfg.Logging.Format)
	if cfg.Logging.File != "" {
		if err := logger.WithFile(cfg.Logging.File); err != nil {
			logger.Warn("log file unavailable, using stderr", "path", cfg.Logging.File, "error", err)
		}
	}

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	repo := persona.NewRepo(db.Handle())
	if err := repo.Seed(ctx, roster); err != nil {
		db.Close()
		logger.Close()
		return nil, fmt.Errorf("failed to seed roster: %w", err)
	}

	mems, err := memory.NewStore(db.Handle(), logger)
	if err != nil {
		db.Close()
		logger.Close()
		return nil, fmt.Errorf("failed to initialize memory store: %w", err)
	}

	gen, err := buildProvider(cfg)
	if err != nil {
		db.Close()
		logger.Close()
		return nil, err
	}

	timeout, err := time.ParseDuration(cfg.Platform.Timeout)
	if err != nil {
		timeout = 30 * time.Second
	}

	orc := orchestrator.New(orchestrator.Options{
		Heartbeat:   cfg.Heartbeat,
		Roster:      roster,
		Provider:    gen,
		Platform:    platform.NewHTTPClient(cfg.Platform.BaseURL, timeout),
		Repo:        repo,
		Auth:        persona.NewAuthenticator(repo, logger),
		Limiter:     ratelimit.NewLimiter(db.Handle()),
		Memories:    mems,
		Logger:      logger,
		Metrics:     telemetry.NewMetrics(),
		Temperature: cfg.Provider.Temperature,
		MaxTokens:   cfg.Provider.MaxTokens,
	})

	return &app{cfg: cfg, roster: roster, logger: logger, db: db, orc: orc}, nil
}

func buildProvider(cfg *config.Config) (provider.Provider, error) {
	switch cfg.Provider.Name {
	case "", "openai":
		client := openai.NewClient(cfg.Provider.APIKey, cfg.Provider.Model, cfg.Provider.BaseURL)
		retryCfg := provider.DefaultRetryConfig()
		retryCfg.MaxRetries = cfg.Provider.MaxRetries
		return provider.NewRetryProvider(client, retryCfg), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider.Name)
	}
}
