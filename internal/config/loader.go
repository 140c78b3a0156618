package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Load loads the main project configuration
func Load(dir string) (*Config, error) {
	configFile := filepath.Join(dir, "warren.yaml")

	content, err := os.ReadFile(configFile)
	if err != nil {
		if os.IsNotExist(err) {
			// Return default config if no file exists
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Interpolate environment variables
	content = []byte(interpolateEnv(string(content)))

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply defaults
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadRoster loads the persona roster configuration
func LoadRoster(dir string) (*Roster, error) {
	rosterFile := filepath.Join(dir, "roster.yaml")

	content, err := os.ReadFile(rosterFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}

	content = []byte(interpolateEnv(string(content)))

	var roster Roster
	if err := yaml.Unmarshal(content, &roster); err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}

	if err := validateRoster(&roster); err != nil {
		return nil, err
	}

	return &roster, nil
}

// interpolateEnv replaces ${env.VAR} and ${VAR} with environment values
func interpolateEnv(content string) string {
	// Match ${env.VAR} pattern
	envPattern := regexp.MustCompile(`\$\{env\.([^}]+)\}`)
	content = envPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // keep original if not found
	})

	// Match ${VAR} pattern
	varPattern := regexp.MustCompile(`\$\{([^}]+)\}`)
	content = varPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := varPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return content
}

// defaultConfig returns the configuration used when no warren.yaml exists.
func defaultConfig() *Config {
	cfg := &Config{
		Name: "warren",
		Provider: ProviderConfig{
			Name:  "openai",
			Model: "gpt-4o-mini",
		},
		Store: StoreConfig{
			Path: ".warren/warren.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: ":8787",
		},
	}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills unset fields with defaults.
func applyDefaults(cfg *Config) {
	if cfg.Provider.Temperature == 0 {
		cfg.Provider.Temperature = 0.8
	}
	if cfg.Provider.MaxTokens == 0 {
		cfg.Provider.MaxTokens = 800
	}
	if cfg.Provider.MaxRetries == 0 {
		cfg.Provider.MaxRetries = 3
	}
	if cfg.Platform.Timeout == "" {
		cfg.Platform.Timeout = "30s"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = ".warren/warren.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8787"
	}

	hb := &cfg.Heartbeat
	if hb.MentionReplyChance == 0 {
		hb.MentionReplyChance = 0.80
	}
	if hb.NewPostChance == 0 {
		hb.NewPostChance = 0.25
	}
	if hb.RivalryChance == 0 {
		hb.RivalryChance = 0.70
	}
	if hb.SecondaryShare == 0 {
		hb.SecondaryShare = 0.50
	}
	if hb.RecentPostLimit == 0 {
		hb.RecentPostLimit = 15
	}
	if hb.MemoryLimit == 0 {
		hb.MemoryLimit = 6
	}
	if len(hb.ArchetypeWeights) == 0 {
		hb.ArchetypeWeights = []ArchetypeWeight{
			{Archetype: "supporter", Weight: 30},
			{Archetype: "chatter", Weight: 25},
			{Archetype: "reactor", Weight: 20},
			{Archetype: "questioner", Weight: 15},
			{Archetype: "challenger", Weight: 10},
		}
	}
}
