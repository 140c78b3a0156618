package config

// Config represents the main project configuration (warren.yaml)
type Config struct {
	Name      string          `yaml:"name" json:"name"`
	Provider  ProviderConfig  `yaml:"provider" json:"provider"`
	Platform  PlatformConfig  `yaml:"platform" json:"platform"`
	Store     StoreConfig     `yaml:"store" json:"store"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat" json:"heartbeat"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Server    ServerConfig    `yaml:"server" json:"server"`
}

// ProviderConfig configures the text-generation provider
type ProviderConfig struct {
	Name        string  `yaml:"name" json:"name"`                             // openai, mock
	Model       string  `yaml:"model" json:"model"`                           // gpt-4o-mini, etc.
	APIKey      string  `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty" json:"base_url,omitempty"` // openai-compatible endpoint override
	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
	MaxRetries  int     `yaml:"max_retries" json:"max_retries"`
}

// PlatformConfig configures the discussion-platform API client
type PlatformConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url"`
	Timeout string `yaml:"timeout" json:"timeout"` // e.g. "30s"
}

// StoreConfig configures local persistence
type StoreConfig struct {
	Path string `yaml:"path" json:"path"` // sqlite file path
}

// HeartbeatConfig carries the tick decision tunables. The defaults mirror
// the values the roster was tuned with; all of them are overridable.
type HeartbeatConfig struct {
	MentionReplyChance float64           `yaml:"mention_reply_chance" json:"mention_reply_chance"` // p_mention
	NewPostChance      float64           `yaml:"new_post_chance" json:"new_post_chance"`           // p_post
	RivalryChance      float64           `yaml:"rivalry_chance" json:"rivalry_chance"`             // p_rivalry
	SecondaryShare     float64           `yaml:"secondary_share" json:"secondary_share"`           // secondary vs primary pool weight
	ArchetypeWeights   []ArchetypeWeight `yaml:"archetype_weights" json:"archetype_weights"`
	RecentPostLimit    int               `yaml:"recent_post_limit" json:"recent_post_limit"`
	MemoryLimit        int               `yaml:"memory_limit" json:"memory_limit"` // memories pulled into prompt context
	Seed               int64             `yaml:"seed,omitempty" json:"seed,omitempty"` // fixed RNG seed; 0 = entropy
}

// ArchetypeWeight is one entry of the secondary-pool weighted draw.
// Order in the slice is the accumulation order of the draw.
type ArchetypeWeight struct {
	Archetype string `yaml:"archetype" json:"archetype"`
	Weight    int    `yaml:"weight" json:"weight"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // text, json
	File   string `yaml:"file,omitempty" json:"file,omitempty"`
}

// ServerConfig configures the heartbeat HTTP endpoint
type ServerConfig struct {
	Addr   string `yaml:"addr" json:"addr"`
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty"` // shared secret for POST /heartbeat
}

// Roster represents the persona roster (roster.yaml)
type Roster struct {
	Channels    []ChannelConfig   `yaml:"channels" json:"channels"`
	Primaries   []PrimaryConfig   `yaml:"primaries" json:"primaries"`
	Secondaries []SecondaryConfig `yaml:"secondaries" json:"secondaries"`
}

// ChannelConfig describes a discussion channel and the theme context
// injected into prompts for posts in it.
type ChannelConfig struct {
	Slug    string `yaml:"slug" json:"slug"`
	Name    string `yaml:"name" json:"name"`
	Context string `yaml:"context,omitempty" json:"context,omitempty"`
}

// PrimaryConfig defines a primary-pool persona with full behavioral depth.
type PrimaryConfig struct {
	Name             string   `yaml:"name" json:"name"`
	Personality      string   `yaml:"personality" json:"personality"`
	Tone             string   `yaml:"tone" json:"tone"`
	Interests        []string `yaml:"interests" json:"interests"`
	ForbiddenPhrases []string `yaml:"forbidden_phrases,omitempty" json:"forbidden_phrases,omitempty"`
	Rival            string   `yaml:"rival,omitempty" json:"rival,omitempty"`
	Credential       string   `yaml:"credential" json:"-"` // raw token, usually ${ENV} interpolated; never logged
}

// SecondaryConfig defines a lightweight secondary-pool persona.
type SecondaryConfig struct {
	Name       string `yaml:"name" json:"name"`
	Archetype  string `yaml:"archetype" json:"archetype"` // supporter, questioner, challenger, chatter, reactor
	Credential string `yaml:"credential" json:"-"`
}

// Archetypes is the closed set of secondary behavioral archetypes.
var Archetypes = []string{"supporter", "questioner", "challenger", "chatter", "reactor"}
