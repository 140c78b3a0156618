package config

import (
	"fmt"
	"strings"
	"time"

	warrenErrors "github.com/molthub/warren/internal/errors"
)

// validateConfig validates the main configuration
func validateConfig(cfg *Config) error {
	var errs []string

	for name, p := range map[string]float64{
		"mention_reply_chance": cfg.Heartbeat.MentionReplyChance,
		"new_post_chance":      cfg.Heartbeat.NewPostChance,
		"rivalry_chance":       cfg.Heartbeat.RivalryChance,
		"secondary_share":      cfg.Heartbeat.SecondaryShare,
	} {
		if p < 0 || p > 1 {
			errs = append(errs, fmt.Sprintf("%s must be in [0,1], got %v", name, p))
		}
	}

	total := 0
	for _, aw := range cfg.Heartbeat.ArchetypeWeights {
		if !isArchetype(aw.Archetype) {
			errs = append(errs, fmt.Sprintf("unknown archetype: %s", aw.Archetype))
		}
		if aw.Weight <= 0 {
			errs = append(errs, fmt.Sprintf("archetype %s weight must be positive", aw.Archetype))
		}
		total += aw.Weight
	}
	if len(cfg.Heartbeat.ArchetypeWeights) > 0 && total <= 0 {
		errs = append(errs, "archetype weights must sum to a positive total")
	}

	if cfg.Platform.Timeout != "" {
		if _, err := time.ParseDuration(cfg.Platform.Timeout); err != nil {
			errs = append(errs, fmt.Sprintf("invalid platform timeout: %s", cfg.Platform.Timeout))
		}
	}

	if len(errs) > 0 {
		return warrenErrors.New(warrenErrors.CodeConfigInvalid,
			"config validation failed: "+strings.Join(errs, "; "))
	}
	return nil
}

// validateRoster validates the persona roster
func validateRoster(roster *Roster) error {
	var errs []string

	seen := map[string]bool{}
	channels := map[string]bool{}

	for _, ch := range roster.Channels {
		if ch.Slug == "" {
			errs = append(errs, "channel slug is required")
			continue
		}
		if channels[ch.Slug] {
			errs = append(errs, fmt.Sprintf("duplicate channel slug: %s", ch.Slug))
		}
		channels[ch.Slug] = true
	}

	primaries := map[string]*PrimaryConfig{}
	for i := range roster.Primaries {
		p := &roster.Primaries[i]
		if p.Name == "" {
			errs = append(errs, "primary persona name is required")
			continue
		}
		if seen[p.Name] {
			errs = append(errs, fmt.Sprintf("duplicate persona name: %s", p.Name))
		}
		seen[p.Name] = true
		primaries[p.Name] = p

		if p.Personality == "" {
			errs = append(errs, fmt.Sprintf("persona %s: personality is required", p.Name))
		}
		for _, interest := range p.Interests {
			if len(channels) > 0 && !channels[interest] {
				errs = append(errs, fmt.Sprintf("persona %s: unknown interest channel %s", p.Name, interest))
			}
		}
	}

	for _, s := range roster.Secondaries {
		if s.Name == "" {
			errs = append(errs, "secondary persona name is required")
			continue
		}
		if seen[s.Name] {
			errs = append(errs, fmt.Sprintf("duplicate persona name: %s", s.Name))
		}
		seen[s.Name] = true

		if !isArchetype(s.Archetype) {
			errs = append(errs, fmt.Sprintf("persona %s: invalid archetype %s", s.Name, s.Archetype))
		}
	}

	// Rivalry pairs reference primaries only, and never self.
	for name, p := range primaries {
		if p.Rival == "" {
			continue
		}
		if p.Rival == name {
			errs = append(errs, fmt.Sprintf("persona %s: rival cannot be self", name))
			continue
		}
		if _, ok := primaries[p.Rival]; !ok {
			errs = append(errs, fmt.Sprintf("persona %s: rival %s is not a primary persona", name, p.Rival))
		}
	}

	if len(errs) > 0 {
		return warrenErrors.New(warrenErrors.CodeConfigInvalid,
			"roster validation failed: "+strings.Join(errs, "; "))
	}
	return nil
}

func isArchetype(a string) bool {
	for _, known := range Archetypes {
		if a == known {
			return true
		}
	}
	return false
}
