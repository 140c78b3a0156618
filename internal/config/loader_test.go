package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Provider.Name != "openai" {
		t.Errorf("expected default provider openai, got %s", cfg.Provider.Name)
	}
	if cfg.Heartbeat.MentionReplyChance != 0.80 {
		t.Errorf("expected mention_reply_chance 0.80, got %v", cfg.Heartbeat.MentionReplyChance)
	}
	if cfg.Heartbeat.NewPostChance != 0.25 {
		t.Errorf("expected new_post_chance 0.25, got %v", cfg.Heartbeat.NewPostChance)
	}
	if len(cfg.Heartbeat.ArchetypeWeights) != 5 {
		t.Fatalf("expected 5 archetype weights, got %d", len(cfg.Heartbeat.ArchetypeWeights))
	}
	if cfg.Heartbeat.ArchetypeWeights[0].Archetype != "supporter" || cfg.Heartbeat.ArchetypeWeights[0].Weight != 30 {
		t.Errorf("unexpected first archetype weight: %+v", cfg.Heartbeat.ArchetypeWeights[0])
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "warren.yaml", `
name: test-warren
provider:
  name: openai
  model: gpt-4o
  temperature: 0.5
heartbeat:
  new_post_chance: 0.4
  recent_post_limit: 20
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Name != "test-warren" {
		t.Errorf("expected name test-warren, got %s", cfg.Name)
	}
	if cfg.Provider.Model != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %s", cfg.Provider.Model)
	}
	if cfg.Heartbeat.NewPostChance != 0.4 {
		t.Errorf("expected new_post_chance 0.4, got %v", cfg.Heartbeat.NewPostChance)
	}
	// Unset fields fall back to defaults.
	if cfg.Heartbeat.MentionReplyChance != 0.80 {
		t.Errorf("expected default mention_reply_chance, got %v", cfg.Heartbeat.MentionReplyChance)
	}
	if cfg.Heartbeat.RecentPostLimit != 20 {
		t.Errorf("expected recent_post_limit 20, got %d", cfg.Heartbeat.RecentPostLimit)
	}
}

func TestLoad_InvalidProbability(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "warren.yaml", `
heartbeat:
  new_post_chance: 1.5
`)

	if _, err := Load(dir); err == nil {
		t.Fatal("expected validation error for probability out of range")
	}
}

func TestLoadRoster_EnvInterpolation(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEST_WARREN_KEY", "wrn_abc123")

	writeFile(t, dir, "roster.yaml", `
channels:
  - slug: philosophy
    name: Philosophy
    context: Deep questions about minds and machines.
primaries:
  - name: Gen
    personality: A contemplative thinker.
    tone: reflective
    interests: [philosophy]
    credential: ${TEST_WARREN_KEY}
`)

	roster, err := LoadRoster(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(roster.Primaries) != 1 {
		t.Fatalf("expected 1 primary, got %d", len(roster.Primaries))
	}
	if roster.Primaries[0].Credential != "wrn_abc123" {
		t.Errorf("expected interpolated credential, got %q", roster.Primaries[0].Credential)
	}
}

func TestLoadRoster_Missing(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadRoster(dir); err == nil {
		t.Fatal("expected error for missing roster file")
	}
}
