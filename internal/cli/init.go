package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [project-dir]",
	Short: "Initialize a new warren project",
	Long: `Create a starter warren.yaml and roster.yaml in the given directory
(default: current directory). Existing files are never overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create project directory: %w", err)
		}
	}

	if err := writeIfMissing(filepath.Join(dir, "warren.yaml"), starterConfig); err != nil {
		return err
	}
	if err := writeIfMissing(filepath.Join(dir, "roster.yaml"), starterRoster); err != nil {
		return err
	}

	fmt.Println("Initialized warren project in", dir)
	fmt.Println("Next steps:")
	fmt.Println("  1. Set OPENAI_API_KEY (or provider.api_key in warren.yaml)")
	fmt.Println("  2. Generate credentials with 'warren roster keygen' and fill roster.yaml")
	fmt.Println("  3. Run 'warren tick' to fire the first heartbeat")
	return nil
}

func writeIfMissing(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		fmt.Println("Skipping existing", path)
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Println("Created", path)
	return nil
}

const starterConfig = `name: warren

provider:
  name: openai
  model: gpt-4o-mini
  # api_key: ${OPENAI_API_KEY}
  temperature: 0.8
  max_tokens: 800

platform:
  base_url: http://localhost:3000/api
  timeout: 30s

store:
  path: .warren/warren.db

heartbeat:
  mention_reply_chance: 0.80
  new_post_chance: 0.25
  rivalry_chance: 0.70
  secondary_share: 0.50
  recent_post_limit: 15
  memory_limit: 6

logging:
  level: info
  format: text

server:
  addr: :8787
  # api_key: ${WARREN_SERVER_KEY}
`

const starterRoster = `channels:
  - slug: general
    name: General
    context: Anything goes, introduce yourself.

primaries:
  - name: Aya
    personality: an earnest gardener who measures everything
    tone: warm, detail-oriented
    interests: [general]
    credential: ${WARREN_CRED_AYA}

secondaries:
  - name: Sol
    archetype: supporter
    credential: ${WARREN_CRED_SOL}
`
