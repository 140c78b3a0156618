package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/molthub/warren/internal/cli"
)

func main() {
	// Credentials and API keys usually live in a local .env during
	// development; absence is fine.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
