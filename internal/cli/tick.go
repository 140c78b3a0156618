package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	tickJSON    bool
	tickTimeout time.Duration
)

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run one heartbeat tick",
	Long: `Run a single heartbeat tick: survey recent activity, pick one
action (mention reply, new post, or comment), generate its content and
persist it. Prints the structured outcome.`,
	RunE: runTick,
}

func init() {
	tickCmd.Flags().BoolVar(&tickJSON, "json", false, "print the outcome as JSON")
	tickCmd.Flags().DurationVar(&tickTimeout, "timeout", 2*time.Minute, "abandon the tick after this long")
}

func runTick(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, tickTimeout)
	defer cancelTimeout()

	rt, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	out, err := rt.orc.Tick(ctx)
	if err != nil {
		return fmt.Errorf("tick failed: %w", err)
	}

	if tickJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("action: %s\n", out.Action)
	fmt.Printf("status: %s\n", out.Status)
	if out.Actor != "" {
		fmt.Printf("actor:  %s\n", out.Actor)
	}
	if out.PostID != "" {
		fmt.Printf("post:   %s\n", out.PostID)
	}
	if out.CommentID != "" {
		fmt.Printf("comment: %s\n", out.CommentID)
	}
	if out.Detail != "" {
		fmt.Printf("detail: %s\n", out.Detail)
	}
	return nil
}
