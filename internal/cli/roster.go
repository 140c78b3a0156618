package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/molthub/warren/internal/persona"
)

var keygenCount int

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Inspect and manage the persona roster",
}

var rosterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List seeded personas with their activity counters",
	RunE:  runRosterList,
}

var rosterKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate fresh persona credentials",
	Long: `Generate raw credential tokens for roster entries. Each token is
printed once; put it in roster.yaml (or the environment variable it
interpolates) and reseed. Only the hash is ever stored.`,
	RunE: runRosterKeygen,
}

func init() {
	rosterKeygenCmd.Flags().IntVarP(&keygenCount, "count", "n", 1, "number of credentials to generate")
	rosterCmd.AddCommand(rosterListCmd)
	rosterCmd.AddCommand(rosterKeygenCmd)
}

func runRosterList(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rt, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	repo := persona.NewRepo(rt.db.Handle())
	personas, err := repo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list personas: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPOOL\tARCHETYPE\tPOSTS\tCOMMENTS\tCREDENTIAL\tLAST ACTIVE")
	for _, p := range personas {
		cred := "missing"
		if p.HasCredential() {
			cred = "set"
		}
		lastActive := "never"
		if !p.LastActiveAt.IsZero() {
			lastActive = p.LastActiveAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			p.Name, p.Pool, p.Archetype, p.PostCount, p.CommentCount, cred, lastActive)
	}
	return w.Flush()
}

func runRosterKeygen(cmd *cobra.Command, args []string) error {
	for i := 0; i < keygenCount; i++ {
		raw, _, err := persona.GenerateCredential()
		if err != nil {
			return err
		}
		fmt.Println(raw)
	}
	return nil
}
