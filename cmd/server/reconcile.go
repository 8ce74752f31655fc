package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"corpauth/pkg/requestcontext"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one reconciliation pass and print its summary",
	Long: `Run one reconciliation pass against the configured store and chat
server, then exit. Useful from cron or after changing role rules.`,
	RunE: runReconcile,
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.engine.RunPass(requestcontext.WithActor(ctx, "cli"))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "pass %s finished in %s\n", summary.PassID, summary.Duration)
	fmt.Fprintf(out, "  candidates:      %d\n", summary.Candidates)
	fmt.Fprintf(out, "  processed:       %d\n", summary.Processed)
	fmt.Fprintf(out, "  repaired:        %d\n", summary.Repaired)
	fmt.Fprintf(out, "  unchanged:       %d\n", summary.Unchanged)
	fmt.Fprintf(out, "  skipped:         %d\n", summary.Skipped)
	fmt.Fprintf(out, "  vanished:        %d\n", summary.Vanished)
	fmt.Fprintf(out, "  repair failures: %d\n", summary.RepairFailures)
	fmt.Fprintf(out, "  failed chunks:   %d\n", summary.FailedChunks)
	return nil
}
